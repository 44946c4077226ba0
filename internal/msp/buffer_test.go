package msp

import (
	"bytes"
	"testing"
)

func TestBufferWritesLittleEndian(t *testing.T) {
	buf := NewBuffer(16)

	if !buf.WriteU8(0x01) {
		t.Fatalf("write u8 failed")
	}
	if !buf.WriteU16(0x0203) {
		t.Fatalf("write u16 failed")
	}
	if !buf.WriteU32(0x04050607) {
		t.Fatalf("write u32 failed")
	}
	if !buf.WriteData([]byte{0xAA, 0xBB}) {
		t.Fatalf("write data failed")
	}

	want := []byte{0x01, 0x03, 0x02, 0x07, 0x06, 0x05, 0x04, 0xAA, 0xBB}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("content mismatch: got %x want %x", buf.Bytes(), want)
	}
	if buf.Len() != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), buf.Len())
	}
	if buf.Remaining() != 16-len(want) {
		t.Fatalf("expected %d remaining, got %d", 16-len(want), buf.Remaining())
	}
}

func TestBufferRejectsOverflowWithoutPartialWrite(t *testing.T) {
	buf := NewBuffer(3)
	if !buf.WriteU16(0xBEEF) {
		t.Fatalf("write u16 failed")
	}

	if buf.WriteU32(1) {
		t.Fatalf("expected u32 write to fail with 1 byte remaining")
	}
	if buf.WriteU16(1) {
		t.Fatalf("expected u16 write to fail with 1 byte remaining")
	}
	if buf.WriteData([]byte{1, 2}) {
		t.Fatalf("expected data write to fail with 1 byte remaining")
	}
	if buf.Len() != 2 {
		t.Fatalf("failed writes must not grow the buffer, length %d", buf.Len())
	}

	if !buf.WriteU8(0x7F) {
		t.Fatalf("write u8 into last byte failed")
	}
	if buf.Remaining() != 0 {
		t.Fatalf("expected full buffer, %d remaining", buf.Remaining())
	}
	if buf.WriteU8(0) {
		t.Fatalf("expected u8 write to fail on a full buffer")
	}
}

func TestBufferEmptyDataAlwaysFits(t *testing.T) {
	buf := NewBuffer(0)
	if !buf.WriteData(nil) {
		t.Fatalf("empty write must succeed on a full buffer")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer, length %d", buf.Len())
	}
}
