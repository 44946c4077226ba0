package msp

// Buffer is a bounded little-endian reply builder. Every write either
// fits completely or fails without partial effect, mirroring the fixed
// reply buffers of the flight controller.
type Buffer struct {
	data []byte
	cap  int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity), cap: capacity}
}

// Remaining reports how many bytes still fit.
func (b *Buffer) Remaining() int { return b.cap - len(b.data) }

func (b *Buffer) Len() int { return len(b.data) }

func (b *Buffer) WriteU8(v uint8) bool {
	if b.Remaining() < 1 {
		return false
	}
	b.data = append(b.data, v)

	return true
}

func (b *Buffer) WriteU16(v uint16) bool {
	if b.Remaining() < 2 {
		return false
	}
	b.data = append(b.data, byte(v), byte(v>>8))

	return true
}

func (b *Buffer) WriteU32(v uint32) bool {
	if b.Remaining() < 4 {
		return false
	}
	b.data = append(b.data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))

	return true
}

func (b *Buffer) WriteData(p []byte) bool {
	if b.Remaining() < len(p) {
		return false
	}
	b.data = append(b.data, p...)

	return true
}

// Bytes returns the written content. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }
