// Package msp implements the MultiWii Serial Protocol service: frame
// codec for both protocol versions, reply payload builders over the
// flight core, the request dispatcher, and the TCP/serial listeners.
package msp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Frame layouts, both little-endian:
//
//	v1: '$' 'M' dirn len:u8 cmd:u8 payload xor(len..payload)
//	v2: '$' 'X' dirn flags:u8 cmd:u16 len:u16 payload crc8/dvb-s2(flags..payload)
//
// Direction is '<' for requests into the controller, '>' for replies,
// '!' for error replies.
const (
	headerStart byte = '$'
	headerV1    byte = 'M'
	headerV2    byte = 'X'

	DirectionRequest byte = '<'
	DirectionReply   byte = '>'
	DirectionError   byte = '!'
)

// Version selects the frame encoding.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
)

// MaxV1Payload is the largest payload a v1 frame carries; anything larger
// is sent as a v2 frame.
const MaxV1Payload = 255

var (
	// ErrChecksumMismatch reports a frame that arrived damaged. The
	// stream is positioned past the bad frame, so callers drop it and
	// keep reading.
	ErrChecksumMismatch = errors.New("msp: checksum mismatch")
	// ErrPayloadTooLarge reports a payload that does not fit the frame
	// version.
	ErrPayloadTooLarge = errors.New("msp: payload too large")
)

// Frame is one decoded MSP message.
type Frame struct {
	Version   Version
	Direction byte
	Cmd       uint16
	Payload   []byte
}

func crc8DVBS2(crc, b byte) byte {
	crc ^= b
	for i := 0; i < 8; i++ {
		if crc&0x80 != 0 {
			crc = crc<<1 ^ 0xd5
		} else {
			crc <<= 1
		}
	}
	return crc
}

// EncodeV1 builds a v1 frame. Command and payload length must fit the
// 8 bit header fields.
func EncodeV1(direction byte, cmd uint16, payload []byte) ([]byte, error) {
	if cmd > math.MaxUint8 {
		return nil, fmt.Errorf("msp: command %d needs a v2 frame", cmd)
	}
	if len(payload) > MaxV1Payload {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxV1Payload)
	}

	buf := make([]byte, 6+len(payload))
	buf[0] = headerStart
	buf[1] = headerV1
	buf[2] = direction
	buf[3] = byte(len(payload))
	buf[4] = byte(cmd)
	copy(buf[5:], payload)

	crc := byte(0)
	for _, b := range buf[3 : 5+len(payload)] {
		crc ^= b
	}
	buf[5+len(payload)] = crc

	return buf, nil
}

// EncodeV2 builds a v2 frame.
func EncodeV2(direction byte, cmd uint16, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(payload))
	}

	buf := make([]byte, 9+len(payload))
	buf[0] = headerStart
	buf[1] = headerV2
	buf[2] = direction
	buf[3] = 0 // flags, unused
	binary.LittleEndian.PutUint16(buf[4:6], cmd)
	// #nosec G115 -- length is bounded by math.MaxUint16 above.
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(payload)))
	copy(buf[8:], payload)

	crc := byte(0)
	for _, b := range buf[3 : 8+len(payload)] {
		crc = crc8DVBS2(crc, b)
	}
	buf[8+len(payload)] = crc

	return buf, nil
}

// EncodeFrame serializes one frame in its own version.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Version == V1 {
		return EncodeV1(f.Direction, f.Cmd, f.Payload)
	}

	return EncodeV2(f.Direction, f.Cmd, f.Payload)
}

type readFullFunc func(buf []byte) error

// ReadFrame scans the stream to the next frame start, decodes one frame
// of either version and verifies its checksum.
func ReadFrame(readFull readFullFunc) (Frame, error) {
	version, err := resyncToStart(readFull)
	if err != nil {
		return Frame{}, err
	}

	var dirn [1]byte
	if err := readFull(dirn[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame direction: %w", err)
	}

	if version == V1 {
		return readV1Body(readFull, dirn[0])
	}

	return readV2Body(readFull, dirn[0])
}

// resyncToStart discards stream noise until a '$M' or '$X' header.
func resyncToStart(readFull readFullFunc) (Version, error) {
	buf := make([]byte, 1)
	for {
		if err := readFull(buf); err != nil {
			return 0, fmt.Errorf("read frame start: %w", err)
		}
		if buf[0] != headerStart {
			continue
		}
		if err := readFull(buf); err != nil {
			return 0, fmt.Errorf("read frame version: %w", err)
		}
		switch buf[0] {
		case headerV1:
			return V1, nil
		case headerV2:
			return V2, nil
		}
	}
}

func readV1Body(readFull readFullFunc, direction byte) (Frame, error) {
	var hdr [2]byte // len, cmd
	if err := readFull(hdr[:]); err != nil {
		return Frame{}, fmt.Errorf("read v1 header: %w", err)
	}

	payload := make([]byte, int(hdr[0]))
	if err := readFull(payload); err != nil {
		return Frame{}, fmt.Errorf("read v1 payload: %w", err)
	}
	var sum [1]byte
	if err := readFull(sum[:]); err != nil {
		return Frame{}, fmt.Errorf("read v1 checksum: %w", err)
	}

	crc := hdr[0] ^ hdr[1]
	for _, b := range payload {
		crc ^= b
	}
	if crc != sum[0] {
		return Frame{}, fmt.Errorf("%w: v1 cmd %d", ErrChecksumMismatch, hdr[1])
	}

	return Frame{Version: V1, Direction: direction, Cmd: uint16(hdr[1]), Payload: payload}, nil
}

func readV2Body(readFull readFullFunc, direction byte) (Frame, error) {
	var hdr [5]byte // flags, cmd u16, len u16
	if err := readFull(hdr[:]); err != nil {
		return Frame{}, fmt.Errorf("read v2 header: %w", err)
	}
	cmd := binary.LittleEndian.Uint16(hdr[1:3])
	size := int(binary.LittleEndian.Uint16(hdr[3:5]))

	payload := make([]byte, size)
	if err := readFull(payload); err != nil {
		return Frame{}, fmt.Errorf("read v2 payload: %w", err)
	}
	var sum [1]byte
	if err := readFull(sum[:]); err != nil {
		return Frame{}, fmt.Errorf("read v2 checksum: %w", err)
	}

	crc := byte(0)
	for _, b := range hdr {
		crc = crc8DVBS2(crc, b)
	}
	for _, b := range payload {
		crc = crc8DVBS2(crc, b)
	}
	if crc != sum[0] {
		return Frame{}, fmt.Errorf("%w: v2 cmd %d", ErrChecksumMismatch, cmd)
	}

	return Frame{Version: V2, Direction: direction, Cmd: cmd, Payload: payload}, nil
}

// ReadFrameFrom decodes the next frame from a byte stream.
func ReadFrameFrom(r io.Reader) (Frame, error) {
	return ReadFrame(ioReadFullFunc(r))
}

func ioReadFullFunc(r io.Reader) readFullFunc {
	return func(buf []byte) error {
		_, err := io.ReadFull(r, buf)

		return err
	}
}
