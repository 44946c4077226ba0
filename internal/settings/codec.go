package settings

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Blob layout:
//
//	[0:2]  magic "FC"
//	[2]    format version
//	records, each:
//	  pgn     u16 LE (0xFFFF terminates the record stream)
//	  version u8
//	  flags   u8   bit 7 set on profiled records, low nibble = slot
//	  size    u16 LE
//	  payload size bytes, little-endian packed group struct
//	CRC-16/CCITT (LE) over everything before it, directly after the
//	terminator. Bytes past the CRC are padding and ignored, so the blob
//	can live in a fixed-size partition.
//
// Unknown PGNs and version mismatches keep the group at defaults; that is
// what lets configuration survive both up- and downgrades. Structural
// damage (bad magic, truncated record, size mismatch, CRC) rejects the
// whole blob instead.

var (
	// ErrContentInvalid reports a blob that failed structural checks and
	// must be replaced with factory defaults.
	ErrContentInvalid = errors.New("settings: invalid content")
	// ErrBlobTooLarge reports an encoded configuration that no longer
	// fits the storage partition.
	ErrBlobTooLarge = errors.New("settings: blob exceeds storage size")
)

const (
	blobFormatVersion = 1

	recordFlagProfiled = 0x80
	recordProfileMask  = 0x0F
	pgnTerminator      = 0xFFFF
)

var blobMagic = [2]byte{'F', 'C'}

// Parameter group numbers. Persisted; a number assigned once is never
// reused for a different group.
const (
	pgnSystem        uint16 = 10
	pgnFeatures      uint16 = 11
	pgnMotor         uint16 = 12
	pgnMixer         uint16 = 13
	pgnNav           uint16 = 14
	pgnPosEstimation uint16 = 15
	pgnAcc           uint16 = 16
	pgnGyro          uint16 = 17
	pgnCompass       uint16 = 18
	pgnSerial        uint16 = 19
	pgnRx            uint16 = 20
	pgnTelemetry     uint16 = 21
	pgnModes         uint16 = 22
	pgnBeeper        uint16 = 23
	pgnADC           uint16 = 24
	pgnServo         uint16 = 25

	pgnControlRates uint16 = 30
	pgnTuning       uint16 = 31
	pgnBattery      uint16 = 32
)

type groupDesc struct {
	pgn     uint16
	version uint8
	slots   int
	data    func(st *Store, slot int) any
}

// groupTable drives both encode and decode. Bumping a version makes old
// blobs fall back to defaults for that group only.
var groupTable = []groupDesc{
	{pgnSystem, 5, 1, func(st *Store, _ int) any { return &st.System }},
	{pgnFeatures, 0, 1, func(st *Store, _ int) any { return &st.Features }},
	{pgnBeeper, 2, 1, func(st *Store, _ int) any { return &st.Beeper }},
	{pgnADC, 0, 1, func(st *Store, _ int) any { return &st.ADC }},
	{pgnMotor, 1, 1, func(st *Store, _ int) any { return &st.Motor }},
	{pgnMixer, 1, 1, func(st *Store, _ int) any { return &st.Mixer }},
	{pgnServo, 1, 1, func(st *Store, _ int) any { return &st.Servo }},
	{pgnNav, 2, 1, func(st *Store, _ int) any { return &st.Nav }},
	{pgnPosEstimation, 1, 1, func(st *Store, _ int) any { return &st.PosEstimation }},
	{pgnAcc, 1, 1, func(st *Store, _ int) any { return &st.Acc }},
	{pgnGyro, 2, 1, func(st *Store, _ int) any { return &st.Gyro }},
	{pgnCompass, 1, 1, func(st *Store, _ int) any { return &st.Compass }},
	{pgnSerial, 1, 1, func(st *Store, _ int) any { return &st.Serial }},
	{pgnRx, 1, 1, func(st *Store, _ int) any { return &st.Rx }},
	{pgnTelemetry, 1, 1, func(st *Store, _ int) any { return &st.Telemetry }},
	{pgnModes, 0, 1, func(st *Store, _ int) any { return &st.Modes }},
	{pgnControlRates, 1, MaxProfileCount, func(st *Store, s int) any { return &st.ControlRates[s] }},
	{pgnTuning, 1, MaxProfileCount, func(st *Store, s int) any { return &st.Tuning[s] }},
	{pgnBattery, 1, MaxBatteryProfileCount, func(st *Store, s int) any { return &st.Battery[s] }},
}

func findGroup(pgn uint16) *groupDesc {
	for i := range groupTable {
		if groupTable[i].pgn == pgn {
			return &groupTable[i]
		}
	}
	return nil
}

// Encode serializes the store. maxSize > 0 bounds the result to the
// storage partition size.
func Encode(st *Store, maxSize int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(blobMagic[:])
	buf.WriteByte(blobFormatVersion)

	for i := range groupTable {
		g := &groupTable[i]
		for slot := 0; slot < g.slots; slot++ {
			var payload bytes.Buffer
			if err := binary.Write(&payload, binary.LittleEndian, g.data(st, slot)); err != nil {
				return nil, fmt.Errorf("settings: encode group %d: %w", g.pgn, err)
			}

			var hdr [6]byte
			binary.LittleEndian.PutUint16(hdr[0:2], g.pgn)
			hdr[2] = g.version
			if g.slots > 1 {
				hdr[3] = recordFlagProfiled | uint8(slot)
			}
			binary.LittleEndian.PutUint16(hdr[4:6], uint16(payload.Len()))
			buf.Write(hdr[:])
			buf.Write(payload.Bytes())
		}
	}

	var tail [4]byte
	binary.LittleEndian.PutUint16(tail[0:2], pgnTerminator)
	binary.LittleEndian.PutUint16(tail[2:4], crc16CCITT(buf.Bytes(), tail[0:2]))
	buf.Write(tail[:])

	if maxSize > 0 && buf.Len() > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlobTooLarge, buf.Len(), maxSize)
	}
	return buf.Bytes(), nil
}

// Decode rebuilds a store from a blob. Groups absent from the blob keep
// their defaults.
func Decode(blob []byte) (*Store, error) {
	if len(blob) < 7 || blob[0] != blobMagic[0] || blob[1] != blobMagic[1] {
		return nil, fmt.Errorf("%w: bad magic", ErrContentInvalid)
	}
	if blob[2] != blobFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrContentInvalid, blob[2])
	}

	st := Defaults()
	pos := 3
	for {
		if pos+2 > len(blob) {
			return nil, fmt.Errorf("%w: unterminated record stream", ErrContentInvalid)
		}
		pgn := binary.LittleEndian.Uint16(blob[pos:])
		pos += 2
		if pgn == pgnTerminator {
			break
		}

		if pos+4 > len(blob) {
			return nil, fmt.Errorf("%w: truncated record header", ErrContentInvalid)
		}
		version := blob[pos]
		flags := blob[pos+1]
		size := int(binary.LittleEndian.Uint16(blob[pos+2:]))
		pos += 4
		if pos+size > len(blob) {
			return nil, fmt.Errorf("%w: truncated record payload", ErrContentInvalid)
		}
		payload := blob[pos : pos+size]
		pos += size

		g := findGroup(pgn)
		if g == nil || g.version != version {
			continue
		}
		slot := 0
		if g.slots > 1 {
			if flags&recordFlagProfiled == 0 {
				return nil, fmt.Errorf("%w: group %d missing profile flag", ErrContentInvalid, pgn)
			}
			slot = int(flags & recordProfileMask)
			if slot >= g.slots {
				return nil, fmt.Errorf("%w: group %d slot %d out of range", ErrContentInvalid, pgn, slot)
			}
		}

		dst := g.data(st, slot)
		if binary.Size(dst) != size {
			return nil, fmt.Errorf("%w: group %d size %d", ErrContentInvalid, pgn, size)
		}
		if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("%w: group %d: %v", ErrContentInvalid, pgn, err)
		}
	}

	if pos+2 > len(blob) {
		return nil, fmt.Errorf("%w: missing checksum", ErrContentInvalid)
	}
	if got := crc16CCITT(blob[:pos]); got != binary.LittleEndian.Uint16(blob[pos:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrContentInvalid)
	}
	return st, nil
}

func crc16CCITT(chunks ...[]byte) uint16 {
	var crc uint16
	for _, data := range chunks {
		for _, b := range data {
			crc ^= uint16(b) << 8
			for i := 0; i < 8; i++ {
				if crc&0x8000 != 0 {
					crc = crc<<1 ^ 0x1021
				} else {
					crc <<= 1
				}
			}
		}
	}
	return crc
}
