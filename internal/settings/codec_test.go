package settings

import (
	"encoding/binary"
	"errors"
	"testing"

	"fccore/internal/capability"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	st := Defaults()
	st.System.SetName("bench rig")
	st.System.CurrentProfileIndex = 2
	st.System.CurrentBatteryProfileIndex = 1
	st.SetFeature(capability.FeatureTelemetry, true)
	st.Motor = MotorSettings{Protocol: ProtocolDshot300, PWMRate: 4000}
	st.Nav.LandSlowdownMinAlt = 300
	st.ControlRates[2].Rates = [3]uint8{30, 30, 25}
	st.Tuning[1].PID[0] = AxisPID{P: 55, I: 40, D: 20, FF: 10}
	st.Battery[1].Cells = 6
	st.Modes.Conditions[0] = ModeActivationCondition{PermanentID: 0, AuxChannelIndex: 2, RangeStartStep: 32, RangeEndStep: 48}

	blob, err := Encode(st, 4096)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *st {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, st)
	}
}

func TestDecodeToleratesPartitionPadding(t *testing.T) {
	blob, err := Encode(Defaults(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	padded := make([]byte, 4096)
	for i := range padded {
		padded[i] = 0xFF
	}
	copy(padded, blob)

	if _, err := Decode(padded); err != nil {
		t.Fatalf("expected padded blob to decode, got %v", err)
	}
}

func TestDecodeUnknownGroupKeepsDefaults(t *testing.T) {
	st := Defaults()
	st.Gyro.LooptimeUs = 500
	blob, err := Encode(st, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Splice in a record for a PGN this build does not know, directly
	// after the header, and restamp the checksum.
	unknown := []byte{0xE7, 0x03, 1, 0, 3, 0, 0xAA, 0xBB, 0xCC}
	spliced := append([]byte{}, blob[:3]...)
	spliced = append(spliced, unknown...)
	spliced = append(spliced, blob[3:len(blob)-2]...)
	crc := crc16CCITT(spliced)
	spliced = binary.LittleEndian.AppendUint16(spliced, crc)

	got, err := Decode(spliced)
	if err != nil {
		t.Fatalf("expected unknown group to be skipped, got %v", err)
	}
	if got.Gyro.LooptimeUs != 500 {
		t.Fatalf("known groups must still decode, got looptime %d", got.Gyro.LooptimeUs)
	}
}

func TestDecodeVersionBumpFallsBackToDefaults(t *testing.T) {
	st := Defaults()
	st.Nav.RTHAltitude = 3000
	blob, err := Encode(st, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Find the nav record and bump its version byte.
	pos := 3
	for pos+2 <= len(blob) {
		pgn := binary.LittleEndian.Uint16(blob[pos:])
		if pgn == pgnTerminator {
			t.Fatalf("nav record not found")
		}
		size := int(binary.LittleEndian.Uint16(blob[pos+4:]))
		if pgn == pgnNav {
			blob[pos+2]++
			break
		}
		pos += 6 + size
	}
	end := len(blob) - 2
	binary.LittleEndian.PutUint16(blob[end:], crc16CCITT(blob[:end]))

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Nav.RTHAltitude != Defaults().Nav.RTHAltitude {
		t.Fatalf("expected nav group at defaults after version bump, got %d", got.Nav.RTHAltitude)
	}
}

func TestDecodeRejectsDamage(t *testing.T) {
	blob, err := Encode(Defaults(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string]func([]byte) []byte{
		"empty":       func(b []byte) []byte { return nil },
		"bad magic":   func(b []byte) []byte { b[0] = 'X'; return b },
		"bad format":  func(b []byte) []byte { b[2] = 99; return b },
		"flipped bit": func(b []byte) []byte { b[10] ^= 0x40; return b },
		"truncated":   func(b []byte) []byte { return b[:len(b)/2] },
		"no checksum": func(b []byte) []byte { return b[:len(b)-2] },
	}
	for name, corrupt := range cases {
		c := corrupt(append([]byte{}, blob...))
		if _, err := Decode(c); !errors.Is(err, ErrContentInvalid) {
			t.Fatalf("%s: expected ErrContentInvalid, got %v", name, err)
		}
	}
}

func TestEncodeRespectsPartitionSize(t *testing.T) {
	if _, err := Encode(Defaults(), 64); !errors.Is(err, ErrBlobTooLarge) {
		t.Fatalf("expected ErrBlobTooLarge for a 64 byte partition")
	}
	if _, err := Encode(Defaults(), 4096); err != nil {
		t.Fatalf("expected default store to fit 4096 bytes, got %v", err)
	}
}

func TestDecodeProfiledSlots(t *testing.T) {
	st := Defaults()
	st.ControlRates[0].RCExpo8 = 10
	st.ControlRates[1].RCExpo8 = 20
	st.ControlRates[2].RCExpo8 = 30

	blob, err := Encode(st, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, want := range []uint8{10, 20, 30} {
		if got.ControlRates[i].RCExpo8 != want {
			t.Fatalf("profile %d: expected expo %d, got %d", i, want, got.ControlRates[i].RCExpo8)
		}
	}
}
