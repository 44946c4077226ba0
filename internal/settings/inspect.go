package settings

import (
	"encoding/binary"
	"fmt"
)

// RecordInfo describes one record of a settings blob without applying it.
type RecordInfo struct {
	PGN     uint16
	Name    string
	Version uint8
	Slot    int
	Size    int
	// Applied reports whether Decode would take this record: the group
	// is known and the stored version matches the compiled-in one.
	Applied bool
}

// BlobReport is the structural summary Inspect produces.
type BlobReport struct {
	FormatVersion uint8
	Records       []RecordInfo
	ChecksumOK    bool
}

var groupNames = map[uint16]string{
	pgnSystem:        "system",
	pgnFeatures:      "features",
	pgnMotor:         "motor",
	pgnMixer:         "mixer",
	pgnNav:           "nav",
	pgnPosEstimation: "pos_estimation",
	pgnAcc:           "acc",
	pgnGyro:          "gyro",
	pgnCompass:       "compass",
	pgnSerial:        "serial",
	pgnRx:            "rx",
	pgnTelemetry:     "telemetry",
	pgnModes:         "modes",
	pgnBeeper:        "beeper",
	pgnADC:           "adc",
	pgnServo:         "servo",
	pgnControlRates:  "control_rates",
	pgnTuning:        "tuning",
	pgnBattery:       "battery",
}

// GroupName names a parameter group, or "unknown" for numbers this build
// does not know.
func GroupName(pgn uint16) string {
	if name, ok := groupNames[pgn]; ok {
		return name
	}
	return "unknown"
}

// Inspect walks a blob record by record for diagnostics. Unlike Decode it
// keeps going past version mismatches and unknown groups, reporting each;
// only structural damage stops the walk.
func Inspect(blob []byte) (BlobReport, error) {
	if len(blob) < 7 || blob[0] != blobMagic[0] || blob[1] != blobMagic[1] {
		return BlobReport{}, fmt.Errorf("%w: bad magic", ErrContentInvalid)
	}

	report := BlobReport{FormatVersion: blob[2]}
	if blob[2] != blobFormatVersion {
		return report, fmt.Errorf("%w: unsupported format %d", ErrContentInvalid, blob[2])
	}

	pos := 3
	for {
		if pos+2 > len(blob) {
			return report, fmt.Errorf("%w: unterminated record stream", ErrContentInvalid)
		}
		pgn := binary.LittleEndian.Uint16(blob[pos:])
		pos += 2
		if pgn == pgnTerminator {
			break
		}

		if pos+4 > len(blob) {
			return report, fmt.Errorf("%w: truncated record header", ErrContentInvalid)
		}
		version := blob[pos]
		flags := blob[pos+1]
		size := int(binary.LittleEndian.Uint16(blob[pos+2:]))
		pos += 4
		if pos+size > len(blob) {
			return report, fmt.Errorf("%w: truncated record payload", ErrContentInvalid)
		}
		pos += size

		info := RecordInfo{
			PGN:     pgn,
			Name:    GroupName(pgn),
			Version: version,
			Size:    size,
		}
		if flags&recordFlagProfiled != 0 {
			info.Slot = int(flags & recordProfileMask)
		}
		if g := findGroup(pgn); g != nil && g.version == version {
			info.Applied = true
		}
		report.Records = append(report.Records, info)
	}

	if pos+2 > len(blob) {
		return report, fmt.Errorf("%w: missing checksum", ErrContentInvalid)
	}
	report.ChecksumOK = crc16CCITT(blob[:pos]) == binary.LittleEndian.Uint16(blob[pos:])

	return report, nil
}
