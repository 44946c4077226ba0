// Package settings holds the persisted configuration of the firmware: a
// set of versioned parameter groups, three of them partitioned per profile,
// plus the codec that moves them in and out of EEPROM and the validator
// that repairs unsafe combinations after every load.
package settings

import (
	"fmt"
	"strings"

	"fccore/internal/capability"
)

const (
	// MaxProfileCount is the number of tuning profiles (control rates and
	// PID sets switch together).
	MaxProfileCount = 3
	// MaxBatteryProfileCount is the number of battery profiles.
	MaxBatteryProfileCount = 3
	// MaxModeActivationConditions bounds the mode-range table.
	MaxModeActivationConditions = 20
	// SerialPortCount is the number of configurable serial ports.
	SerialPortCount = 4
)

// SystemSettings carries the profile selectors and craft identity.
type SystemSettings struct {
	CurrentProfileIndex        uint8
	CurrentBatteryProfileIndex uint8
	CraftName                  [16]byte
}

func (s *SystemSettings) Name() string {
	n := s.CraftName[:]
	for i, b := range n {
		if b == 0 {
			return string(n[:i])
		}
	}
	return string(n)
}

func (s *SystemSettings) SetName(name string) {
	var buf [16]byte
	copy(buf[:], name)
	s.CraftName = buf
}

// FeatureSettings is the persisted enabled-features word.
type FeatureSettings struct {
	Enabled capability.FeatureMask
}

// BeeperSettings controls which beeper conditions are muted.
type BeeperSettings struct {
	OffFlags           uint32
	PreferredOffFlags  uint32
	DshotBeeperEnabled bool
	DshotBeeperTone    uint8
}

// ADCChannelSettings maps ADC functions to input channels; 0 means the
// function has no channel wired.
type ADCChannelSettings struct {
	// Battery, RSSI, current, airspeed.
	FunctionChannel [4]uint8
}

const (
	ADCBattery = iota
	ADCRSSI
	ADCCurrent
	ADCAirspeed
)

// MotorProtocol selects the signal protocol driven to the ESCs.
type MotorProtocol uint8

const (
	ProtocolStandard MotorProtocol = iota
	ProtocolOneshot125
	ProtocolMultishot
	ProtocolBrushed
	ProtocolDshot150
	ProtocolDshot300
	ProtocolDshot600
)

var motorProtocolNames = map[MotorProtocol]string{
	ProtocolStandard:   "standard",
	ProtocolOneshot125: "oneshot125",
	ProtocolMultishot:  "multishot",
	ProtocolBrushed:    "brushed",
	ProtocolDshot150:   "dshot150",
	ProtocolDshot300:   "dshot300",
	ProtocolDshot600:   "dshot600",
}

func (p MotorProtocol) String() string {
	if n, ok := motorProtocolNames[p]; ok {
		return n
	}
	return fmt.Sprintf("protocol(%d)", uint8(p))
}

// IsDshot reports whether the protocol is digital shot of any speed.
func (p MotorProtocol) IsDshot() bool {
	return p == ProtocolDshot150 || p == ProtocolDshot300 || p == ProtocolDshot600
}

// MotorSettings configures the motor outputs. PWMRate is in Hz and wider
// than any sane value on purpose: the validator owns the clamping.
type MotorSettings struct {
	Protocol MotorProtocol
	PWMRate  uint32
}

// MixerSettings selects the airframe.
type MixerSettings struct {
	PlatformType     capability.PlatformType
	HasFlaperonServo bool
}

// ServoProtocol selects the servo output bus.
type ServoProtocol uint8

const (
	ServoPWM ServoProtocol = iota
	ServoSBus
	ServoSBusPWM
)

// ServoSettings configures servo outputs.
type ServoSettings struct {
	Protocol ServoProtocol
}

// NavSettings carries the navigation parameters the validator and the
// status surfaces need. Altitudes are centimeters.
type NavSettings struct {
	LandSlowdownMinAlt   uint16
	LandSlowdownMaxAlt   uint16
	RTHAltitude          uint16
	EmergencyDescentRate uint16
}

// PosEstimationSettings tunes the position estimator inputs.
type PosEstimationSettings struct {
	UseGPSNoBaro       bool
	AllowDeadReckoning bool
}

// AccSettings holds accelerometer filter and calibration values.
type AccSettings struct {
	NotchHz     uint16
	NotchCutoff uint16
	Zero        [3]int16
}

// GyroSettings holds the gyro loop rate and calibration values.
type GyroSettings struct {
	LooptimeUs  uint16
	ZeroCal     [3]int16
	GravityCMSS float32
}

// SensorAlignment describes how a sensor is rotated relative to the board.
type SensorAlignment uint8

const (
	AlignDefault SensorAlignment = iota
	AlignCW0
	AlignCW90
	AlignCW180
	AlignCW270
	AlignCW0Flip
	AlignCW90Flip
	AlignCW180Flip
	AlignCW270Flip
)

// CompassSettings holds magnetometer orientation and declination.
type CompassSettings struct {
	Alignment       SensorAlignment
	DeclinationDeci int16
}

// TelemetrySettings controls the telemetry outputs.
type TelemetrySettings struct {
	// Switch ties telemetry output to a box instead of arming.
	Switch     bool
	HalfDuplex bool
}

// RxSettings maps receiver channels to control functions.
type RxSettings struct {
	// ChannelMap[function] is the channel index carrying that function,
	// functions ordered roll, pitch, throttle, yaw.
	ChannelMap [4]uint8
	MinCheck   uint16
	MaxCheck   uint16
}

var channelLetters = "AETR"

// ParseChannelMap translates a channel-order string such as "AETR1234"
// into a channel map. Only the first four characters matter; each of
// A, E, T, R must appear exactly once.
func ParseChannelMap(order string) ([4]uint8, error) {
	var m [4]uint8
	if len(order) < 4 {
		return m, fmt.Errorf("channel order %q too short", order)
	}
	var seen [4]bool
	for pos := 0; pos < 4; pos++ {
		fn := strings.IndexByte(channelLetters, order[pos])
		if fn < 0 {
			return m, fmt.Errorf("channel order %q: unknown letter %q", order, order[pos])
		}
		if seen[fn] {
			return m, fmt.Errorf("channel order %q: %q repeated", order, order[pos])
		}
		seen[fn] = true
		m[fn] = uint8(pos)
	}
	return m, nil
}

// defaultChannelMap is ParseChannelMap("AETR1234"); kept as a literal so
// defaults need no error path.
var defaultChannelMap = [4]uint8{0, 1, 2, 3}
