// Package capability describes what the running firmware can do: which
// sensors are present, which runtime features are enabled, what kind of
// vehicle is being flown and which optional subsystems were compiled in.
// Everything in here is plain data so that callers can snapshot it once
// and hand it around without locking.
package capability

import "fmt"

// Sensor identifies one hardware sensor slot. The numeric value is the bit
// position inside SensorMask and inside the MSP sensor-status word, so the
// order is frozen.
type Sensor uint8

const (
	SensorAcc Sensor = iota
	SensorBaro
	SensorMag
	SensorGPS
	SensorRangefinder
	SensorOpFlow
	SensorPitot
	SensorTemp

	sensorCount
)

var sensorNames = [sensorCount]string{
	"acc", "baro", "mag", "gps", "rangefinder", "opflow", "pitot", "temp",
}

func (s Sensor) String() string {
	if s < sensorCount {
		return sensorNames[s]
	}
	return fmt.Sprintf("sensor(%d)", uint8(s))
}

// ParseSensor maps a configuration name to a Sensor.
func ParseSensor(name string) (Sensor, error) {
	for i, n := range sensorNames {
		if n == name {
			return Sensor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}

// SensorMask is a set of detected sensors, one bit per Sensor.
type SensorMask uint16

func Sensors(list ...Sensor) SensorMask {
	var m SensorMask
	for _, s := range list {
		m |= 1 << s
	}
	return m
}

func (m SensorMask) Has(s Sensor) bool { return m&(1<<s) != 0 }

// Feature is a runtime-toggleable firmware feature. Values are bit
// positions inside FeatureMask and are part of the stored configuration,
// so they never move. Gaps are slots retired over the project's history.
type Feature uint8

const (
	FeatureThrVbatComp          Feature = 0
	FeatureVbat                 Feature = 1
	FeatureTxProfileSelection   Feature = 2
	FeatureBatProfileAutoswitch Feature = 3
	FeatureSoftSerial           Feature = 6
	FeatureGPS                  Feature = 7
	FeatureTelemetry            Feature = 10
	FeatureCurrentMeter         Feature = 11
	FeatureReversibleMotors     Feature = 12
	FeatureRSSIADC              Feature = 15
	FeatureLEDStrip             Feature = 16
	FeatureDashboard            Feature = 17
	FeatureBlackbox             Feature = 19
	FeatureTransponder          Feature = 21
	FeatureAirmode              Feature = 22
	FeatureSuperexpoRates       Feature = 23
	FeaturePWMServoDriver       Feature = 27
	FeaturePWMOutputEnable      Feature = 28
	FeatureOSD                  Feature = 29
	FeatureFixedWingLaunch      Feature = 30
	FeatureFixedWingAutotrim    Feature = 31
)

// FeatureMask is the persisted enabled-features word.
type FeatureMask uint32

// ReservedFeatures are bit slots that used to carry features in older
// configuration formats. They are forcibly cleared on every validation so
// stale EEPROM content cannot resurrect removed behavior.
const ReservedFeatures FeatureMask = 1<<4 | 1<<5 | 1<<8 | 1<<9 | 1<<13 |
	1<<14 | 1<<18 | 1<<20 | 1<<25 | 1<<26

func Features(list ...Feature) FeatureMask {
	var m FeatureMask
	for _, f := range list {
		m |= 1 << f
	}
	return m
}

func (m FeatureMask) Has(f Feature) bool { return m&(1<<f) != 0 }

func (m FeatureMask) With(f Feature) FeatureMask { return m | 1<<f }

func (m FeatureMask) Without(f Feature) FeatureMask { return m &^ (1 << f) }

// StateFlag is a derived runtime condition, computed from configuration
// and platform type rather than stored.
type StateFlag uint8

const (
	// StateAltitudeControl is set when the vehicle type supports
	// closed-loop altitude control.
	StateAltitudeControl StateFlag = iota
	StateMultirotor
	StateAirplane
	StateRover
	StateBoat
	// StateFlaperonAvailable is set when the mixer exposes a flaperon
	// servo on the current platform.
	StateFlaperonAvailable
)

type StateMask uint16

func States(list ...StateFlag) StateMask {
	var m StateMask
	for _, f := range list {
		m |= 1 << f
	}
	return m
}

func (m StateMask) Has(f StateFlag) bool { return m&(1<<f) != 0 }

// PlatformType is the persisted vehicle class selected by the mixer.
type PlatformType uint8

const (
	PlatformMultirotor PlatformType = iota
	PlatformAirplane
	PlatformHelicopter
	PlatformTricopter
	PlatformRover
	PlatformBoat
)

var platformNames = map[PlatformType]string{
	PlatformMultirotor: "multirotor",
	PlatformAirplane:   "airplane",
	PlatformHelicopter: "helicopter",
	PlatformTricopter:  "tricopter",
	PlatformRover:      "rover",
	PlatformBoat:       "boat",
}

func (p PlatformType) String() string {
	if n, ok := platformNames[p]; ok {
		return n
	}
	return fmt.Sprintf("platform(%d)", uint8(p))
}

// DeriveStateFlags computes the vehicle-class state flags for a platform.
// Multirotor-class platforms (including tricopters and helicopters) get
// altitude control; airplanes get altitude control and flaperons.
func DeriveStateFlags(p PlatformType, flaperonServo bool) StateMask {
	var m StateMask
	switch p {
	case PlatformMultirotor, PlatformTricopter, PlatformHelicopter:
		m = States(StateMultirotor, StateAltitudeControl)
	case PlatformAirplane:
		m = States(StateAirplane, StateAltitudeControl)
		if flaperonServo {
			m |= States(StateFlaperonAvailable)
		}
	case PlatformRover:
		m = States(StateRover)
	case PlatformBoat:
		m = States(StateBoat)
	}
	return m
}

// BuildOptions mirrors the compile-time switches of a firmware target:
// subsystems that are either present in the binary or absent entirely.
// The zero value is a minimal target with everything optional stripped.
type BuildOptions struct {
	UseGPS               bool `yaml:"use_gps"`
	UseDshot             bool `yaml:"use_dshot"`
	UseBrakingMode       bool `yaml:"use_braking_mode"`
	UseFixedWingAutotune bool `yaml:"use_fw_autotune"`
	UseLights            bool `yaml:"use_lights"`
	UseLEDStrip          bool `yaml:"use_led_strip"`
	UseTelemetry         bool `yaml:"use_telemetry"`
	UseBlackbox          bool `yaml:"use_blackbox"`
	UseRCDevice          bool `yaml:"use_rcdevice"`
	UsePinioBox          bool `yaml:"use_pinio_box"`
	UseOSD               bool `yaml:"use_osd"`
	UseRxMSP             bool `yaml:"use_rx_msp"`
	UseMSPRCOverride     bool `yaml:"use_msp_rc_override"`
	UseMag               bool `yaml:"use_mag"`
	UseSoftSerial        bool `yaml:"use_softserial"`
	UseServoSBus         bool `yaml:"use_servo_sbus"`

	// BrushedMotors marks targets whose outputs drive brushed motors
	// directly; the PWM rate window is fixed regardless of protocol.
	BrushedMotors bool `yaml:"brushed_motors"`

	// LEDStripSharedTimer marks boards where the LED strip pad sits on
	// the same timer as a soft-serial pin, making the two exclusive.
	LEDStripSharedTimer bool `yaml:"led_strip_shared_timer"`

	// OSDLayoutCount is the number of alternate OSD layouts compiled in,
	// not counting the primary layout. At most 3 are addressable.
	OSDLayoutCount int `yaml:"osd_layout_count"`
}

// Snapshot is everything the mode resolver needs to decide which flight
// mode boxes the firmware can offer, captured at one instant. Building a
// Snapshot is the caller's job; resolving it is pure.
type Snapshot struct {
	Sensors  SensorMask
	Features FeatureMask
	State    StateMask
	Platform PlatformType
	Build    BuildOptions

	// CompassWorking reports that the compass is present and passed its
	// health check; position control on multirotors requires it.
	CompassWorking bool

	// Settings the resolver consults directly.
	UseGPSNoBaro       bool
	AllowDeadReckoning bool
	TelemetrySwitch    bool

	// DshotMotors reports that the active motor protocol is DSHOT.
	DshotMotors bool
}
