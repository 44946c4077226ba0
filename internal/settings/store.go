package settings

import "fccore/internal/capability"

// Store is the whole persisted configuration in memory. It carries no
// locking of its own: the owning controller serializes access.
type Store struct {
	System        SystemSettings
	Features      FeatureSettings
	Beeper        BeeperSettings
	ADC           ADCChannelSettings
	Motor         MotorSettings
	Mixer         MixerSettings
	Servo         ServoSettings
	Nav           NavSettings
	PosEstimation PosEstimationSettings
	Acc           AccSettings
	Gyro          GyroSettings
	Compass       CompassSettings
	Serial        SerialSettings
	Rx            RxSettings
	Telemetry     TelemetrySettings
	Modes         ModeActivationSettings

	ControlRates [MaxProfileCount]ControlRateProfile
	Tuning       [MaxProfileCount]TuningProfile
	Battery      [MaxBatteryProfileCount]BatteryProfile
}

// Defaults builds a factory-fresh store: group reset values plus the
// model-level defaults (channel order, permanently enabled airmode).
// Target-specific overrides are applied by the caller's hooks, not here.
func Defaults() *Store {
	st := &Store{
		Features: FeatureSettings{Enabled: capability.Features(capability.FeatureAirmode)},
		Beeper:   BeeperSettings{DshotBeeperEnabled: true, DshotBeeperTone: 1},
		ADC:      ADCChannelSettings{FunctionChannel: [4]uint8{ADCBattery: 1, ADCCurrent: 2}},
		Motor:    MotorSettings{Protocol: ProtocolOneshot125, PWMRate: 400},
		Mixer:    MixerSettings{PlatformType: capability.PlatformMultirotor},
		Nav: NavSettings{
			LandSlowdownMinAlt:   500,
			LandSlowdownMaxAlt:   2000,
			RTHAltitude:          1000,
			EmergencyDescentRate: 500,
		},
		Gyro:      GyroSettings{LooptimeUs: 1000},
		Serial:    defaultSerialSettings(),
		Rx:        RxSettings{ChannelMap: defaultChannelMap, MinCheck: 1100, MaxCheck: 1900},
		Telemetry: TelemetrySettings{HalfDuplex: true},
	}
	for i := range st.ControlRates {
		st.ControlRates[i] = defaultControlRateProfile()
	}
	for i := range st.Tuning {
		st.Tuning[i] = defaultTuningProfile()
	}
	for i := range st.Battery {
		st.Battery[i] = defaultBatteryProfile()
	}
	return st
}

// CurrentControlRates returns the control-rate profile selected by the
// system settings. The index is trusted; out-of-range values are repaired
// on load before anything reads through here.
func (st *Store) CurrentControlRates() *ControlRateProfile {
	return &st.ControlRates[st.System.CurrentProfileIndex]
}

// CurrentTuning returns the selected PID bank.
func (st *Store) CurrentTuning() *TuningProfile {
	return &st.Tuning[st.System.CurrentProfileIndex]
}

// CurrentBattery returns the selected battery profile.
func (st *Store) CurrentBattery() *BatteryProfile {
	return &st.Battery[st.System.CurrentBatteryProfileIndex]
}

// FeatureEnabled reports one feature bit.
func (st *Store) FeatureEnabled(f capability.Feature) bool {
	return st.Features.Enabled.Has(f)
}

// SetFeature switches one feature bit on or off.
func (st *Store) SetFeature(f capability.Feature, on bool) {
	if on {
		st.Features.Enabled = st.Features.Enabled.With(f)
	} else {
		st.Features.Enabled = st.Features.Enabled.Without(f)
	}
}
