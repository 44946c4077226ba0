package settings

import (
	"fmt"

	"fccore/internal/capability"
)

// TargetHooks are the board-specific override points. Most targets need
// neither; boards with peculiar wiring replace the defaults or repair
// combinations generic validation cannot know about.
type TargetHooks interface {
	// ApplyDefaults runs once after factory defaults are built.
	ApplyDefaults(st *Store)
	// ValidateAndFix runs as part of every validation pass, after the
	// generic repairs and before the range check.
	ValidateAndFix(st *Store)
}

// NopTargetHooks is the default no-override implementation.
type NopTargetHooks struct{}

func (NopTargetHooks) ApplyDefaults(*Store)  {}
func (NopTargetHooks) ValidateAndFix(*Store) {}

// Result reports what a validation pass did. Fixes lists repairs that
// changed stored values; Invalid lists range violations the pass cannot
// repair. A non-empty Invalid must keep the craft disarmed.
type Result struct {
	Fixes   []string
	Invalid []string
}

func (r *Result) SettingsValid() bool { return len(r.Invalid) == 0 }

func (r *Result) fixed(format string, args ...any) {
	r.Fixes = append(r.Fixes, fmt.Sprintf(format, args...))
}

func (r *Result) invalid(format string, args ...any) {
	r.Invalid = append(r.Invalid, fmt.Sprintf(format, args...))
}

// motorRateWindow is the per-protocol PWM rate window. Standard servo-ish
// PWM tops out at 490 Hz; the faster protocols at their frame rate.
// DSHOT600 could run beyond 16 kHz but the scheduler load is not worth it.
var motorRateWindow = map[MotorProtocol]struct{ min, max uint32 }{
	ProtocolStandard:   {0, 490},
	ProtocolOneshot125: {0, 3900},
	ProtocolMultishot:  {2000, 16000},
	ProtocolBrushed:    {500, 32000},
	ProtocolDshot150:   {0, 4000},
	ProtocolDshot300:   {0, 8000},
	ProtocolDshot600:   {0, 16000},
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateAndFix repairs unsafe or impossible combinations in place and
// then range-checks the whole store. It must run after every load and
// before every activation; the rule order is load-bearing (the motor
// protocol fallback must precede the rate clamp).
func ValidateAndFix(st *Store, build capability.BuildOptions, hooks TargetHooks) Result {
	var res Result
	if hooks == nil {
		hooks = NopTargetHooks{}
	}

	// A notch whose cutoff reaches the center frequency filters nothing;
	// disable it outright.
	if st.Acc.NotchCutoff >= st.Acc.NotchHz && st.Acc.NotchHz != 0 {
		st.Acc.NotchHz = 0
		res.fixed("acc notch disabled: cutoff above center frequency")
	}

	if stale := st.Features.Enabled & capability.ReservedFeatures; stale != 0 {
		st.Features.Enabled &^= capability.ReservedFeatures
		res.fixed("cleared reserved feature bits %#08x", uint32(stale))
	}

	if build.UseLEDStrip && build.UseSoftSerial && build.LEDStripSharedTimer &&
		st.FeatureEnabled(capability.FeatureSoftSerial) && st.FeatureEnabled(capability.FeatureLEDStrip) {
		// The LED strip would steal the soft-serial timer.
		st.SetFeature(capability.FeatureLEDStrip, false)
		res.fixed("led strip disabled: timer shared with soft serial")
	}

	if !build.UseServoSBus && (st.Servo.Protocol == ServoSBus || st.Servo.Protocol == ServoSBusPWM) {
		st.Servo.Protocol = ServoPWM
		res.fixed("servo protocol reset to pwm: sbus output not supported")
	}

	if !st.Serial.Valid() {
		st.Serial = defaultSerialSettings()
		res.fixed("serial port table reset to defaults")
	}

	// Keep a 100 cm band between the landing slowdown altitudes.
	if ceiling := int(st.Nav.LandSlowdownMaxAlt) - 100; int(st.Nav.LandSlowdownMinAlt) > ceiling {
		if ceiling < 0 {
			ceiling = 0
		}
		st.Nav.LandSlowdownMinAlt = uint16(ceiling)
		res.fixed("land slowdown min altitude clamped to %d", ceiling)
	}

	if !build.UseDshot && st.Motor.Protocol > ProtocolBrushed {
		st.Motor.Protocol = ProtocolMultishot
		res.fixed("motor protocol reset to multishot: dshot not supported")
	}

	window, ok := motorRateWindow[st.Motor.Protocol]
	if !ok {
		st.Motor.Protocol = ProtocolStandard
		window = motorRateWindow[ProtocolStandard]
		res.fixed("unknown motor protocol reset to standard")
	}
	if build.BrushedMotors {
		window = motorRateWindow[ProtocolBrushed]
	}
	if clamped := clampU32(st.Motor.PWMRate, window.min, window.max); clamped != st.Motor.PWMRate {
		st.Motor.PWMRate = clamped
		res.fixed("motor pwm rate clamped to %d for %v", clamped, st.Motor.Protocol)
	}

	hooks.ValidateAndFix(st)

	if build.UseMag && st.Compass.Alignment == AlignDefault {
		st.Compass.Alignment = AlignCW270Flip
		res.fixed("mag alignment set to cw270 flip")
	}

	rangeCheck(st, &res)
	return res
}

// rangeCheck is the whole-table validity pass. It repairs nothing: a
// violation here means a value escaped both the setters and the repairs
// above, and flying with it is not safe.
func rangeCheck(st *Store, res *Result) {
	if st.Gyro.LooptimeUs < 125 || st.Gyro.LooptimeUs > 4000 {
		res.invalid("gyro looptime %d out of range", st.Gyro.LooptimeUs)
	}
	if st.Nav.LandSlowdownMaxAlt < 500 || st.Nav.LandSlowdownMaxAlt > 4000 {
		res.invalid("land slowdown max altitude %d out of range", st.Nav.LandSlowdownMaxAlt)
	}
	if st.Nav.LandSlowdownMinAlt < 100 || st.Nav.LandSlowdownMinAlt > 1000 {
		res.invalid("land slowdown min altitude %d out of range", st.Nav.LandSlowdownMinAlt)
	}
	if st.Rx.MinCheck < 900 || st.Rx.MinCheck > 2100 ||
		st.Rx.MaxCheck < 900 || st.Rx.MaxCheck > 2100 ||
		st.Rx.MinCheck >= st.Rx.MaxCheck {
		res.invalid("rx check band %d..%d unusable", st.Rx.MinCheck, st.Rx.MaxCheck)
	}

	var seen [4]bool
	mapOK := true
	for _, ch := range st.Rx.ChannelMap {
		if ch > 3 || seen[ch] {
			mapOK = false
			break
		}
		seen[ch] = true
	}
	if !mapOK {
		res.invalid("rx channel map is not a permutation")
	}

	if st.System.CurrentProfileIndex >= MaxProfileCount {
		res.invalid("profile index %d out of range", st.System.CurrentProfileIndex)
	}
	if st.System.CurrentBatteryProfileIndex >= MaxBatteryProfileCount {
		res.invalid("battery profile index %d out of range", st.System.CurrentBatteryProfileIndex)
	}

	for i := range st.Battery {
		b := &st.Battery[i]
		if b.CellMinVoltage < 200 || b.CellMaxVoltage > 500 ||
			b.CellMinVoltage >= b.CellWarningVoltage || b.CellWarningVoltage > b.CellMaxVoltage {
			res.invalid("battery profile %d cell voltages unusable", i)
		}
	}

	for i := range st.Modes.Conditions {
		c := &st.Modes.Conditions[i]
		if c.RangeStartStep > ModeStepMax || c.RangeEndStep > ModeStepMax {
			res.invalid("mode range %d steps out of range", i)
		}
		if c.AuxChannelIndex > 15 {
			res.invalid("mode range %d aux channel %d out of range", i, c.AuxChannelIndex)
		}
	}
}
