package settings

import (
	"math"
	"strings"
	"testing"

	"fccore/internal/capability"
)

func fullBuild() capability.BuildOptions {
	return capability.BuildOptions{
		UseGPS:        true,
		UseDshot:      true,
		UseLEDStrip:   true,
		UseSoftSerial: true,
		UseMag:        true,
		UseServoSBus:  true,
	}
}

func TestValidateDefaultsAreValid(t *testing.T) {
	st := Defaults()
	res := ValidateAndFix(st, fullBuild(), nil)

	if !res.SettingsValid() {
		t.Fatalf("defaults must pass the range check, got %v", res.Invalid)
	}
	// The only expected repair on defaults is the mag alignment pick.
	if len(res.Fixes) != 1 || !strings.Contains(res.Fixes[0], "mag alignment") {
		t.Fatalf("unexpected fixes on defaults: %v", res.Fixes)
	}
	if st.Compass.Alignment != AlignCW270Flip {
		t.Fatalf("expected default mag alignment cw270 flip, got %d", st.Compass.Alignment)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	st := Defaults()
	ValidateAndFix(st, fullBuild(), nil)
	res := ValidateAndFix(st, fullBuild(), nil)

	if len(res.Fixes) != 0 {
		t.Fatalf("second pass must change nothing, got %v", res.Fixes)
	}
}

func TestValidateAccNotch(t *testing.T) {
	st := Defaults()
	st.Acc.NotchHz = 100
	st.Acc.NotchCutoff = 120
	ValidateAndFix(st, fullBuild(), nil)
	if st.Acc.NotchHz != 0 {
		t.Fatalf("expected notch disabled, got hz %d", st.Acc.NotchHz)
	}

	st.Acc.NotchHz = 200
	st.Acc.NotchCutoff = 120
	ValidateAndFix(st, fullBuild(), nil)
	if st.Acc.NotchHz != 200 {
		t.Fatalf("expected usable notch kept, got hz %d", st.Acc.NotchHz)
	}
}

func TestValidateClearsReservedFeatureBits(t *testing.T) {
	st := Defaults()
	st.Features.Enabled |= capability.ReservedFeatures | capability.Features(capability.FeatureGPS)

	ValidateAndFix(st, fullBuild(), nil)
	if st.Features.Enabled&capability.ReservedFeatures != 0 {
		t.Fatalf("reserved bits survived validation: %#08x", uint32(st.Features.Enabled))
	}
	if !st.FeatureEnabled(capability.FeatureGPS) {
		t.Fatalf("live feature bits must survive")
	}
}

func TestValidateLEDStripTimerConflict(t *testing.T) {
	build := fullBuild()
	build.LEDStripSharedTimer = true

	st := Defaults()
	st.SetFeature(capability.FeatureSoftSerial, true)
	st.SetFeature(capability.FeatureLEDStrip, true)

	ValidateAndFix(st, build, nil)
	if st.FeatureEnabled(capability.FeatureLEDStrip) {
		t.Fatalf("expected led strip feature cleared on shared timer")
	}
	if !st.FeatureEnabled(capability.FeatureSoftSerial) {
		t.Fatalf("soft serial must win the timer")
	}

	// Without the conflict both stay.
	st = Defaults()
	st.SetFeature(capability.FeatureSoftSerial, true)
	st.SetFeature(capability.FeatureLEDStrip, true)
	ValidateAndFix(st, fullBuild(), nil)
	if !st.FeatureEnabled(capability.FeatureLEDStrip) {
		t.Fatalf("led strip must stay without a timer conflict")
	}
}

func TestValidateServoProtocolFallback(t *testing.T) {
	build := fullBuild()
	build.UseServoSBus = false

	st := Defaults()
	st.Servo.Protocol = ServoSBus
	ValidateAndFix(st, build, nil)
	if st.Servo.Protocol != ServoPWM {
		t.Fatalf("expected servo protocol pwm, got %d", st.Servo.Protocol)
	}

	st.Servo.Protocol = ServoSBusPWM
	ValidateAndFix(st, build, nil)
	if st.Servo.Protocol != ServoPWM {
		t.Fatalf("expected servo protocol pwm, got %d", st.Servo.Protocol)
	}
}

func TestValidateSerialTableReset(t *testing.T) {
	st := Defaults()
	st.Serial.Ports[1].Identifier = st.Serial.Ports[0].Identifier // duplicate

	ValidateAndFix(st, fullBuild(), nil)
	if st.Serial != defaultSerialSettings() {
		t.Fatalf("expected serial table reset to defaults")
	}
}

func TestValidateLandSlowdownBand(t *testing.T) {
	st := Defaults()
	st.Nav.LandSlowdownMinAlt = 600
	st.Nav.LandSlowdownMaxAlt = 500

	ValidateAndFix(st, fullBuild(), nil)
	if st.Nav.LandSlowdownMinAlt != 400 {
		t.Fatalf("expected min altitude 400, got %d", st.Nav.LandSlowdownMinAlt)
	}
}

func TestValidateMotorProtocolWithoutDshot(t *testing.T) {
	build := fullBuild()
	build.UseDshot = false

	st := Defaults()
	st.Motor = MotorSettings{Protocol: ProtocolDshot600, PWMRate: 16000}
	ValidateAndFix(st, build, nil)
	if st.Motor.Protocol != ProtocolMultishot {
		t.Fatalf("expected multishot fallback, got %v", st.Motor.Protocol)
	}
	if st.Motor.PWMRate != 16000 {
		t.Fatalf("rate 16000 is inside the multishot window, got %d", st.Motor.PWMRate)
	}
}

func TestValidateMotorRateWindows(t *testing.T) {
	cases := []struct {
		protocol MotorProtocol
		in, out  uint32
	}{
		{ProtocolStandard, 1000, 490},
		{ProtocolStandard, 0, 0},
		{ProtocolOneshot125, 4000, 3900},
		{ProtocolMultishot, 0, 2000},
		{ProtocolMultishot, 20000, 16000},
		{ProtocolBrushed, 100, 500},
		{ProtocolBrushed, 40000, 32000},
		{ProtocolDshot150, 5000, 4000},
		{ProtocolDshot300, 20000, 8000},
		{ProtocolDshot300, math.MaxUint32, 8000},
		{ProtocolDshot600, 20000, 16000},
		{ProtocolDshot600, 16000, 16000},
	}
	for _, c := range cases {
		st := Defaults()
		st.Motor = MotorSettings{Protocol: c.protocol, PWMRate: c.in}
		ValidateAndFix(st, fullBuild(), nil)
		if st.Motor.PWMRate != c.out {
			t.Fatalf("%v rate %d: expected %d, got %d", c.protocol, c.in, c.out, st.Motor.PWMRate)
		}
		if st.Motor.Protocol != c.protocol {
			t.Fatalf("%v: protocol must not change on a dshot-capable build", c.protocol)
		}
	}
}

func TestValidateBrushedTargetOverridesWindow(t *testing.T) {
	build := fullBuild()
	build.BrushedMotors = true

	st := Defaults()
	st.Motor = MotorSettings{Protocol: ProtocolStandard, PWMRate: 100}
	ValidateAndFix(st, build, nil)
	if st.Motor.PWMRate != 500 {
		t.Fatalf("expected brushed floor 500, got %d", st.Motor.PWMRate)
	}
}

type recordingHooks struct {
	NopTargetHooks
	validated int
}

func (h *recordingHooks) ValidateAndFix(st *Store) {
	h.validated++
	st.Nav.RTHAltitude = 2500
}

func TestValidateRunsTargetHook(t *testing.T) {
	hooks := &recordingHooks{}
	st := Defaults()

	ValidateAndFix(st, fullBuild(), hooks)
	if hooks.validated != 1 {
		t.Fatalf("expected target hook to run once, ran %d times", hooks.validated)
	}
	if st.Nav.RTHAltitude != 2500 {
		t.Fatalf("expected target hook override to stick")
	}
}

func TestValidateRangeCheckFlagsUnsafeValues(t *testing.T) {
	st := Defaults()
	st.Gyro.LooptimeUs = 50

	res := ValidateAndFix(st, fullBuild(), nil)
	if res.SettingsValid() {
		t.Fatalf("expected invalid settings for looptime 50")
	}
	if st.Gyro.LooptimeUs != 50 {
		t.Fatalf("the range check must not repair values")
	}

	st = Defaults()
	st.Battery[2].CellMinVoltage = 400
	st.Battery[2].CellWarningVoltage = 350
	if res := ValidateAndFix(st, fullBuild(), nil); res.SettingsValid() {
		t.Fatalf("expected invalid settings for inverted cell voltages")
	}

	st = Defaults()
	st.Rx.ChannelMap = [4]uint8{0, 0, 2, 3}
	if res := ValidateAndFix(st, fullBuild(), nil); res.SettingsValid() {
		t.Fatalf("expected invalid settings for duplicate channel map entries")
	}
}
