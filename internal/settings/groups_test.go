package settings

import (
	"testing"

	"fccore/internal/box"
)

func TestParseChannelMap(t *testing.T) {
	cases := map[string][4]uint8{
		"AETR1234": {0, 1, 2, 3},
		"TAER1234": {1, 2, 0, 3},
		"RETA":     {3, 1, 0, 2},
	}
	for in, want := range cases {
		got, err := ParseChannelMap(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", in, want, got)
		}
	}

	for _, bad := range []string{"", "AET", "AETX", "AATR"} {
		if _, err := ParseChannelMap(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestStepToPWM(t *testing.T) {
	if got := StepToPWM(0); got != 900 {
		t.Fatalf("expected 900, got %d", got)
	}
	if got := StepToPWM(32); got != 1700 {
		t.Fatalf("expected 1700, got %d", got)
	}
	if got := StepToPWM(ModeStepMax); got != 2100 {
		t.Fatalf("expected 2100, got %d", got)
	}
}

func TestModeConditionsUsedBoxes(t *testing.T) {
	var m ModeActivationSettings
	m.Conditions[0] = ModeActivationCondition{PermanentID: 0, RangeStartStep: 28, RangeEndStep: 48} // ARM
	m.Conditions[1] = ModeActivationCondition{PermanentID: 1, RangeStartStep: 10, RangeEndStep: 10} // empty band
	m.Conditions[2] = ModeActivationCondition{PermanentID: 200, RangeStartStep: 0, RangeEndStep: 48}
	m.Conditions[3] = ModeActivationCondition{PermanentID: 27, RangeStartStep: 40, RangeEndStep: 48} // FAILSAFE

	mask := m.UsedBoxes()
	if !mask.Has(box.Arm) || !mask.Has(box.Failsafe) {
		t.Fatalf("expected ARM and FAILSAFE used, got %#x", uint64(mask))
	}
	if mask.Has(box.Angle) {
		t.Fatalf("empty band must not mark ANGLE used")
	}
	if mask != box.MaskOf(box.Arm, box.Failsafe) {
		t.Fatalf("unknown permanent IDs must be skipped, got %#x", uint64(mask))
	}
}

func TestCraftName(t *testing.T) {
	var s SystemSettings
	if s.Name() != "" {
		t.Fatalf("expected empty default name")
	}

	s.SetName("LongNameThatGetsCutOff")
	if s.Name() != "LongNameThatGets" {
		t.Fatalf("expected 16 byte truncation, got %q", s.Name())
	}

	s.SetName("kestrel")
	if s.Name() != "kestrel" {
		t.Fatalf("expected kestrel, got %q", s.Name())
	}
}
