package fc

import (
	"context"
	"testing"

	"fccore/internal/box"
	"fccore/internal/eeprom"
	"fccore/internal/events"
	"fccore/internal/settings"
)

func TestSetProfileChangeDetection(t *testing.T) {
	c := newTestController(Deps{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	// The change verdict compares the raw requested slot before the
	// bounds reset, so an out-of-range request onto slot 0 still counts
	// as a change.
	steps := []struct {
		request     uint8
		wantChanged bool
		wantIndex   uint8
	}{
		{request: 1, wantChanged: true, wantIndex: 1},
		{request: 1, wantChanged: false, wantIndex: 1},
		{request: 255, wantChanged: true, wantIndex: 0},
		{request: 0, wantChanged: false, wantIndex: 0},
		{request: 3, wantChanged: true, wantIndex: 0},
	}
	for i, step := range steps {
		if got := c.SetProfile(step.request); got != step.wantChanged {
			t.Fatalf("step %d: request %d: expected changed=%v, got %v", i, step.request, step.wantChanged, got)
		}
		if got := c.ProfileIndex(); got != step.wantIndex {
			t.Fatalf("step %d: request %d: expected index %d, got %d", i, step.request, step.wantIndex, got)
		}
	}
}

func TestSetBatteryProfileIndependentOfTuning(t *testing.T) {
	cb := &captureBus{}
	c := newTestController(Deps{Bus: cb})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !c.SetBatteryProfile(2) {
		t.Fatalf("expected battery profile change")
	}
	if got := c.BatteryProfileIndex(); got != 2 {
		t.Fatalf("expected battery profile 2, got %d", got)
	}
	if got := c.ProfileIndex(); got != 0 {
		t.Fatalf("expected tuning profile untouched, got %d", got)
	}

	msg, ok := cb.lastOf(events.TopicProfileChanged)
	if !ok {
		t.Fatalf("expected profile changed event")
	}
	change := msg.(events.ProfileChanged)
	if change.Category != events.ProfileCategoryBattery || change.Index != 2 || !change.Changed {
		t.Fatalf("unexpected profile event %+v", change)
	}

	if c.SetBatteryProfile(3) != true {
		t.Fatalf("expected out-of-range battery request to count as change")
	}
	if got := c.BatteryProfileIndex(); got != 0 {
		t.Fatalf("expected out-of-range battery request reset to 0, got %d", got)
	}
}

func TestSetProfileAndPersistSkipsWriteWhenUnchanged(t *testing.T) {
	m := &countingMedium{MemMedium: eeprom.NewMemMedium(eeprom.DefaultSize)}
	cb := &captureBus{}
	c := newTestController(Deps{Medium: m, Bus: cb})

	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Same slot: no write, still a confirmation beep for slot 1.
	if err := c.SetProfileAndPersist(ctx, 0); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if m.stores != 0 {
		t.Fatalf("expected no write for unchanged profile, got %d", m.stores)
	}
	msg, ok := cb.lastOf(events.TopicBeep)
	if !ok {
		t.Fatalf("expected beep even when unchanged")
	}
	if beep := msg.(events.Beep); beep.Count != 1 {
		t.Fatalf("expected 1 beep for slot 0, got %d", beep.Count)
	}

	if err := c.SetProfileAndPersist(ctx, 2); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if m.stores != 1 {
		t.Fatalf("expected one write for changed profile, got %d", m.stores)
	}
	if got := c.ProfileIndex(); got != 2 {
		t.Fatalf("expected profile 2, got %d", got)
	}
	msg, _ = cb.lastOf(events.TopicBeep)
	if beep := msg.(events.Beep); beep.Count != 3 {
		t.Fatalf("expected 3 beeps for slot 2, got %d", beep.Count)
	}

	// The selection must survive a cold start on the same medium.
	c2 := newTestController(Deps{Medium: m})
	if err := c2.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c2.ProfileIndex(); got != 2 {
		t.Fatalf("expected persisted profile 2, got %d", got)
	}
}

func TestSetProfileAndPersistOutOfRangeStillWrites(t *testing.T) {
	m := &countingMedium{MemMedium: eeprom.NewMemMedium(eeprom.DefaultSize)}
	cb := &captureBus{}
	c := newTestController(Deps{Medium: m, Bus: cb})

	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Request 200 from slot 0: resolves back to slot 0 but counts as a
	// change, so the write happens and the beep names the resolved slot.
	if err := c.SetProfileAndPersist(ctx, 200); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if m.stores != 1 {
		t.Fatalf("expected a write for the out-of-range request, got %d", m.stores)
	}
	if got := c.ProfileIndex(); got != 0 {
		t.Fatalf("expected resolved profile 0, got %d", got)
	}
	msg, _ := cb.lastOf(events.TopicBeep)
	if beep := msg.(events.Beep); beep.Count != 1 {
		t.Fatalf("expected 1 beep for resolved slot 0, got %d", beep.Count)
	}
}

func TestCalibrationWritesThroughSilently(t *testing.T) {
	m := &countingMedium{MemMedium: eeprom.NewMemMedium(eeprom.DefaultSize)}
	cb := &captureBus{}
	c := newTestController(Deps{Medium: m, Bus: cb})

	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := c.SetGyroCalibration(ctx, [3]int16{12, -7, 3}); err != nil {
		t.Fatalf("gyro calibration: %v", err)
	}
	if err := c.SetAccCalibration(ctx, [3]int16{-2, 5, 9}); err != nil {
		t.Fatalf("acc calibration: %v", err)
	}
	if err := c.SetGravityCalibration(ctx, 981.2); err != nil {
		t.Fatalf("gravity calibration: %v", err)
	}

	if m.stores != 3 {
		t.Fatalf("expected every calibration written through, got %d writes", m.stores)
	}
	if got := cb.countTopic(events.TopicBeep); got != 0 {
		t.Fatalf("calibration must not beep, got %d beep events", got)
	}

	raw, _ := m.Load()
	st, err := settings.Decode(raw)
	if err != nil {
		t.Fatalf("decode persisted blob: %v", err)
	}
	if st.Gyro.ZeroCal != [3]int16{12, -7, 3} {
		t.Fatalf("expected gyro zero persisted, got %v", st.Gyro.ZeroCal)
	}
	if st.Acc.Zero != [3]int16{-2, 5, 9} {
		t.Fatalf("expected acc zero persisted, got %v", st.Acc.Zero)
	}
	if st.Gyro.GravityCMSS != float32(981.2) {
		t.Fatalf("expected gravity persisted, got %v", st.Gyro.GravityCMSS)
	}
}

func TestSetModeRangeValidation(t *testing.T) {
	subs := &recordingSubsystems{}
	c := newTestController(Deps{Subsystems: subs})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	subs.calls = nil

	if err := c.SetModeRange(-1, 1, 0, 10, 20); err == nil {
		t.Fatalf("expected error for negative slot")
	}
	if err := c.SetModeRange(settings.MaxModeActivationConditions, 1, 0, 10, 20); err == nil {
		t.Fatalf("expected error for slot past table end")
	}
	if err := c.SetModeRange(0, box.PermanentIDNone, 0, 10, 20); err == nil {
		t.Fatalf("expected error for unassigned permanent id")
	}
	if err := c.SetModeRange(0, 200, 0, 10, 20); err == nil {
		t.Fatalf("expected error for unknown permanent id")
	}
	if len(subs.calls) != 0 {
		t.Fatalf("rejected ranges must not touch mode flags, got %v", subs.calls)
	}

	if err := c.SetModeRange(3, 5, 1, 32, 44); err != nil {
		t.Fatalf("set mode range: %v", err)
	}
	want := settings.ModeActivationCondition{
		PermanentID:     5,
		AuxChannelIndex: 1,
		RangeStartStep:  32,
		RangeEndStep:    44,
	}
	if got := c.ModeRanges()[3]; got != want {
		t.Fatalf("expected condition %+v, got %+v", want, got)
	}
	if len(subs.calls) != 1 || subs.calls[0] != "mode-flags" {
		t.Fatalf("expected mode flag refresh after install, got %v", subs.calls)
	}
}

func TestCraftNameTruncatesToStoredWidth(t *testing.T) {
	c := newTestController(Deps{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	c.SetCraftName("LONG NAME OVER SIXTEEN BYTES")
	if got := c.CraftName(); got != "LONG NAME OVER S" {
		t.Fatalf("expected truncated name, got %q", got)
	}

	c.SetCraftName("Bench")
	if got := c.CraftName(); got != "Bench" {
		t.Fatalf("expected short name round trip, got %q", got)
	}
}
