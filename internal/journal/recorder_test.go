package journal

import (
	"testing"
	"time"

	"fccore/internal/events"
)

func TestDescribeSettingsLoaded(t *testing.T) {
	entry, ok := describe(events.SettingsLoaded{
		UsedDefaults: true,
		Fixes:        []string{"motor pwm rate clamped", "acc notch disabled"},
		Timestamp:    time.Unix(1000, 0),
	})
	if !ok {
		t.Fatal("expected an entry")
	}
	if entry.Summary != "settings loaded from defaults" {
		t.Errorf("summary = %q", entry.Summary)
	}
	if entry.Detail != "motor pwm rate clamped; acc notch disabled" {
		t.Errorf("detail = %q", entry.Detail)
	}
	if !entry.CreatedAt.Equal(time.Unix(1000, 0)) {
		t.Errorf("timestamp not carried: %v", entry.CreatedAt)
	}
}

func TestDescribeValidity(t *testing.T) {
	entry, ok := describe(events.ConfigValidity{Valid: false, Invalid: []string{"accZero"}})
	if !ok {
		t.Fatal("expected an entry")
	}
	if entry.Summary != "configuration invalid, arming blocked" {
		t.Errorf("summary = %q", entry.Summary)
	}
	if entry.Detail != "accZero" {
		t.Errorf("detail = %q", entry.Detail)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("zero timestamp should be replaced with now")
	}

	entry, ok = describe(events.ConfigValidity{Valid: true})
	if !ok || entry.Summary != "configuration valid" {
		t.Errorf("valid summary = %q ok=%v", entry.Summary, ok)
	}
}

func TestDescribeProfileChanged(t *testing.T) {
	entry, ok := describe(events.ProfileChanged{
		Category: events.ProfileCategoryTuning,
		Index:    2,
		Changed:  true,
	})
	if !ok {
		t.Fatal("expected an entry")
	}
	if entry.Summary != "tuning profile -> 2" {
		t.Errorf("summary = %q", entry.Summary)
	}

	entry, _ = describe(events.ProfileChanged{Category: events.ProfileCategoryBattery, Index: 0})
	if entry.Summary != "battery profile -> 0 (unchanged)" {
		t.Errorf("unchanged summary = %q", entry.Summary)
	}
}

func TestDescribeDropsUnknownPayloads(t *testing.T) {
	if _, ok := describe(struct{ X int }{1}); ok {
		t.Fatal("unknown payload should be dropped")
	}
	if _, ok := describe(events.Beep{Count: 1}); ok {
		t.Fatal("beeps are not journaled")
	}
}
