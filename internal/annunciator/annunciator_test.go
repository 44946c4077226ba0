package annunciator

import (
	"io"
	"log/slog"
	"testing"

	"fccore/internal/events"
)

type stubSounder struct {
	beeps  []int
	alerts []string
}

func (s *stubSounder) Beep(count int) error {
	s.beeps = append(s.beeps, count)
	return nil
}

func (s *stubSounder) Alert(title, _ string) error {
	s.alerts = append(s.alerts, title)
	return nil
}

func newTestService(sounder Sounder) *Service {
	return NewService(nil, sounder, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBeepRequestPlaysSequence(t *testing.T) {
	sounder := &stubSounder{}
	svc := newTestService(sounder)

	svc.handle(events.Beep{Count: 2})

	if len(sounder.beeps) != 1 || sounder.beeps[0] != 2 {
		t.Fatalf("beeps = %v, want [2]", sounder.beeps)
	}
}

func TestBeepCountIsBounded(t *testing.T) {
	sounder := &stubSounder{}
	svc := newTestService(sounder)

	svc.handle(events.Beep{Count: 500})
	svc.handle(events.Beep{Count: 0})
	svc.handle(events.Beep{Count: -3})

	if len(sounder.beeps) != 1 || sounder.beeps[0] != maxBeepCount {
		t.Fatalf("beeps = %v, want [%d]", sounder.beeps, maxBeepCount)
	}
}

func TestInvalidConfigAlertsOncePerTransition(t *testing.T) {
	sounder := &stubSounder{}
	svc := newTestService(sounder)

	svc.handle(events.ConfigValidity{Valid: false, Invalid: []string{"motor_pwm_rate"}})
	svc.handle(events.ConfigValidity{Valid: false, Invalid: []string{"motor_pwm_rate"}})

	if len(sounder.alerts) != 1 {
		t.Fatalf("alerts = %v, want one", sounder.alerts)
	}
	if len(sounder.beeps) != 1 || sounder.beeps[0] != 3 {
		t.Fatalf("beeps = %v, want [3]", sounder.beeps)
	}

	// Recovery re-arms the alert.
	svc.handle(events.ConfigValidity{Valid: true})
	svc.handle(events.ConfigValidity{Valid: false})

	if len(sounder.alerts) != 2 {
		t.Fatalf("alerts after recovery = %v, want two", sounder.alerts)
	}
}

func TestStorageResetAlerts(t *testing.T) {
	sounder := &stubSounder{}
	svc := newTestService(sounder)

	svc.handle(events.StorageReset{Reason: "msp reset request"})

	if len(sounder.alerts) != 1 || sounder.alerts[0] != "Settings storage reset" {
		t.Fatalf("alerts = %v", sounder.alerts)
	}
}
