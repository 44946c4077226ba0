// Package annunciator turns bus events into operator-audible feedback:
// confirmation beep sequences after saves and profile switches, and an
// alert when validation blocks arming. On a flight controller this drives
// a piezo; on the host it goes through the desktop notification stack.
package annunciator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gen2brain/beeep"

	"fccore/internal/bus"
	"fccore/internal/events"
)

// Sounder is the hardware end of the annunciator.
type Sounder interface {
	Beep(count int) error
	Alert(title, body string) error
}

// BeeepSounder plays through the host audio/notification stack.
type BeeepSounder struct{}

const beepGap = 120 * time.Millisecond

func (BeeepSounder) Beep(count int) error {
	for i := 0; i < count; i++ {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			return fmt.Errorf("beep %d of %d: %w", i+1, count, err)
		}
		if i+1 < count {
			time.Sleep(beepGap)
		}
	}

	return nil
}

func (BeeepSounder) Alert(title, body string) error {
	if err := beeep.Alert(title, body, ""); err != nil {
		return fmt.Errorf("alert: %w", err)
	}

	return nil
}

// maxBeepCount bounds a sequence so a bad payload cannot tie up the
// sounder for seconds.
const maxBeepCount = 8

// Service listens for beep requests and validity changes.
type Service struct {
	bus     bus.MessageBus
	sounder Sounder
	logger  *slog.Logger

	wasValid bool
	started  bool
}

func NewService(messageBus bus.MessageBus, sounder Sounder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default().With("component", "annunciator")
	}
	if sounder == nil {
		sounder = BeeepSounder{}
	}

	return &Service{
		bus:      messageBus,
		sounder:  sounder,
		logger:   logger,
		wasValid: true,
	}
}

var watchedTopics = []string{
	events.TopicBeep,
	events.TopicConfigValidity,
	events.TopicStorageReset,
}

func (s *Service) Start(ctx context.Context) {
	if s == nil || s.bus == nil {
		return
	}

	sub := s.bus.Subscribe(watchedTopics...)

	go func() {
		defer s.bus.Unsubscribe(sub, watchedTopics...)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				s.handle(raw)
			}
		}
	}()
}

func (s *Service) handle(raw any) {
	switch msg := raw.(type) {
	case events.Beep:
		s.play(msg.Count)

	case events.ConfigValidity:
		s.handleValidity(msg)

	case events.StorageReset:
		if err := s.sounder.Alert("Settings storage reset", msg.Reason); err != nil {
			s.logger.Warn("alert failed", "error", err)
		}
	}
}

func (s *Service) handleValidity(msg events.ConfigValidity) {
	// Alert once per transition, not on every load.
	if msg.Valid {
		s.wasValid = true
		return
	}
	if !s.wasValid {
		return
	}
	s.wasValid = false

	body := "Arming is blocked until the configuration is fixed."
	if len(msg.Invalid) > 0 {
		body = "Invalid settings: " + strings.Join(msg.Invalid, ", ")
	}
	if err := s.sounder.Alert("Configuration invalid", body); err != nil {
		s.logger.Warn("alert failed", "error", err)
	}
	s.play(3)
}

func (s *Service) play(count int) {
	if count <= 0 {
		return
	}
	if count > maxBeepCount {
		count = maxBeepCount
	}
	if err := s.sounder.Beep(count); err != nil {
		s.logger.Warn("beep failed", "count", count, "error", err)
	}
}
