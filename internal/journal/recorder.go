package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fccore/internal/bus"
	"fccore/internal/events"
)

// Recorder listens to lifecycle topics on the bus and writes each event
// through the writer queue.
type Recorder struct {
	bus    bus.MessageBus
	repo   *EventRepo
	writer *WriterQueue
	logger *slog.Logger
}

func NewRecorder(messageBus bus.MessageBus, repo *EventRepo, writer *WriterQueue, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default().With("component", "journal")
	}

	return &Recorder{
		bus:    messageBus,
		repo:   repo,
		writer: writer,
		logger: logger,
	}
}

var recordedTopics = []string{
	events.TopicSettingsLoaded,
	events.TopicSettingsSaved,
	events.TopicProfileChanged,
	events.TopicConfigValidity,
	events.TopicStorageReset,
}

func (r *Recorder) Start(ctx context.Context) {
	if r == nil || r.bus == nil {
		return
	}

	sub := r.bus.Subscribe(recordedTopics...)

	go func() {
		defer r.bus.Unsubscribe(sub, recordedTopics...)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				entry, ok := describe(raw)
				if !ok {
					continue
				}
				r.writer.Enqueue("journal insert", func(ctx context.Context) error {
					return r.repo.Insert(ctx, entry)
				})
			}
		}
	}()
}

// describe converts a bus payload into a journal entry. Unknown payloads
// are dropped.
func describe(raw any) (Entry, bool) {
	switch msg := raw.(type) {
	case events.SettingsLoaded:
		summary := "settings loaded"
		if msg.UsedDefaults {
			summary = "settings loaded from defaults"
		}
		return Entry{
			Topic:     events.TopicSettingsLoaded,
			Summary:   summary,
			Detail:    strings.Join(msg.Fixes, "; "),
			CreatedAt: stamp(msg.Timestamp),
		}, true

	case events.SettingsSaved:
		return Entry{
			Topic:     events.TopicSettingsSaved,
			Summary:   "settings saved",
			Detail:    fmt.Sprintf("%d bytes", msg.Bytes),
			CreatedAt: stamp(msg.Timestamp),
		}, true

	case events.ProfileChanged:
		summary := fmt.Sprintf("%s profile -> %d", msg.Category, msg.Index)
		if !msg.Changed {
			summary += " (unchanged)"
		}
		return Entry{
			Topic:     events.TopicProfileChanged,
			Summary:   summary,
			CreatedAt: stamp(msg.Timestamp),
		}, true

	case events.ConfigValidity:
		if msg.Valid {
			return Entry{
				Topic:     events.TopicConfigValidity,
				Summary:   "configuration valid",
				CreatedAt: stamp(msg.Timestamp),
			}, true
		}
		return Entry{
			Topic:     events.TopicConfigValidity,
			Summary:   "configuration invalid, arming blocked",
			Detail:    strings.Join(msg.Invalid, "; "),
			CreatedAt: stamp(msg.Timestamp),
		}, true

	case events.StorageReset:
		return Entry{
			Topic:     events.TopicStorageReset,
			Summary:   "settings storage reset",
			Detail:    msg.Reason,
			CreatedAt: stamp(msg.Timestamp),
		}, true

	default:
		return Entry{}, false
	}
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
