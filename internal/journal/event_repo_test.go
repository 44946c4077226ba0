package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fccore/internal/events"
)

func openTestDB(t *testing.T) *EventRepo {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	db, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewEventRepo(db)
}

func TestEventRepoInsertAndListRecent(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)
	base := time.Now().UTC().Truncate(time.Millisecond)

	entries := []Entry{
		{Topic: events.TopicSettingsLoaded, Summary: "settings loaded from defaults", CreatedAt: base},
		{Topic: events.TopicSettingsSaved, Summary: "settings saved", Detail: "4096 bytes", CreatedAt: base.Add(time.Second)},
		{Topic: events.TopicStorageReset, Summary: "settings storage reset", Detail: "msp reset request", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.Topic, err)
		}
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Topic != events.TopicStorageReset {
		t.Errorf("newest entry topic = %q, want storage reset", got[0].Topic)
	}
	if got[1].Detail != "4096 bytes" {
		t.Errorf("second entry detail = %q", got[1].Detail)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("timestamp did not round-trip: %v", got[0].CreatedAt)
	}
}

func TestEventRepoCountByTopic(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := repo.Insert(ctx, Entry{Topic: events.TopicSettingsLoaded, Summary: "settings loaded from defaults", CreatedAt: now}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := repo.Insert(ctx, Entry{Topic: events.TopicSettingsSaved, Summary: "settings saved", CreatedAt: now}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	counts, err := repo.CountByTopic(ctx)
	if err != nil {
		t.Fatalf("count by topic: %v", err)
	}
	if counts[events.TopicSettingsLoaded] != 3 {
		t.Errorf("loaded count = %d, want 3", counts[events.TopicSettingsLoaded])
	}
	if counts[events.TopicSettingsSaved] != 1 {
		t.Errorf("saved count = %d, want 1", counts[events.TopicSettingsSaved])
	}
}

func TestEventRepoPrune(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)
	now := time.Now().UTC()

	old := Entry{Topic: events.TopicSettingsSaved, Summary: "settings saved", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := Entry{Topic: events.TopicSettingsSaved, Summary: "settings saved", CreatedAt: now}
	if err := repo.Insert(ctx, old); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := repo.Insert(ctx, fresh); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	removed, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("pruned %d rows, want 1", removed)
	}

	got, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(got))
	}
}
