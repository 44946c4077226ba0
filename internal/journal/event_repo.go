package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded lifecycle event.
type Entry struct {
	ID        int64
	Topic     string
	Summary   string
	Detail    string
	CreatedAt time.Time
}

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events(topic, summary, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, e.Topic, e.Summary, e.Detail, toUnixMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert journal event: %w", err)
	}

	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topic, summary, detail, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Topic, &e.Summary, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		e.CreatedAt = fromUnixMillis(ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal events: %w", err)
	}

	return entries, nil
}

// CountByTopic tallies recorded events per topic. Fallback-to-defaults
// loads show up here, which is what makes them observable.
func (r *EventRepo) CountByTopic(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT topic, COUNT(*) FROM events GROUP BY topic
	`)
	if err != nil {
		return nil, fmt.Errorf("count journal events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			topic string
			n     int
		)
		if err := rows.Scan(&topic, &n); err != nil {
			return nil, fmt.Errorf("scan journal count: %w", err)
		}
		counts[topic] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal counts: %w", err)
	}

	return counts, nil
}

// Prune deletes everything older than the cutoff and returns the number
// of rows removed.
func (r *EventRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM events WHERE created_at < ?
	`, toUnixMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune journal events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned journal events: %w", err)
	}

	return removed, nil
}

func toUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
