package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/memoroo/memoroo/pkg/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mood logs
// ─────────────────────────────────────────────────────────────────────────────

// AddMoodLog implements [memory.LifeStore].
func (s *Store) AddMoodLog(ctx context.Context, log memory.MoodLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	const q = `
		INSERT INTO mood_logs (id, owner_id, label, score, note, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.pool.Exec(ctx, q, log.ID, log.OwnerID, log.Label, log.Score, log.Note, log.Timestamp); err != nil {
		return fmt.Errorf("life store: add mood log: %w", err)
	}
	return nil
}

// ListMoodLogs implements [memory.LifeStore]. Newest first.
func (s *Store) ListMoodLogs(ctx context.Context, ownerID string) ([]memory.MoodLog, error) {
	const q = `
		SELECT id, owner_id, label, score, note, timestamp
		FROM   mood_logs
		WHERE  owner_id = $1
		ORDER  BY timestamp DESC, id`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("life store: list mood logs: %w", err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.MoodLog, error) {
		var l memory.MoodLog
		if err := row.Scan(&l.ID, &l.OwnerID, &l.Label, &l.Score, &l.Note, &l.Timestamp); err != nil {
			return memory.MoodLog{}, err
		}
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("life store: scan rows: %w", err)
	}
	if logs == nil {
		logs = []memory.MoodLog{}
	}
	return logs, nil
}

// DeleteMoodLog implements [memory.LifeStore].
func (s *Store) DeleteMoodLog(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM mood_logs WHERE owner_id = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, q, ownerID, id); err != nil {
		return fmt.Errorf("life store: delete mood log: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Timeline events
// ─────────────────────────────────────────────────────────────────────────────

// AddTimelineEvent implements [memory.LifeStore].
func (s *Store) AddTimelineEvent(ctx context.Context, ev memory.TimelineEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	const q = `
		INSERT INTO timeline_events (id, owner_id, title, description, timestamp)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, q, ev.ID, ev.OwnerID, ev.Title, ev.Description, ev.Timestamp); err != nil {
		return fmt.Errorf("life store: add timeline event: %w", err)
	}
	return nil
}

// ListTimelineEvents implements [memory.LifeStore]. Newest first.
func (s *Store) ListTimelineEvents(ctx context.Context, ownerID string) ([]memory.TimelineEvent, error) {
	const q = `
		SELECT id, owner_id, title, description, timestamp
		FROM   timeline_events
		WHERE  owner_id = $1
		ORDER  BY timestamp DESC, id`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("life store: list timeline events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TimelineEvent, error) {
		var e memory.TimelineEvent
		if err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Timestamp); err != nil {
			return memory.TimelineEvent{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("life store: scan rows: %w", err)
	}
	if events == nil {
		events = []memory.TimelineEvent{}
	}
	return events, nil
}

// DeleteTimelineEvent implements [memory.LifeStore].
func (s *Store) DeleteTimelineEvent(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM timeline_events WHERE owner_id = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, q, ownerID, id); err != nil {
		return fmt.Errorf("life store: delete timeline event: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Habits
// ─────────────────────────────────────────────────────────────────────────────

// PutHabit implements [memory.LifeStore]. Upsert by (owner_id, id); created_at
// of an existing row is preserved.
func (s *Store) PutHabit(ctx context.Context, h memory.Habit) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	const q = `
		INSERT INTO habits (owner_id, id, name, frequency, streak, last_check_in, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, id) DO UPDATE SET
		    name           = EXCLUDED.name,
		    frequency      = EXCLUDED.frequency,
		    streak         = EXCLUDED.streak,
		    last_check_in  = EXCLUDED.last_check_in`

	var lastCheckIn any
	if !h.LastCheckIn.IsZero() {
		lastCheckIn = h.LastCheckIn
	}
	if _, err := s.pool.Exec(ctx, q, h.OwnerID, h.ID, h.Name, h.Frequency, h.Streak, lastCheckIn, h.CreatedAt); err != nil {
		return fmt.Errorf("life store: put habit: %w", err)
	}
	return nil
}

// GetHabit implements [memory.LifeStore]. Returns (nil, nil) when not found
// for owner.
func (s *Store) GetHabit(ctx context.Context, ownerID, id string) (*memory.Habit, error) {
	const q = `
		SELECT owner_id, id, name, frequency, streak, last_check_in, created_at
		FROM   habits
		WHERE  owner_id = $1 AND id = $2`

	rows, err := s.pool.Query(ctx, q, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("life store: get habit: %w", err)
	}
	habits, err := collectHabits(rows)
	if err != nil {
		return nil, fmt.Errorf("life store: get habit: %w", err)
	}
	if len(habits) == 0 {
		return nil, nil
	}
	return &habits[0], nil
}

// ListHabits implements [memory.LifeStore]. Newest first.
func (s *Store) ListHabits(ctx context.Context, ownerID string) ([]memory.Habit, error) {
	const q = `
		SELECT owner_id, id, name, frequency, streak, last_check_in, created_at
		FROM   habits
		WHERE  owner_id = $1
		ORDER  BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("life store: list habits: %w", err)
	}
	habits, err := collectHabits(rows)
	if err != nil {
		return nil, fmt.Errorf("life store: list habits: %w", err)
	}
	return habits, nil
}

// DeleteHabit implements [memory.LifeStore].
func (s *Store) DeleteHabit(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM habits WHERE owner_id = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, q, ownerID, id); err != nil {
		return fmt.Errorf("life store: delete habit: %w", err)
	}
	return nil
}

// collectHabits scans pgx rows into a non-nil slice of Habit values.
// last_check_in is nullable; NULL maps to the zero time.
func collectHabits(rows pgx.Rows) ([]memory.Habit, error) {
	habits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Habit, error) {
		var (
			h           memory.Habit
			lastCheckIn *time.Time
		)
		if err := row.Scan(&h.OwnerID, &h.ID, &h.Name, &h.Frequency, &h.Streak, &lastCheckIn, &h.CreatedAt); err != nil {
			return memory.Habit{}, err
		}
		if lastCheckIn != nil {
			h.LastCheckIn = *lastCheckIn
		}
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	if habits == nil {
		habits = []memory.Habit{}
	}
	return habits, nil
}
