// Package lifeos implements the Life OS services: mood logs, timeline
// events, and habit tracking with streak counting.
//
// Everything here is owner-scoped bookkeeping over [memory.LifeStore]; the
// chat pipeline appends mood logs through the same store, so manual and
// automatic entries live in one list.
package lifeos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// Habit frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Service wraps [memory.LifeStore] with validation and streak bookkeeping.
type Service struct {
	store memory.LifeStore
	now   func() time.Time
}

// NewService creates a Life OS [Service].
func NewService(store memory.LifeStore) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ─────────────────────────────────────────────────────────────────────────────
// Mood logs
// ─────────────────────────────────────────────────────────────────────────────

// AddMoodLog stores a mood entry. A missing ID or Timestamp is filled in.
func (s *Service) AddMoodLog(ctx context.Context, log memory.MoodLog) (*memory.MoodLog, error) {
	if log.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: mood log requires an owner")
	}
	if log.Label == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: mood log requires a label")
	}
	if log.Score < 0 || log.Score > 100 {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: mood score %d out of range [0,100]", log.Score)
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = s.now()
	}
	if err := s.store.AddMoodLog(ctx, log); err != nil {
		return nil, fmt.Errorf("lifeos: add mood log: %w", err)
	}
	return &log, nil
}

// ListMoodLogs returns the owner's mood logs, newest first.
func (s *Service) ListMoodLogs(ctx context.Context, ownerID string) ([]memory.MoodLog, error) {
	logs, err := s.store.ListMoodLogs(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lifeos: list mood logs: %w", err)
	}
	return logs, nil
}

// DeleteMoodLog removes one entry; missing entries are not an error.
func (s *Service) DeleteMoodLog(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteMoodLog(ctx, ownerID, id); err != nil {
		return fmt.Errorf("lifeos: delete mood log: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Timeline events
// ─────────────────────────────────────────────────────────────────────────────

// AddTimelineEvent stores a timeline event. A missing ID or Timestamp is
// filled in.
func (s *Service) AddTimelineEvent(ctx context.Context, ev memory.TimelineEvent) (*memory.TimelineEvent, error) {
	if ev.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: timeline event requires an owner")
	}
	if ev.Title == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: timeline event requires a title")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	if err := s.store.AddTimelineEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("lifeos: add timeline event: %w", err)
	}
	return &ev, nil
}

// ListTimelineEvents returns the owner's events, newest first.
func (s *Service) ListTimelineEvents(ctx context.Context, ownerID string) ([]memory.TimelineEvent, error) {
	events, err := s.store.ListTimelineEvents(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lifeos: list timeline events: %w", err)
	}
	return events, nil
}

// DeleteTimelineEvent removes one event; missing events are not an error.
func (s *Service) DeleteTimelineEvent(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTimelineEvent(ctx, ownerID, id); err != nil {
		return fmt.Errorf("lifeos: delete timeline event: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Habits
// ─────────────────────────────────────────────────────────────────────────────

// CreateHabit stores a new habit with a zero streak.
func (s *Service) CreateHabit(ctx context.Context, h memory.Habit) (*memory.Habit, error) {
	if h.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: habit requires an owner")
	}
	if h.Name == "" {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: habit requires a name")
	}
	if h.Frequency != FrequencyDaily && h.Frequency != FrequencyWeekly {
		return nil, apperr.New(apperr.KindInvalid, "lifeos: unknown habit frequency %q", h.Frequency)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Streak = 0
	h.LastCheckIn = time.Time{}
	h.CreatedAt = s.now()
	if err := s.store.PutHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("lifeos: create habit: %w", err)
	}
	return &h, nil
}

// GetHabit retrieves a habit; missing or foreign habits are KindNotFound.
func (s *Service) GetHabit(ctx context.Context, ownerID, id string) (*memory.Habit, error) {
	h, err := s.store.GetHabit(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("lifeos: load habit: %w", err)
	}
	if h == nil {
		return nil, apperr.New(apperr.KindNotFound, "lifeos: habit %q not found", id)
	}
	return h, nil
}

// ListHabits returns the owner's habits, newest first.
func (s *Service) ListHabits(ctx context.Context, ownerID string) ([]memory.Habit, error) {
	habits, err := s.store.ListHabits(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lifeos: list habits: %w", err)
	}
	return habits, nil
}

// DeleteHabit removes a habit; missing habits are not an error.
func (s *Service) DeleteHabit(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteHabit(ctx, ownerID, id); err != nil {
		return fmt.Errorf("lifeos: delete habit: %w", err)
	}
	return nil
}

// CheckIn records a habit completion and updates the streak. Consecutive
// check-ins at the declared frequency extend the streak; a missed period
// resets it to 1; a second check-in within the same period changes nothing.
func (s *Service) CheckIn(ctx context.Context, ownerID, id string) (*memory.Habit, error) {
	h, err := s.GetHabit(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch periodsBetween(h.LastCheckIn, now, h.Frequency) {
	case 0:
		// Already checked in this period.
		return h, nil
	case 1:
		h.Streak++
	default:
		h.Streak = 1
	}
	h.LastCheckIn = now

	if err := s.store.PutHabit(ctx, *h); err != nil {
		return nil, fmt.Errorf("lifeos: update habit %q: %w", id, err)
	}
	return h, nil
}

// periodsBetween counts how many frequency periods lie between last and now.
// A zero last (never checked in) counts as a gap larger than one, so the
// streak starts at 1.
func periodsBetween(last, now time.Time, frequency string) int {
	if last.IsZero() {
		return 2
	}
	switch frequency {
	case FrequencyWeekly:
		// Compare the Mondays of the two ISO weeks. Arithmetic on
		// (year, week) pairs goes wrong across 53-week ISO years.
		lastMonday := startOfISOWeek(last.UTC())
		nowMonday := startOfISOWeek(now.UTC())
		return int(nowMonday.Sub(lastMonday) / (7 * 24 * time.Hour))
	default:
		lastDay := last.UTC().Truncate(24 * time.Hour)
		nowDay := now.UTC().Truncate(24 * time.Hour)
		return int(nowDay.Sub(lastDay) / (24 * time.Hour))
	}
}

// startOfISOWeek returns Monday 00:00 UTC of t's ISO week.
func startOfISOWeek(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}
