package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type RepeatMode string

const (
	RepeatOnce   RepeatMode = "once"
	RepeatDaily  RepeatMode = "daily"
	RepeatWeekly RepeatMode = "weekly"
)

type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleError     ScheduleStatus = "error"
)

type ScheduledKind string

const (
	ScheduledKindMailing ScheduledKind = "mailing"
	ScheduledKindTask    ScheduledKind = "task"
	ScheduledKindContent ScheduledKind = "content"
)

// ScheduledItem is a deferred row the scheduler worker materializes once
// ScheduledAt <= now: a campaign to start, a generic task, or a content
// publish job. Payload carries the kind-specific fields.
type ScheduledItem struct {
	ID           string
	TenantID     string
	Kind         ScheduledKind
	Payload      map[string]string
	ScheduledAt  time.Time
	RepeatMode   RepeatMode
	Status       ScheduleStatus
	StatusReason string
	CreatedAt    time.Time
}

func NewScheduledItem(tenantID string, kind ScheduledKind, at time.Time, repeat RepeatMode, payload map[string]string) (*ScheduledItem, error) {
	if tenantID == "" || at.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if repeat == "" {
		repeat = RepeatOnce
	}
	return &ScheduledItem{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Kind:        kind,
		Payload:     payload,
		ScheduledAt: at.UTC(),
		RepeatMode:  repeat,
		Status:      SchedulePending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Period returns the re-arm interval for recurring items, zero for once.
func (s *ScheduledItem) Period() time.Duration {
	switch s.RepeatMode {
	case RepeatDaily:
		return 24 * time.Hour
	case RepeatWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ContentTemplate is a recurring channel post: fires when the tenant-local
// minute equals PublishTime on an allowed weekday.
type ContentTemplate struct {
	ID          string
	TenantID    string
	Channel     string
	Text        string
	PublishTime string // HH:MM in tenant timezone
	Weekdays    []time.Weekday
	AIRewrite   bool
	Active      bool
	LastFiredAt *time.Time
	CreatedAt   time.Time
}

// AllowsDay reports whether the template may fire on the given weekday.
// An empty allow-list means every day.
func (t *ContentTemplate) AllowsDay(d time.Weekday) bool {
	if len(t.Weekdays) == 0 {
		return true
	}
	for _, w := range t.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// FiredOn reports whether the template already fired during the given
// tenant-local minute, preventing duplicate publishes inside one minute.
func (t *ContentTemplate) FiredOn(now time.Time, loc *time.Location) bool {
	if t.LastFiredAt == nil {
		return false
	}
	return t.LastFiredAt.In(loc).Truncate(time.Minute).Equal(now.In(loc).Truncate(time.Minute))
}

// ParseScheduleTime accepts "HH:MM", "DD.MM.YYYY HH:MM" and "DD.MM HH:MM" in
// the tenant's location. A bare "HH:MM" means the next occurrence: today if
// still ahead, otherwise tomorrow.
func ParseScheduleTime(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	local := now.In(loc)

	if t, err := time.ParseInLocation("02.01.2006 15:04", s, loc); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("02.01 15:04", s, loc); err == nil {
		t = t.AddDate(local.Year(), 0, 0)
		if t.Before(local) {
			t = t.AddDate(1, 0, 0)
		}
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		at := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if !at.After(local) {
			at = at.AddDate(0, 0, 1)
		}
		return at.UTC(), nil
	}
	return time.Time{}, domain.ErrInvalidArgument
}
