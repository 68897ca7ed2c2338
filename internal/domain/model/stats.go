package model

import "time"

// HourlyStatsBucket aggregates send outcomes per (tenant, weekday, hour).
// Written by the campaign worker through feedback, read by the pacing engine.
// Increment-only within a tick; the pacing engine tolerates stale values.
type HourlyStatsBucket struct {
	TenantID   string
	DayOfWeek  time.Weekday
	Hour       int
	Sent       int
	Success    int
	Failed     int
	FloodWaits int
}

// FloodWaitRatio is flood_waits over sent; 0 when the bucket is empty so an
// unpopulated heatmap never skews pacing.
func (b *HourlyStatsBucket) FloodWaitRatio() float64 {
	if b == nil || b.Sent == 0 {
		return 0
	}
	return float64(b.FloodWaits) / float64(b.Sent)
}

// ErrorLog is one persisted non-trivial error.
type ErrorLog struct {
	ID        string
	TenantID  string
	TaskID    string
	AccountID string
	Kind      string
	Message   string
	CreatedAt time.Time
}
