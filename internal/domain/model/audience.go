package model

import "time"

// AudienceSource is a parsed set of target users for campaigns.
type AudienceSource struct {
	ID        string
	TenantID  string
	Name      string
	Total     int
	Remaining int // total minus already-sent-to
	CreatedAt time.Time
}

// AudienceMember is one target user inside a source. Sent is the at-most-once
// idempotency mark per (campaign, user): once true the member is never
// retried, whatever the outcome was.
type AudienceMember struct {
	ID         string
	AudienceID string
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Sent       bool
	SentAt     *time.Time
	FailReason string
}

// DisplayName renders the member's human name for template substitution.
func (m *AudienceMember) DisplayName() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	case m.Username != "":
		return m.Username
	}
	return "друг"
}

// MailingCacheEntry suppresses re-sending to the same user across campaigns
// of one tenant while the TTL holds.
type MailingCacheEntry struct {
	TenantID   string
	TelegramID int64
	LastSentAt time.Time
	TTLDays    int
}

func (e *MailingCacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.LastSentAt) > time.Duration(e.TTLDays)*24*time.Hour
}
