package model

import "time"

type BlacklistSource string

const (
	BlacklistManual       BlacklistSource = "manual"
	BlacklistAutoResponse BlacklistSource = "auto_response"
	BlacklistAutoBlock    BlacklistSource = "auto_block"
)

// BlacklistEntry excludes a recipient from every outbound send of a tenant.
// Either TelegramID or Username identifies the target.
type BlacklistEntry struct {
	ID         string
	TenantID   string
	TelegramID int64
	Username   string
	Source     BlacklistSource
	CreatedAt  time.Time
}

// StopTrigger is a phrase that, when found in a recipient's reply
// (case-insensitive substring), auto-blacklists the sender of that reply.
type StopTrigger struct {
	ID        string
	TenantID  string
	Phrase    string
	IsActive  bool
	HitsCount int
	CreatedAt time.Time
}
