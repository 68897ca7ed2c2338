package model

import "time"

type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// HerderDefaults are the tenant-wide knobs the herder worker consults when an
// assignment does not override them.
type HerderDefaults struct {
	DefaultStrategy       HerderStrategy
	MaxActionsPerAccount  int
	CoordinateDiscussions bool
	SeasonalBehavior      bool
	QuietModeThreshold    float64
	// BadPhrases is the tenant knowledge list; a generated comment containing
	// any of them is held back instead of posted.
	BadPhrases []string
}

// FactoryDefaults hold tenant-wide account factory settings.
type FactoryDefaults struct {
	DefaultWarmupDays   int
	AutoProxyAssignment bool
}

// TenantSettings is the tenant-scoped configuration consulted per tick.
// Timestamps everywhere are UTC; local time is derived from Timezone.
type TenantSettings struct {
	TenantID              string
	Timezone              string // IANA name, default Europe/Moscow
	QuietHoursStart       int    // local hour [0,24)
	QuietHoursEnd         int
	DailyLimitDefault     int
	DelayMinSec           int
	DelayMaxSec           int
	MailingCacheTTLDays   int
	AutoBlacklistEnabled  bool
	WarmupBeforeMailing   bool
	WarmupDurationMinutes int
	RiskTolerance         RiskTolerance
	LearningMode          bool
	AutoRecoveryMode      bool
	Herder                HerderDefaults
	Factory               FactoryDefaults
	LLMAPIKey             string
	LLMModel              string
	SMSAPIKey             string
	NotifyChatID          int64
}

// DefaultTenantSettings returns the documented defaults for a tenant.
func DefaultTenantSettings(tenantID string) *TenantSettings {
	return &TenantSettings{
		TenantID:            tenantID,
		Timezone:            "Europe/Moscow",
		QuietHoursStart:     23,
		QuietHoursEnd:       8,
		DailyLimitDefault:   30,
		DelayMinSec:         30,
		DelayMaxSec:         90,
		MailingCacheTTLDays: 30,
		RiskTolerance:       RiskMedium,
		Herder: HerderDefaults{
			DefaultStrategy:      StrategyObserver,
			MaxActionsPerAccount: 50,
		},
		Factory: FactoryDefaults{DefaultWarmupDays: 7},
	}
}

// Location resolves the tenant timezone, falling back to Europe/Moscow and
// finally UTC if the zone database misses it.
func (s *TenantSettings) Location() *time.Location {
	if loc, err := time.LoadLocation(s.Timezone); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation("Europe/Moscow"); err == nil {
		return loc
	}
	return time.UTC
}

// InQuietHours reports whether the tenant-local time of now falls inside the
// quiet window. start > end wraps midnight: [start, 24) ∪ [0, end).
func (s *TenantSettings) InQuietHours(now time.Time) bool {
	start, end := s.QuietHoursStart, s.QuietHoursEnd
	if start == end {
		return false
	}
	h := now.In(s.Location()).Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// LocalDay formats the tenant-local date of now, the key daily counters and
// warmup advances are guarded by.
func (s *TenantSettings) LocalDay(now time.Time) string {
	return now.In(s.Location()).Format("2006-01-02")
}

// PanicFlag is a per-tenant kill switch. When set, workers treat the tenant's
// rows as invisible; AutoResumeAt clears the flag on first check past it.
type PanicFlag struct {
	TenantID     string
	IsPaused     bool
	Reason       string
	AutoResumeAt *time.Time
	SetAt        time.Time
}
