//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock AccountRepository ----

type MockAccountRepo struct {
	mu       sync.Mutex
	Accounts map[string]*model.Account
	Saves    int

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.Account) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{Accounts: map[string]*model.Account{}}
}

func (m *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	cp := *a
	m.Accounts[a.ID] = &cp
	return nil
}

func (m *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) FindByPhone(ctx context.Context, tx repository.Tx, tenantID, phone string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Accounts {
		if a.TenantID == tenantID && a.Phone == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) ListByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for _, id := range ids {
		if a, ok := m.Accounts[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAccountRepo) ListByFolder(ctx context.Context, tx repository.Tx, tenantID, folder string) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for _, a := range m.Accounts {
		if a.TenantID == tenantID && a.Folder == folder {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAccountRepo) ListByTenant(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for _, a := range m.Accounts {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAccountRepo) ResetDaily(ctx context.Context, tx repository.Tx, tenantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.Accounts {
		if a.TenantID == tenantID {
			a.DailySent = 0
			a.DailyErrors = 0
			n++
		}
	}
	return n, nil
}

// ---- Mock StatsRepository ----

type MockStatsRepo struct {
	mu       sync.Mutex
	Outcomes []repository.SendOutcome
	Bucket   *model.HourlyStatsBucket
}

var _ repository.StatsRepository = (*MockStatsRepo)(nil)

func (m *MockStatsRepo) IncrHourly(ctx context.Context, tx repository.Tx, tenantID string, at time.Time, outcome repository.SendOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
	return nil
}

func (m *MockStatsRepo) GetBucket(ctx context.Context, tx repository.Tx, tenantID string, day time.Weekday, hour int) (*model.HourlyStatsBucket, error) {
	if m.Bucket != nil {
		return m.Bucket, nil
	}
	return &model.HourlyStatsBucket{TenantID: tenantID, DayOfWeek: day, Hour: hour}, nil
}

// ---- Mock ErrorLogRepository ----

type MockErrorLogRepo struct {
	mu   sync.Mutex
	Logs []*model.ErrorLog
}

var _ repository.ErrorLogRepository = (*MockErrorLogRepo)(nil)

func (m *MockErrorLogRepo) Save(ctx context.Context, tx repository.Tx, e *model.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, e)
	return nil
}

// ---- Mock PanicFlagRepository ----

type MockPanicFlagRepo struct {
	mu    sync.Mutex
	Flags map[string]*model.PanicFlag

	GetFunc func(ctx context.Context, tx repository.Tx, tenantID string) (*model.PanicFlag, error)
}

var _ repository.PanicFlagRepository = (*MockPanicFlagRepo)(nil)

func NewMockPanicFlagRepo() *MockPanicFlagRepo {
	return &MockPanicFlagRepo{Flags: map[string]*model.PanicFlag{}}
}

func (m *MockPanicFlagRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.PanicFlag, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, tx, tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.Flags[tenantID]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockPanicFlagRepo) Save(ctx context.Context, tx repository.Tx, f *model.PanicFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.Flags[f.TenantID] = &cp
	return nil
}

// ---- Mock SettingsRepository ----

type MockSettingsRepo struct {
	mu       sync.Mutex
	Settings map[string]*model.TenantSettings
}

var _ repository.SettingsRepository = (*MockSettingsRepo)(nil)

func NewMockSettingsRepo() *MockSettingsRepo {
	return &MockSettingsRepo{Settings: map[string]*model.TenantSettings{}}
}

func (m *MockSettingsRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.TenantSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Settings[tenantID]; ok {
		cp := *s
		return &cp, nil
	}
	return model.DefaultTenantSettings(tenantID), nil
}

func (m *MockSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.TenantSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Settings[s.TenantID] = &cp
	return nil
}

func (m *MockSettingsRepo) ListTenantIDs(ctx context.Context, tx repository.Tx) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.Settings {
		out = append(out, id)
	}
	return out, nil
}

// ---- Mock StopTriggerRepository ----

type MockStopTriggerRepo struct {
	mu       sync.Mutex
	Triggers []*model.StopTrigger
	Hits     map[string]int
}

var _ repository.StopTriggerRepository = (*MockStopTriggerRepo)(nil)

func NewMockStopTriggerRepo(triggers ...*model.StopTrigger) *MockStopTriggerRepo {
	return &MockStopTriggerRepo{Triggers: triggers, Hits: map[string]int{}}
}

func (m *MockStopTriggerRepo) ListActive(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.StopTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.StopTrigger
	for _, t := range m.Triggers {
		if t.TenantID == tenantID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockStopTriggerRepo) IncrementHit(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Hits[id]++
	return nil
}

// ---- Mock BlacklistRepository ----

type MockBlacklistRepo struct {
	mu      sync.Mutex
	Entries []*model.BlacklistEntry
}

var _ repository.BlacklistRepository = (*MockBlacklistRepo)(nil)

func (m *MockBlacklistRepo) IsBlacklisted(ctx context.Context, tx repository.Tx, tenantID string, telegramID int64, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.TenantID != tenantID {
			continue
		}
		if telegramID != 0 && e.TelegramID == telegramID {
			return true, nil
		}
		if username != "" && e.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBlacklistRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.BlacklistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return nil
}

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	GenerateFunc func(ctx context.Context, p adapter.GenerateParams) (string, error)
	RewriteFunc  func(ctx context.Context, text string) (string, error)
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Generate(ctx context.Context, p adapter.GenerateParams) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, p)
	}
	return "", nil
}

func (m *MockAI) Rewrite(ctx context.Context, text string) (string, error) {
	if m.RewriteFunc != nil {
		return m.RewriteFunc(ctx, text)
	}
	return text, nil
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, tenantID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
}
