//go:build !integration

package sched_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	infraredis "telegram-fleet/internal/infra/redis"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Transaction manager passthrough ----

type fakeTxManager struct{}

var _ repository.TransactionManager = (*fakeTxManager)(nil)

func (fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- In-memory repositories ----

type memCampaignRepo struct {
	mu        sync.Mutex
	Campaigns map[string]*model.Campaign
}

var _ repository.CampaignRepository = (*memCampaignRepo)(nil)

func newMemCampaignRepo(cs ...*model.Campaign) *memCampaignRepo {
	m := &memCampaignRepo{Campaigns: map[string]*model.Campaign{}}
	for _, c := range cs {
		m.Campaigns[c.ID] = c
	}
	return m
}

func (m *memCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.Campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCampaignRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Campaign
	for _, c := range m.Campaigns {
		if c.IsActive() {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCampaignRepo) PauseAllRunning(ctx context.Context, tx repository.Tx, tenantID, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Campaigns {
		if c.TenantID == tenantID && c.Status == model.CampaignStatusRunning {
			c.Status = model.CampaignStatusPaused
			c.StatusReason = reason
			n++
		}
	}
	return n, nil
}

type memAudienceRepo struct {
	mu      sync.Mutex
	Members []*model.AudienceMember
}

var _ repository.AudienceRepository = (*memAudienceRepo)(nil)

func (m *memAudienceRepo) FindSource(ctx context.Context, tx repository.Tx, id string) (*model.AudienceSource, error) {
	return &model.AudienceSource{ID: id}, nil
}

func (m *memAudienceRepo) SaveSource(ctx context.Context, tx repository.Tx, s *model.AudienceSource) error {
	return nil
}

func (m *memAudienceRepo) FetchUnsentBatch(ctx context.Context, tx repository.Tx, audienceID string, limit int) ([]*model.AudienceMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AudienceMember
	for _, mem := range m.Members {
		if mem.AudienceID == audienceID && !mem.Sent {
			out = append(out, mem)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memAudienceRepo) CountUnsent(ctx context.Context, tx repository.Tx, audienceID string) (int, error) {
	batch, _ := m.FetchUnsentBatch(ctx, tx, audienceID, 1<<30)
	return len(batch), nil
}

func (m *memAudienceRepo) CountTotal(ctx context.Context, tx repository.Tx, audienceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mem := range m.Members {
		if mem.AudienceID == audienceID {
			n++
		}
	}
	return n, nil
}

func (m *memAudienceRepo) MarkSent(ctx context.Context, tx repository.Tx, memberID, failReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.Members {
		if mem.ID == memberID {
			if mem.Sent {
				return domain.ErrAlreadyExists
			}
			mem.Sent = true
			now := time.Now().UTC()
			mem.SentAt = &now
			mem.FailReason = failReason
			return nil
		}
	}
	return domain.ErrNotFound
}

type memAccountRepo struct {
	mu       sync.Mutex
	Accounts map[string]*model.Account
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func newMemAccountRepo(as ...*model.Account) *memAccountRepo {
	m := &memAccountRepo{Accounts: map[string]*model.Account{}}
	for _, a := range as {
		m.Accounts[a.ID] = a
	}
	return m
}

func (m *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Accounts[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) FindByPhone(ctx context.Context, tx repository.Tx, tenantID, phone string) (*model.Account, error) {
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

func (m *memAccountRepo) ListByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Account, error) {
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

func (m *memAccountRepo) ListByFolder(ctx context.Context, tx repository.Tx, tenantID, folder string) ([]*model.Account, error) {
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

func (m *memAccountRepo) ListByTenant(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Account, error) {
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

func (m *memAccountRepo) ResetDaily(ctx context.Context, tx repository.Tx, tenantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.Accounts {
		if a.TenantID == tenantID && (a.DailySent != 0 || a.DailyErrors != 0) {
			a.DailySent = 0
			a.DailyErrors = 0
			n++
		}
	}
	return n, nil
}

type memBlacklistRepo struct {
	mu      sync.Mutex
	Entries []*model.BlacklistEntry
}

var _ repository.BlacklistRepository = (*memBlacklistRepo)(nil)

func (m *memBlacklistRepo) IsBlacklisted(ctx context.Context, tx repository.Tx, tenantID string, telegramID int64, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.TenantID != tenantID {
			continue
		}
		if (telegramID != 0 && e.TelegramID == telegramID) || (username != "" && e.Username == username) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBlacklistRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.BlacklistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return nil
}

type memMailAuditRepo struct {
	mu      sync.Mutex
	Entries map[int64]*model.MailingCacheEntry
}

var _ repository.MailingCacheRepository = (*memMailAuditRepo)(nil)

func newMemMailAuditRepo() *memMailAuditRepo {
	return &memMailAuditRepo{Entries: map[int64]*model.MailingCacheEntry{}}
}

func (m *memMailAuditRepo) Get(ctx context.Context, tx repository.Tx, tenantID string, telegramID int64) (*model.MailingCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Entries[telegramID]; ok && e.TenantID == tenantID {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memMailAuditRepo) Put(ctx context.Context, tx repository.Tx, e *model.MailingCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries[e.TelegramID] = &cp
	return nil
}

type memSettingsRepo struct {
	mu       sync.Mutex
	Settings map[string]*model.TenantSettings
}

var _ repository.SettingsRepository = (*memSettingsRepo)(nil)

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{Settings: map[string]*model.TenantSettings{}}
}

func (m *memSettingsRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.TenantSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Settings[tenantID]; ok {
		cp := *s
		return &cp, nil
	}
	s := model.DefaultTenantSettings(tenantID)
	s.QuietHoursStart, s.QuietHoursEnd = 0, 0 // tests run at arbitrary hours
	return s, nil
}

func (m *memSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.TenantSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Settings[s.TenantID] = &cp
	return nil
}

func (m *memSettingsRepo) ListTenantIDs(ctx context.Context, tx repository.Tx) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.Settings {
		out = append(out, id)
	}
	return out, nil
}

type memPanicFlagRepo struct {
	mu    sync.Mutex
	Flags map[string]*model.PanicFlag
}

var _ repository.PanicFlagRepository = (*memPanicFlagRepo)(nil)

func newMemPanicFlagRepo() *memPanicFlagRepo {
	return &memPanicFlagRepo{Flags: map[string]*model.PanicFlag{}}
}

func (m *memPanicFlagRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.PanicFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.Flags[tenantID]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memPanicFlagRepo) Save(ctx context.Context, tx repository.Tx, f *model.PanicFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.Flags[f.TenantID] = &cp
	return nil
}

type memStatsRepo struct {
	mu       sync.Mutex
	Outcomes []repository.SendOutcome
}

var _ repository.StatsRepository = (*memStatsRepo)(nil)

func (m *memStatsRepo) IncrHourly(ctx context.Context, tx repository.Tx, tenantID string, at time.Time, outcome repository.SendOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
	return nil
}

func (m *memStatsRepo) GetBucket(ctx context.Context, tx repository.Tx, tenantID string, day time.Weekday, hour int) (*model.HourlyStatsBucket, error) {
	return &model.HourlyStatsBucket{TenantID: tenantID, DayOfWeek: day, Hour: hour}, nil
}

type memErrorLogRepo struct {
	mu   sync.Mutex
	Logs []*model.ErrorLog
}

var _ repository.ErrorLogRepository = (*memErrorLogRepo)(nil)

func (m *memErrorLogRepo) Save(ctx context.Context, tx repository.Tx, e *model.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, e)
	return nil
}

type memWarmupRepo struct {
	mu       sync.Mutex
	Progress map[string]*model.WarmupProgress
}

var _ repository.WarmupRepository = (*memWarmupRepo)(nil)

func newMemWarmupRepo(ps ...*model.WarmupProgress) *memWarmupRepo {
	m := &memWarmupRepo{Progress: map[string]*model.WarmupProgress{}}
	for _, p := range ps {
		m.Progress[p.ID] = p
	}
	return m
}

func (m *memWarmupRepo) Save(ctx context.Context, tx repository.Tx, w *model.WarmupProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.Progress[w.ID] = &cp
	return nil
}

func (m *memWarmupRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.WarmupProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Progress {
		if p.AccountID == accountID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memWarmupRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.WarmupProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.WarmupProgress
	for _, p := range m.Progress {
		if p.Status == model.WarmupProgressActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memFactoryRepo struct {
	mu    sync.Mutex
	Tasks map[string]*model.FactoryTask
}

var _ repository.FactoryTaskRepository = (*memFactoryRepo)(nil)

func newMemFactoryRepo(ts ...*model.FactoryTask) *memFactoryRepo {
	m := &memFactoryRepo{Tasks: map[string]*model.FactoryTask{}}
	for _, t := range ts {
		m.Tasks[t.ID] = t
	}
	return m
}

func (m *memFactoryRepo) Save(ctx context.Context, tx repository.Tx, t *model.FactoryTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Tasks[t.ID] = &cp
	return nil
}

func (m *memFactoryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.FactoryTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memFactoryRepo) ListRunnable(ctx context.Context, tx repository.Tx) ([]*model.FactoryTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.FactoryTask
	for _, t := range m.Tasks {
		if (t.Status == model.FactoryTaskPending || t.Status == model.FactoryTaskRunning) && !t.Exhausted() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memAuthRepo struct {
	mu    sync.Mutex
	Tasks map[string]*model.AuthTask
}

var _ repository.AuthTaskRepository = (*memAuthRepo)(nil)

func newMemAuthRepo(ts ...*model.AuthTask) *memAuthRepo {
	m := &memAuthRepo{Tasks: map[string]*model.AuthTask{}}
	for _, t := range ts {
		m.Tasks[t.ID] = t
	}
	return m
}

func (m *memAuthRepo) Save(ctx context.Context, tx repository.Tx, t *model.AuthTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Tasks[t.ID] = &cp
	return nil
}

func (m *memAuthRepo) ListActionable(ctx context.Context, tx repository.Tx) ([]*model.AuthTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuthTask
	for _, t := range m.Tasks {
		switch t.Status {
		case model.AuthTaskPending, model.AuthTaskCodeSent, model.AuthTaskCodeReceived:
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memScheduleRepo struct {
	mu        sync.Mutex
	Items     map[string]*model.ScheduledItem
	Templates map[string]*model.ContentTemplate
}

var _ repository.ScheduleRepository = (*memScheduleRepo)(nil)

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{Items: map[string]*model.ScheduledItem{}, Templates: map[string]*model.ContentTemplate{}}
}

func (m *memScheduleRepo) Save(ctx context.Context, tx repository.Tx, s *model.ScheduledItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Items[s.ID] = &cp
	return nil
}

func (m *memScheduleRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.ScheduledItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ScheduledItem
	for _, s := range m.Items {
		if s.Status == model.SchedulePending && !s.ScheduledAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) SaveTemplate(ctx context.Context, tx repository.Tx, t *model.ContentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Templates[t.ID] = &cp
	return nil
}

func (m *memScheduleRepo) ListActiveTemplates(ctx context.Context, tx repository.Tx) ([]*model.ContentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ContentTemplate
	for _, t := range m.Templates {
		if t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memHerderRepo struct {
	mu          sync.Mutex
	Assignments map[string]*model.HerderAssignment
	Counters    map[string]*model.HerderDailyCounter
}

var _ repository.HerderRepository = (*memHerderRepo)(nil)

func newMemHerderRepo(as ...*model.HerderAssignment) *memHerderRepo {
	m := &memHerderRepo{Assignments: map[string]*model.HerderAssignment{}, Counters: map[string]*model.HerderDailyCounter{}}
	for _, a := range as {
		m.Assignments[a.ID] = a
	}
	return m
}

func counterKey(assignmentID, accountID, day string) string {
	return assignmentID + "|" + accountID + "|" + day
}

func (m *memHerderRepo) Save(ctx context.Context, tx repository.Tx, a *model.HerderAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Assignments[a.ID] = &cp
	return nil
}

func (m *memHerderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.HerderAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memHerderRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.HerderAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.HerderAssignment
	for _, a := range m.Assignments {
		if a.Status == model.AssignmentActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memHerderRepo) ListAutoResumable(ctx context.Context, tx repository.Tx) ([]*model.HerderAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var out []*model.HerderAssignment
	for _, a := range m.Assignments {
		if a.Status == model.AssignmentPaused && a.AutoResumeAt != nil && !a.AutoResumeAt.After(now) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memHerderRepo) GetDailyCounter(ctx context.Context, tx repository.Tx, assignmentID, accountID, day string) (*model.HerderDailyCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Counters[counterKey(assignmentID, accountID, day)]; ok {
		cp := *c
		return &cp, nil
	}
	return &model.HerderDailyCounter{AssignmentID: assignmentID, AccountID: accountID, Day: day}, nil
}

func (m *memHerderRepo) IncrDailyCounter(ctx context.Context, tx repository.Tx, assignmentID, accountID, day string, comment bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := counterKey(assignmentID, accountID, day)
	c, ok := m.Counters[key]
	if !ok {
		c = &model.HerderDailyCounter{AssignmentID: assignmentID, AccountID: accountID, Day: day}
		m.Counters[key] = c
	}
	c.Actions++
	if comment {
		c.Comments++
	}
	return nil
}

func (m *memHerderRepo) SumCommentsForDay(ctx context.Context, tx repository.Tx, assignmentID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, c := range m.Counters {
		if c.AssignmentID == assignmentID && c.Day == day {
			sum += c.Comments
		}
	}
	return sum, nil
}

// ---- Fake session manager ----

// fakeSession scripts the Telegram facade with function fields; unset calls
// succeed and are recorded.
type fakeSession struct {
	accountID string
	mgr       *fakeSessionManager

	SendMessageFunc func(ctx context.Context, to adapter.SendTarget, text string) error
	PostsFunc       func(channel string) ([]model.ChannelPost, error)
	ReactionFunc    func(channel string, msgID int, emoji string) error
	CommentFunc     func(channel string, msgID int, text string) error
}

var _ adapter.Session = (*fakeSession)(nil)

func (s *fakeSession) AccountID() string { return s.accountID }

func (s *fakeSession) SendMessage(ctx context.Context, to adapter.SendTarget, text string, typingDelay time.Duration) error {
	s.mgr.record("send", s.accountID, text)
	if s.SendMessageFunc != nil {
		return s.SendMessageFunc(ctx, to, text)
	}
	return nil
}

func (s *fakeSession) JoinChannel(ctx context.Context, channel string) error {
	s.mgr.record("join", s.accountID, channel)
	return nil
}

func (s *fakeSession) GetChannelPosts(ctx context.Context, channel string, limit int) ([]model.ChannelPost, error) {
	s.mgr.record("posts", s.accountID, channel)
	if s.PostsFunc != nil {
		return s.PostsFunc(channel)
	}
	return []model.ChannelPost{{MsgID: 1, Text: "post", Views: 100}}, nil
}

func (s *fakeSession) GetChannelParticipants(ctx context.Context, channel string, limit, offset int) ([]adapter.SendTarget, error) {
	return nil, nil
}

func (s *fakeSession) SendReaction(ctx context.Context, channel string, msgID int, emoji string) error {
	s.mgr.record("react", s.accountID, emoji)
	if s.ReactionFunc != nil {
		return s.ReactionFunc(channel, msgID, emoji)
	}
	return nil
}

func (s *fakeSession) SendComment(ctx context.Context, channel string, msgID int, text string) error {
	s.mgr.record("comment", s.accountID, text)
	if s.CommentFunc != nil {
		return s.CommentFunc(channel, msgID, text)
	}
	return nil
}

func (s *fakeSession) PublishToChannel(ctx context.Context, channel, text string) error {
	s.mgr.record("publish", s.accountID, channel+"|"+text)
	return nil
}

func (s *fakeSession) MarkRead(ctx context.Context, channel string, maxID int) error {
	s.mgr.record("read", s.accountID, channel)
	return nil
}

func (s *fakeSession) Me(ctx context.Context) (*adapter.AuthorizedUser, error) {
	return &adapter.AuthorizedUser{TelegramID: 1, Username: "me"}, nil
}

type sessionCall struct {
	Op, AccountID, Arg string
}

type fakeSessionManager struct {
	mu       sync.Mutex
	Sessions map[string]*fakeSession
	Calls    []sessionCall

	AcquireErr  map[string]error
	StartAuthFn func(accountID, phone string) (string, error)
	CompleteFn  func(accountID, code, codeHash, password string) (*adapter.AuthorizedUser, error)
}

var _ adapter.SessionManager = (*fakeSessionManager)(nil)

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{Sessions: map[string]*fakeSession{}, AcquireErr: map[string]error{}}
}

func (m *fakeSessionManager) record(op, accountID, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, sessionCall{Op: op, AccountID: accountID, Arg: arg})
}

func (m *fakeSessionManager) calls(op string) []sessionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sessionCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *fakeSessionManager) session(accountID string) *fakeSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[accountID]
	if !ok {
		s = &fakeSession{accountID: accountID, mgr: m}
		m.Sessions[accountID] = s
	}
	return s
}

func (m *fakeSessionManager) Acquire(ctx context.Context, accountID, phone, proxy string) (adapter.Session, error) {
	if err := m.AcquireErr[accountID]; err != nil {
		return nil, err
	}
	return m.session(accountID), nil
}

func (m *fakeSessionManager) Release(s adapter.Session) {}

func (m *fakeSessionManager) StartAuth(ctx context.Context, accountID, phone, proxy string) (string, error) {
	if m.StartAuthFn != nil {
		return m.StartAuthFn(accountID, phone)
	}
	return "hash", nil
}

func (m *fakeSessionManager) CompleteAuth(ctx context.Context, accountID, code, codeHash, password string) (*adapter.AuthorizedUser, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(accountID, code, codeHash, password)
	}
	return &adapter.AuthorizedUser{TelegramID: 1, Username: "fresh", FirstName: "Иван"}, nil
}

func (m *fakeSessionManager) OnIncoming(fn func(ctx context.Context, msg adapter.IncomingMessage)) {}

func (m *fakeSessionManager) CloseAll() {}

// ---- Fake adapters ----

type fakeNotifier struct {
	mu       sync.Mutex
	Messages []string
}

var _ adapter.Notifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) Notify(ctx context.Context, tenantID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, message)
}

type fakeAI struct {
	GenerateFunc func(ctx context.Context, p adapter.GenerateParams) (string, error)
	RewriteFunc  func(ctx context.Context, text string) (string, error)
}

var _ adapter.AIServiceAdapter = (*fakeAI)(nil)

func (a *fakeAI) Generate(ctx context.Context, p adapter.GenerateParams) (string, error) {
	if a.GenerateFunc != nil {
		return a.GenerateFunc(ctx, p)
	}
	return "", nil
}

func (a *fakeAI) Rewrite(ctx context.Context, text string) (string, error) {
	if a.RewriteFunc != nil {
		return a.RewriteFunc(ctx, text)
	}
	return text, nil
}

type fakeSMS struct {
	BalanceVal    float64
	Codes         map[string]string
	Confirmed     []string
	Cancelled     []string
	PolledTimeout time.Duration
	rented        int
}

var _ adapter.SMSVendorAdapter = (*fakeSMS)(nil)

func (s *fakeSMS) Balance(ctx context.Context) (float64, error) { return s.BalanceVal, nil }

func (s *fakeSMS) RentNumber(ctx context.Context, service, country string) (*adapter.RentedNumber, error) {
	s.rented++
	return &adapter.RentedNumber{Number: "+79000000001", TZID: "tz1"}, nil
}

func (s *fakeSMS) PollCode(ctx context.Context, tzid string, timeout time.Duration) (string, error) {
	s.PolledTimeout = timeout
	if code, ok := s.Codes[tzid]; ok {
		return code, nil
	}
	return "", domain.ErrNotFound
}

func (s *fakeSMS) Confirm(ctx context.Context, tzid string) error {
	s.Confirmed = append(s.Confirmed, tzid)
	return nil
}

func (s *fakeSMS) Cancel(ctx context.Context, tzid string) error {
	s.Cancelled = append(s.Cancelled, tzid)
	return nil
}

// fakeRedisClient backs the rate limiter with in-process counters.
type fakeRedisClient struct {
	mu       sync.Mutex
	Counters map[string]int64
}

var _ infraredis.RedisClient = (*fakeRedisClient)(nil)

func newFakeRedisClient() *fakeRedisClient { return &fakeRedisClient{Counters: map[string]int64{}} }

func (c *fakeRedisClient) Ping(ctx context.Context) error { return nil }

func (c *fakeRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (c *fakeRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}

func (c *fakeRedisClient) Get(ctx context.Context, key string) (string, error) {
	return "", domain.ErrNotFound
}

func (c *fakeRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Counters[key]++
	return c.Counters[key], nil
}

func (c *fakeRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (c *fakeRedisClient) Del(ctx context.Context, keys ...string) error { return nil }

func (c *fakeRedisClient) Close() error { return nil }

type fakeLocker struct {
	mu   sync.Mutex
	Held map[string]bool
	Deny bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{Held: map[string]bool{}} }

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Deny || l.Held[key] {
		return "", domain.ErrConflict
	}
	l.Held[key] = true
	return "token", nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.Held, key)
	return nil
}
