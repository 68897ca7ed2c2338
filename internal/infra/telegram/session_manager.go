package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gotd/contrib/bg"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"telegram-fleet/internal/config"
	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.SessionManager = (*Manager)(nil)

// Manager keeps at most one connected MTProto client per account and
// serializes its use: a worker holds the lease from Acquire to Release while
// the connection itself stays up between leases.
type Manager struct {
	cfg *config.TelegramConfig
	log zerolog.Logger
	db  *bbolt.DB

	mu      sync.Mutex
	clients map[string]*managedClient

	hookMu sync.RWMutex
	hooks  []func(ctx context.Context, msg adapter.IncomingMessage)
}

type managedClient struct {
	accountID string
	phone     string
	client    *telegram.Client
	api       *tg.Client
	sender    *message.Sender
	stop      bg.StopFunc
	lease     chan struct{} // capacity 1; token present = free
}

func NewManager(cfg *config.TelegramConfig, logger *zerolog.Logger) (*Manager, error) {
	db, err := bbolt.Open(cfg.SessionPath, 0o600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &Manager{
		cfg:     cfg,
		log:     logger.With().Str("component", "session-manager").Logger(),
		db:      db,
		clients: map[string]*managedClient{},
	}, nil
}

// Acquire returns an exclusive lease on the account's client, connecting it
// first if needed. Blocks while another worker holds the lease; an
// unauthorized account fails with domain.ErrNotAuthorized.
func (m *Manager) Acquire(ctx context.Context, accountID, phone, proxyURL string) (adapter.Session, error) {
	mc, err := m.connect(ctx, accountID, phone, proxyURL)
	if err != nil {
		return nil, err
	}

	status, err := mc.client.Auth().Status(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if !status.Authorized {
		return nil, domain.ErrNotAuthorized
	}

	select {
	case <-mc.lease:
		return &session{mc: mc}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) Release(s adapter.Session) {
	ls, ok := s.(*session)
	if !ok || ls.mc == nil {
		return
	}
	select {
	case ls.mc.lease <- struct{}{}:
	default:
		// double release; the token is already back
	}
}

// connect returns the cached client or dials a new one under the manager lock.
func (m *Manager) connect(ctx context.Context, accountID, phone, proxyURL string) (*managedClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mc, ok := m.clients[accountID]; ok {
		return mc, nil
	}

	dispatcher := tg.NewUpdateDispatcher()
	opts := telegram.Options{
		SessionStorage: &boltSessionStorage{db: m.db, accountID: accountID},
		UpdateHandler:  dispatcher,
		Middlewares: []telegram.Middleware{
			floodwait.NewSimpleWaiter(),
			ratelimit.New(rate.Limit(m.cfg.RPSPerClient), int(m.cfg.RPSPerClient*2)+1),
		},
		Device: telegram.DeviceConfig{
			DeviceModel:   m.cfg.Device,
			SystemVersion: "10",
			AppVersion:    "1.0",
		},
	}
	if proxyURL != "" {
		dial, err := proxyDialer(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy for account %s: %w", accountID, err)
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dial})
	}

	client := telegram.NewClient(m.cfg.AppID, m.cfg.AppHash, opts)
	stop, err := bg.Connect(client, bg.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	api := client.API()
	mc := &managedClient{
		accountID: accountID,
		phone:     phone,
		client:    client,
		api:       api,
		sender:    message.NewSender(api),
		stop:      stop,
		lease:     make(chan struct{}, 1),
	}
	mc.lease <- struct{}{}
	m.registerIncoming(dispatcher, mc)
	m.clients[accountID] = mc

	m.log.Info().Str("account_id", accountID).Msg("client connected")
	return mc, nil
}

// proxyDialer builds a SOCKS5 context dialer from the account's proxy URL.
func proxyDialer(raw string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, err
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("proxy scheme does not support context dialing")
	}
	return cd.DialContext, nil
}

func (m *Manager) registerIncoming(dispatcher tg.UpdateDispatcher, mc *managedClient) {
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		msg, ok := u.Message.(*tg.Message)
		if !ok || msg.Out {
			return nil
		}
		peer, ok := msg.PeerID.(*tg.PeerUser)
		if !ok {
			return nil
		}
		var username string
		if user, ok := e.Users[peer.UserID]; ok {
			username = user.Username
		}
		in := adapter.IncomingMessage{
			AccountID:  mc.accountID,
			FromID:     peer.UserID,
			Username:   username,
			Text:       msg.Message,
			ReceivedAt: time.Unix(int64(msg.Date), 0).UTC(),
		}
		m.hookMu.RLock()
		hooks := m.hooks
		m.hookMu.RUnlock()
		for _, fn := range hooks {
			fn(ctx, in)
		}
		return nil
	})
}

func (m *Manager) OnIncoming(fn func(ctx context.Context, msg adapter.IncomingMessage)) {
	m.hookMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hookMu.Unlock()
}

// StartAuth sends the login code to the phone and returns the code hash the
// completing call must echo back.
func (m *Manager) StartAuth(ctx context.Context, accountID, phone, proxyURL string) (string, error) {
	mc, err := m.connect(ctx, accountID, phone, proxyURL)
	if err != nil {
		return "", err
	}
	sent, err := mc.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", mapError(err)
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", domain.NewTelegramError(domain.TGErrOther, fmt.Sprintf("unexpected sent code %T", sent))
	}
	return code.PhoneCodeHash, nil
}

// CompleteAuth signs in with the received code, falling back to the 2FA
// password when Telegram demands one.
func (m *Manager) CompleteAuth(ctx context.Context, accountID, code, codeHash, password string) (*adapter.AuthorizedUser, error) {
	m.mu.Lock()
	mc, ok := m.clients[accountID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	_, err := mc.client.Auth().SignIn(ctx, mc.phone, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		if password == "" {
			return nil, domain.NewTelegramError(domain.TGErrPasswordNeeded, "2fa password required")
		}
		if _, err = mc.client.Auth().Password(ctx, password); err != nil {
			return nil, mapError(err)
		}
	} else if err != nil {
		return nil, mapError(err)
	}

	self, err := mc.client.Self(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return &adapter.AuthorizedUser{
		TelegramID: self.ID,
		Username:   self.Username,
		FirstName:  self.FirstName,
		LastName:   self.LastName,
	}, nil
}

// CloseAll stops every background connection and closes the session store.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, mc := range m.clients {
		if err := mc.stop(); err != nil {
			m.log.Warn().Err(err).Str("account_id", id).Msg("stop client")
		}
		delete(m.clients, id)
	}
	if err := m.db.Close(); err != nil {
		m.log.Warn().Err(err).Msg("close session store")
	}
}

// ParseProxy validates a proxy URL early, before an account row is saved.
func ParseProxy(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return domain.ErrInvalidArgument
	}
	return nil
}
