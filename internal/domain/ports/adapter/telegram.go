package adapter

import (
	"context"
	"time"

	"telegram-fleet/internal/domain/model"
)

// SendTarget identifies a message recipient. TelegramID is preferred;
// Username is the fallback resolved via the client.
type SendTarget struct {
	TelegramID int64
	Username   string
}

// AuthorizedUser carries the attributes Telegram reports after a successful
// authorization, persisted onto the Account row.
type AuthorizedUser struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// IncomingMessage is a reply received on one of the fleet's accounts,
// delivered to registered hooks (stop-trigger scanning).
type IncomingMessage struct {
	AccountID  string
	TenantID   string
	FromID     int64
	Username   string
	Text       string
	ReceivedAt time.Time
}

// Session is an exclusive lease on one live Telegram client. All failures
// come back as *domain.TelegramError. Holders must Release before any long
// sleep; the client itself stays connected for reuse.
type Session interface {
	AccountID() string
	SendMessage(ctx context.Context, to SendTarget, text string, typingDelay time.Duration) error
	JoinChannel(ctx context.Context, channel string) error
	GetChannelPosts(ctx context.Context, channel string, limit int) ([]model.ChannelPost, error)
	GetChannelParticipants(ctx context.Context, channel string, limit, offset int) ([]SendTarget, error)
	SendReaction(ctx context.Context, channel string, msgID int, emoji string) error
	SendComment(ctx context.Context, channel string, msgID int, text string) error
	PublishToChannel(ctx context.Context, channel, text string) error
	MarkRead(ctx context.Context, channel string, maxID int) error
	Me(ctx context.Context) (*AuthorizedUser, error)
}

// SessionManager owns at most one connected client per account and
// serializes its use across workers: Acquire blocks while another worker
// holds the lease.
type SessionManager interface {
	Acquire(ctx context.Context, accountID, phone, proxy string) (Session, error)
	Release(s Session)
	StartAuth(ctx context.Context, accountID, phone, proxy string) (codeHash string, err error)
	CompleteAuth(ctx context.Context, accountID, code, codeHash, password string) (*AuthorizedUser, error)
	// OnIncoming registers a hook invoked for every incoming private message
	// on any managed account.
	OnIncoming(fn func(ctx context.Context, msg IncomingMessage))
	CloseAll()
}
