package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ adapter.Notifier = (*BotNotifier)(nil)

// BotNotifier pushes operator notifications through a regular Bot API bot.
// The destination chat comes from tenant settings; a tenant without one is
// silently skipped. Failures are logged and dropped, never propagated.
type BotNotifier struct {
	bot      *tgbotapi.BotAPI
	settings repository.SettingsRepository
	log      zerolog.Logger
}

func NewBotNotifier(token string, settings repository.SettingsRepository, logger *zerolog.Logger) (*BotNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &BotNotifier{
		bot:      bot,
		settings: settings,
		log:      logger.With().Str("component", "notifier").Logger(),
	}, nil
}

func (n *BotNotifier) Notify(ctx context.Context, tenantID, message string) {
	s, err := n.settings.Get(ctx, nil, tenantID)
	if err != nil {
		n.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("load settings for notify")
		return
	}
	if s.NotifyChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(s.NotifyChatID, message)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("send notification")
	}
}
