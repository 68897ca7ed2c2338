package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
)

// StopTriggerService scans incoming replies for the tenant's active stop
// phrases and auto-blacklists the sender on a match. Registered on the
// session manager's incoming hook when auto_blacklist is enabled.
type StopTriggerService struct {
	triggers  repository.StopTriggerRepository
	blacklist repository.BlacklistRepository
	settings  repository.SettingsRepository
	notifier  adapter.Notifier
	log       *zerolog.Logger
}

func NewStopTriggerService(triggers repository.StopTriggerRepository, blacklist repository.BlacklistRepository, settings repository.SettingsRepository, notifier adapter.Notifier, logger *zerolog.Logger) *StopTriggerService {
	l := logger.With().Str("component", "StopTriggers").Logger()
	return &StopTriggerService{triggers: triggers, blacklist: blacklist, settings: settings, notifier: notifier, log: &l}
}

// HandleReply checks one incoming message; returns true when the sender was
// blacklisted.
func (s *StopTriggerService) HandleReply(ctx context.Context, msg adapter.IncomingMessage) (bool, error) {
	cfg, err := s.settings.Get(ctx, nil, msg.TenantID)
	if err != nil {
		return false, err
	}
	if !cfg.AutoBlacklistEnabled {
		return false, nil
	}

	trigger, err := s.Match(ctx, msg.TenantID, msg.Text)
	if err != nil || trigger == nil {
		return false, err
	}

	if err := s.triggers.IncrementHit(ctx, nil, trigger.ID); err != nil {
		s.log.Error().Err(err).Str("trigger_id", trigger.ID).Msg("hit increment failed")
	}
	err = s.blacklist.Upsert(ctx, nil, &model.BlacklistEntry{
		ID:         uuid.NewString(),
		TenantID:   msg.TenantID,
		TelegramID: msg.FromID,
		Username:   msg.Username,
		Source:     model.BlacklistAutoResponse,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	s.log.Info().Str("tenant_id", msg.TenantID).Int64("from_id", msg.FromID).Str("phrase", trigger.Phrase).Msg("stop trigger hit, sender blacklisted")
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg.TenantID, "Стоп-слово «"+trigger.Phrase+"» в ответе — отправитель добавлен в чёрный список")
	}
	return true, nil
}

// Match returns the first active trigger whose phrase occurs in text,
// case-insensitive substring semantics.
func (s *StopTriggerService) Match(ctx context.Context, tenantID, text string) (*model.StopTrigger, error) {
	active, err := s.triggers.ListActive(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(text)
	for _, t := range active {
		if t.Phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t.Phrase)) {
			return t, nil
		}
	}
	return nil, nil
}
