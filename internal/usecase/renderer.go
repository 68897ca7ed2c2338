package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
)

// aiRenderTimeout bounds the optional personalization call; past it the
// pre-rendered placeholder text is the floor.
const aiRenderTimeout = 10 * time.Second

// Renderer turns a campaign template into the final outgoing text:
// placeholder substitution always, smart personalization through the LLM
// when enabled and available.
type Renderer struct {
	ai  adapter.AIServiceAdapter // nil when no tenant credential
	log *zerolog.Logger
}

func NewRenderer(ai adapter.AIServiceAdapter, logger *zerolog.Logger) *Renderer {
	l := logger.With().Str("component", "Renderer").Logger()
	return &Renderer{ai: ai, log: &l}
}

// RenderPlaceholders substitutes the supported placeholders from the member.
func RenderPlaceholders(template string, m *model.AudienceMember) string {
	r := strings.NewReplacer(
		"{first_name}", m.FirstName,
		"{last_name}", m.LastName,
		"{username}", m.Username,
		"{name}", m.DisplayName(),
	)
	return r.Replace(template)
}

// Render produces the outgoing text for one recipient. AI failure or absence
// silently falls back to the placeholder rendering.
func (r *Renderer) Render(ctx context.Context, c *model.Campaign, m *model.AudienceMember) string {
	base := RenderPlaceholders(c.Template, m)
	if !c.Flags.SmartPersonalization || r.ai == nil {
		return base
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiRenderTimeout)
	defer cancel()
	out, err := r.ai.Generate(aiCtx, adapter.GenerateParams{
		Prompt:      "Перепиши сообщение, сохранив смысл, обращаясь к получателю по имени \"" + m.DisplayName() + "\":\n" + base,
		Task:        "personalize",
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		r.log.Debug().Err(err).Str("campaign_id", c.ID).Msg("personalization unavailable, using template")
		return base
	}
	return strings.TrimSpace(out)
}
