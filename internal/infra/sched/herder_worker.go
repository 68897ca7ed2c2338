package sched

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	"telegram-fleet/internal/usecase"
)

const herderPostFetchLimit = 5

// aiTells are phrases that give away machine-written comments; a generated
// comment containing one is discarded in favor of the static bank.
var aiTells = []string{
	"как ии", "языков", "нейросет", "as an ai", "language model", "i'm sorry", "к сожалению, я не могу",
}

// HerderWorker walks every active assignment each tick: picks one eligible
// account, pulls fresh posts from the monitored channel and runs the
// assignment's action chain on the strategy-selected post, within quotas.
type HerderWorker struct {
	interval time.Duration

	herders  repository.HerderRepository
	accounts repository.AccountRepository
	settings repository.SettingsRepository

	selector *usecase.Selector
	feedback *usecase.Feedback
	gate     *usecase.PanicGate

	sessions adapter.SessionManager
	ai       adapter.AIServiceAdapter
	notifier adapter.Notifier

	randFloat func() float64
	randIntn  func(n int) int

	log *zerolog.Logger
}

func NewHerderWorker(interval time.Duration, herders repository.HerderRepository, accounts repository.AccountRepository, settings repository.SettingsRepository, selector *usecase.Selector, feedback *usecase.Feedback, gate *usecase.PanicGate, sessions adapter.SessionManager, ai adapter.AIServiceAdapter, notifier adapter.Notifier, logger *zerolog.Logger) *HerderWorker {
	l := logger.With().Str("component", "HerderWorker").Logger()
	return &HerderWorker{
		interval:  interval,
		herders:   herders,
		accounts:  accounts,
		settings:  settings,
		selector:  selector,
		feedback:  feedback,
		gate:      gate,
		sessions:  sessions,
		ai:        ai,
		notifier:  notifier,
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
		log:       &l,
	}
}

func (w *HerderWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting herder worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping herder worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("herder")
				w.log.Error().Err(err).Msg("herder tick error")
			}
			metrics.ObserveTick("herder", time.Since(start).Seconds())
		}
	}
}

func (w *HerderWorker) tick(ctx context.Context) error {
	if err := w.resume(ctx); err != nil {
		w.log.Error().Err(err).Msg("auto-resume pass failed")
	}

	active, err := w.herders.ListActive(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range active {
		if err := w.process(ctx, a); err != nil {
			w.log.Error().Err(err).Str("assignment_id", a.ID).Msg("assignment failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// resume reactivates paused assignments whose auto-resume moment passed.
func (w *HerderWorker) resume(ctx context.Context) error {
	due, err := w.herders.ListAutoResumable(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range due {
		a.Status = model.AssignmentActive
		a.AutoResumeAt = nil
		a.UpdatedAt = time.Now().UTC()
		if err := w.herders.Save(ctx, nil, a); err != nil {
			return err
		}
		w.log.Info().Str("assignment_id", a.ID).Msg("assignment auto-resumed")
	}
	return nil
}

// process runs at most one post-engagement for the assignment: one account,
// one strategy-selected post, one walk of the action chain.
func (w *HerderWorker) process(ctx context.Context, a *model.HerderAssignment) error {
	settings, err := w.settings.Get(ctx, nil, a.TenantID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if w.gate.Paused(ctx, a.TenantID) || settings.InQuietHours(now) {
		return nil
	}
	day := settings.LocalDay(now)
	profile := a.Strategy.Profile()

	accounts, err := w.accounts.ListByIDs(ctx, nil, a.AccountIDs)
	if err != nil {
		return err
	}
	acc, err := w.selector.Pick(ctx, a.TenantID, accounts, usecase.PickOptions{
		Now: now,
		QuotaCheck: func(cand *model.Account) bool {
			counter, err := w.herders.GetDailyCounter(ctx, nil, a.ID, cand.ID, day)
			return err == nil && counter.Actions < profile.MaxDailyActions
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoEligibleSender) || errors.Is(err, domain.ErrTenantPaused) {
			return nil
		}
		return err
	}

	posts, err := w.fetchPosts(ctx, a, acc)
	if err != nil {
		w.log.Warn().Err(err).Str("channel", a.Channel).Msg("post fetch failed")
		return nil
	}
	if len(posts) == 0 {
		return nil
	}
	post := profile.SelectPost(posts, w.randIntn)

	commentsToday, err := w.herders.SumCommentsForDay(ctx, nil, a.ID, day)
	if err != nil {
		return err
	}

	did, _, err := w.runChain(ctx, a, acc, settings, post, day, profile, commentsToday)
	if err != nil {
		w.log.Warn().Err(err).Str("account_id", acc.ID).Str("assignment_id", a.ID).Msg("chain aborted for account")
	}
	if did {
		a.UpdatedAt = time.Now().UTC()
		return w.herders.Save(ctx, nil, a)
	}
	return nil
}

// fetchPosts reads the channel history through the engaging account.
func (w *HerderWorker) fetchPosts(ctx context.Context, a *model.HerderAssignment, acc *model.Account) ([]model.ChannelPost, error) {
	s, err := w.sessions.Acquire(ctx, acc.ID, acc.Phone, acc.Proxy)
	if err != nil {
		return nil, err
	}
	defer w.sessions.Release(s)
	return s.GetChannelPosts(ctx, a.Channel, herderPostFetchLimit)
}

// runChain walks the action chain for one account over one post. Each step is
// a Bernoulli draw; an executed step bumps the daily counter and feeds the
// outcome back onto the account.
func (w *HerderWorker) runChain(ctx context.Context, a *model.HerderAssignment, acc *model.Account, settings *model.TenantSettings, post model.ChannelPost, day string, profile model.StrategyProfile, commentsToday int) (did, commented bool, err error) {
	s, err := w.sessions.Acquire(ctx, acc.ID, acc.Phone, acc.Proxy)
	if err != nil {
		return false, false, err
	}
	defer w.sessions.Release(s)

	for _, step := range a.ActionChain {
		if w.randFloat() >= step.Probability {
			continue
		}
		if step.MinEngagement > 0 && post.Views < step.MinEngagement {
			continue
		}

		var actErr error
		isComment := false
		switch step.Kind {
		case model.ActionRead, model.ActionSave:
			actErr = s.MarkRead(ctx, a.Channel, post.MsgID)
		case model.ActionReact:
			emoji := "👍"
			if len(step.Emoji) > 0 {
				emoji = step.Emoji[w.randIntn(len(step.Emoji))]
			}
			actErr = s.SendReaction(ctx, a.Channel, post.MsgID, emoji)
		case model.ActionComment:
			if !profile.CanComment || commentsToday >= a.Settings.MaxCommentsPerDay {
				continue
			}
			text := w.commentText(ctx, profile, post)
			if text == "" {
				continue
			}
			if phrase := matchBadPhrase(settings.Herder.BadPhrases, text); phrase != "" {
				metrics.IncHerderAction("filtered")
				w.log.Warn().Str("assignment_id", a.ID).Str("phrase", phrase).Msg("comment held back by knowledge filter")
				continue
			}
			actErr = s.SendComment(ctx, a.Channel, post.MsgID, text)
			isComment = actErr == nil
		default:
			continue
		}

		if ferr := w.feedback.Apply(ctx, nil, acc, a.ID, actErr); ferr != nil {
			return did, commented, ferr
		}
		if actErr != nil {
			if domain.TelegramErrorKindOf(actErr) == domain.TGErrInvalidReaction {
				w.log.Warn().Err(actErr).Str("account_id", acc.ID).Msg("reaction rejected, chain continues")
				continue
			}
			// flood_wait or worse: the account is done for now
			return did, commented, actErr
		}

		if cerr := w.herders.IncrDailyCounter(ctx, nil, a.ID, acc.ID, day, isComment); cerr != nil {
			return did, commented, cerr
		}
		a.TotalActions++
		if isComment {
			a.TotalComments++
			commented = true
			commentsToday++
		}
		did = true
		metrics.IncHerderAction(string(step.Kind))

		if err := w.stepSleep(ctx, step); err != nil {
			return did, commented, err
		}
	}
	return did, commented, nil
}

// commentText asks the LLM for a comment, falling back to the strategy's
// phrase bank when the call fails or the output smells synthetic.
func (w *HerderWorker) commentText(ctx context.Context, profile model.StrategyProfile, post model.ChannelPost) string {
	if w.ai != nil {
		out, err := w.ai.Generate(ctx, adapter.GenerateParams{
			Prompt:      "Напиши короткий живой комментарий (1-2 предложения) к посту:\n" + post.Text,
			Task:        "comment",
			MaxTokens:   120,
			Temperature: 0.9,
		})
		metrics.IncAICall("comment", err == nil)
		if err == nil {
			out = strings.TrimSpace(out)
			if out != "" && !soundsSynthetic(out) {
				return out
			}
		}
	}
	if len(profile.Phrases) == 0 {
		return ""
	}
	return profile.Phrases[w.randIntn(len(profile.Phrases))]
}

func soundsSynthetic(text string) bool {
	lower := strings.ToLower(text)
	for _, tell := range aiTells {
		if strings.Contains(lower, tell) {
			return true
		}
	}
	return false
}

// matchBadPhrase returns the first tenant knowledge phrase found in text.
func matchBadPhrase(phrases []string, text string) string {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

func (w *HerderWorker) stepSleep(ctx context.Context, step model.ActionStep) error {
	lo, hi := step.DelayAfterMin, step.DelayAfterMax
	if hi < lo {
		hi = lo
	}
	d := lo + time.Duration(w.randFloat()*float64(hi-lo))
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
