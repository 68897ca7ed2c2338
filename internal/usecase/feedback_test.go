//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/usecase"
)

func newFeedback(accounts *MockAccountRepo, stats *MockStatsRepo, errs *MockErrorLogRepo) *usecase.Feedback {
	return usecase.NewFeedback(accounts, stats, errs, testLogger())
}

func TestFeedbackApply(t *testing.T) {
	ctx := context.Background()

	t.Run("success bumps counters and reliability", func(t *testing.T) {
		accounts, stats := NewMockAccountRepo(), &MockStatsRepo{}
		fb := newFeedback(accounts, stats, &MockErrorLogRepo{})
		acc := activeAccount("a", "t1")
		acc.ReliabilityScore = 50
		acc.ConsecutiveErrors = 3

		if err := fb.Apply(ctx, nil, acc, "task", nil); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.DailySent != 1 || acc.ConsecutiveErrors != 0 || acc.ReliabilityScore != 50.1 {
			t.Fatalf("account after success: %+v", acc)
		}
		if len(stats.Outcomes) != 1 || stats.Outcomes[0] != repository.OutcomeSuccess {
			t.Fatalf("outcomes = %v", stats.Outcomes)
		}
	})

	t.Run("reliability clamps at 100", func(t *testing.T) {
		fb := newFeedback(NewMockAccountRepo(), &MockStatsRepo{}, &MockErrorLogRepo{})
		acc := activeAccount("a", "t1")
		acc.ReliabilityScore = 100
		if err := fb.Apply(ctx, nil, acc, "task", nil); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.ReliabilityScore != 100 {
			t.Fatalf("ReliabilityScore = %v, want 100", acc.ReliabilityScore)
		}
	})

	t.Run("flood wait pauses the account for the mandated time", func(t *testing.T) {
		accounts, stats, errs := NewMockAccountRepo(), &MockStatsRepo{}, &MockErrorLogRepo{}
		fb := newFeedback(accounts, stats, errs)
		acc := activeAccount("a", "t1")

		if err := fb.Apply(ctx, nil, acc, "task", domain.NewFloodWait(5*time.Minute)); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.Status != model.AccountStatusFloodWait || acc.FloodWaitUntil == nil {
			t.Fatalf("account after flood wait: %+v", acc)
		}
		if acc.TotalFloodWaits != 1 || acc.ReliabilityScore != 95 {
			t.Fatalf("counters: flood_waits=%d reliability=%v", acc.TotalFloodWaits, acc.ReliabilityScore)
		}
		if stats.Outcomes[0] != repository.OutcomeFloodWait {
			t.Fatalf("outcome = %v", stats.Outcomes[0])
		}
		if len(errs.Logs) != 1 {
			t.Fatalf("error logs = %d, want 1", len(errs.Logs))
		}
	})

	t.Run("peer flood applies the extended cooldown", func(t *testing.T) {
		fb := newFeedback(NewMockAccountRepo(), &MockStatsRepo{}, &MockErrorLogRepo{})
		acc := activeAccount("a", "t1")
		before := time.Now().UTC()

		if err := fb.Apply(ctx, nil, acc, "task", domain.NewTelegramError(domain.TGErrPeerFlood, "PEER_FLOOD")); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.Status != model.AccountStatusPausedRisk {
			t.Fatalf("status = %s, want paused_risk", acc.Status)
		}
		if acc.FloodWaitUntil == nil || acc.FloodWaitUntil.Sub(before) < 23*time.Hour {
			t.Fatalf("cooldown too short: %v", acc.FloodWaitUntil)
		}
	})

	t.Run("privacy restriction leaves the sender untouched", func(t *testing.T) {
		errs := &MockErrorLogRepo{}
		fb := newFeedback(NewMockAccountRepo(), &MockStatsRepo{}, errs)
		acc := activeAccount("a", "t1")

		err := fb.Apply(ctx, nil, acc, "task", domain.NewTelegramError(domain.TGErrPrivacyRestricted, "USER_PRIVACY_RESTRICTED"))
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.ReliabilityScore != 100 || acc.ConsecutiveErrors != 0 {
			t.Fatalf("sender penalized for recipient-side error: %+v", acc)
		}
		if len(errs.Logs) != 0 {
			t.Fatalf("recipient-terminal error logged: %d rows", len(errs.Logs))
		}
	})

	t.Run("transient error decrements reliability and floor clamps at 0", func(t *testing.T) {
		fb := newFeedback(NewMockAccountRepo(), &MockStatsRepo{}, &MockErrorLogRepo{})
		acc := activeAccount("a", "t1")
		acc.ReliabilityScore = 1

		if err := fb.Apply(ctx, nil, acc, "task", domain.NewTelegramError(domain.TGErrNetwork, "dial timeout")); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if acc.ReliabilityScore != 0 || acc.ConsecutiveErrors != 1 || acc.DailyErrors != 1 {
			t.Fatalf("account after transient: %+v", acc)
		}
	})
}

func TestApplyAdaptive(t *testing.T) {
	c := testCampaign()

	usecase.ApplyAdaptive(c, domain.NewFloodWait(time.Minute))
	if c.AdaptiveMultiplier != 1.5 {
		t.Fatalf("after flood wait = %v, want 1.5", c.AdaptiveMultiplier)
	}
	usecase.ApplyAdaptive(c, domain.NewTelegramError(domain.TGErrPeerFlood, ""))
	if c.AdaptiveMultiplier != 1.7 {
		t.Fatalf("after peer flood = %v, want 1.7", c.AdaptiveMultiplier)
	}
	usecase.ApplyAdaptive(c, nil)
	if c.AdaptiveMultiplier != 1.6 {
		t.Fatalf("after success = %v, want 1.6", c.AdaptiveMultiplier)
	}

	// floor
	c.AdaptiveMultiplier = 1.0
	usecase.ApplyAdaptive(c, nil)
	if c.AdaptiveMultiplier != 1.0 {
		t.Fatalf("floor breached: %v", c.AdaptiveMultiplier)
	}

	// ceiling
	c.AdaptiveMultiplier = 4.9
	usecase.ApplyAdaptive(c, domain.NewFloodWait(time.Minute))
	if c.AdaptiveMultiplier != 5.0 {
		t.Fatalf("ceiling breached: %v", c.AdaptiveMultiplier)
	}

	// non-taxonomy errors leave the multiplier alone
	c.AdaptiveMultiplier = 2.0
	usecase.ApplyAdaptive(c, context.DeadlineExceeded)
	if c.AdaptiveMultiplier != 2.0 {
		t.Fatalf("unknown error moved the multiplier: %v", c.AdaptiveMultiplier)
	}
}
