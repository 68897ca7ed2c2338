//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/usecase"
)

func TestPanicGate(t *testing.T) {
	ctx := context.Background()

	t.Run("no flag means not paused", func(t *testing.T) {
		gate := usecase.NewPanicGate(NewMockPanicFlagRepo(), testLogger())
		if gate.Paused(ctx, "t1") {
			t.Fatal("paused without a flag row")
		}
	})

	t.Run("set flag pauses", func(t *testing.T) {
		flags := NewMockPanicFlagRepo()
		flags.Flags["t1"] = &model.PanicFlag{TenantID: "t1", IsPaused: true, Reason: "operator stop"}
		gate := usecase.NewPanicGate(flags, testLogger())
		if !gate.Paused(ctx, "t1") {
			t.Fatal("not paused under a set flag")
		}
	})

	t.Run("elapsed auto_resume_at clears the flag on first check", func(t *testing.T) {
		flags := NewMockPanicFlagRepo()
		past := time.Now().UTC().Add(-time.Minute)
		flags.Flags["t1"] = &model.PanicFlag{TenantID: "t1", IsPaused: true, AutoResumeAt: &past}
		gate := usecase.NewPanicGate(flags, testLogger())

		if gate.Paused(ctx, "t1") {
			t.Fatal("still paused past auto_resume_at")
		}
		if f := flags.Flags["t1"]; f.IsPaused || f.AutoResumeAt != nil {
			t.Fatalf("flag not cleared: %+v", f)
		}
	})

	t.Run("future auto_resume_at keeps the pause", func(t *testing.T) {
		flags := NewMockPanicFlagRepo()
		future := time.Now().UTC().Add(time.Hour)
		flags.Flags["t1"] = &model.PanicFlag{TenantID: "t1", IsPaused: true, AutoResumeAt: &future}
		gate := usecase.NewPanicGate(flags, testLogger())
		if !gate.Paused(ctx, "t1") {
			t.Fatal("resumed before auto_resume_at")
		}
	})

	t.Run("unreadable flag fails closed", func(t *testing.T) {
		flags := NewMockPanicFlagRepo()
		flags.GetFunc = func(ctx context.Context, tx repository.Tx, tenantID string) (*model.PanicFlag, error) {
			return nil, errors.New("connection refused")
		}
		gate := usecase.NewPanicGate(flags, testLogger())
		if !gate.Paused(ctx, "t1") {
			t.Fatal("unreadable flag did not pause")
		}
	})
}
