//go:build !integration

package model_test

import (
	"testing"
	"time"

	"telegram-fleet/internal/domain/model"
)

func TestInQuietHours(t *testing.T) {
	s := model.DefaultTenantSettings("t1")
	s.Timezone = "UTC"

	at := func(h, m int) time.Time { return time.Date(2026, 8, 24, h, m, 0, 0, time.UTC) }

	t.Run("wrapping window 23-08", func(t *testing.T) {
		for _, tc := range []struct {
			h, m int
			want bool
		}{
			{23, 0, true},
			{0, 30, true},
			{7, 59, true},
			{8, 0, false},
			{12, 0, false},
			{22, 59, false},
		} {
			if got := s.InQuietHours(at(tc.h, tc.m)); got != tc.want {
				t.Errorf("InQuietHours(%02d:%02d) = %v, want %v", tc.h, tc.m, got, tc.want)
			}
		}
	})

	t.Run("non-wrapping window", func(t *testing.T) {
		s2 := model.DefaultTenantSettings("t1")
		s2.Timezone = "UTC"
		s2.QuietHoursStart, s2.QuietHoursEnd = 13, 15
		if !s2.InQuietHours(at(14, 0)) || s2.InQuietHours(at(15, 0)) || s2.InQuietHours(at(12, 59)) {
			t.Fatal("window [13,15) mismatch")
		}
	})

	t.Run("equal bounds disable quiet hours", func(t *testing.T) {
		s3 := model.DefaultTenantSettings("t1")
		s3.QuietHoursStart, s3.QuietHoursEnd = 0, 0
		if s3.InQuietHours(at(3, 0)) {
			t.Fatal("zero-width window still quiet")
		}
	})
}

func TestLocalDay(t *testing.T) {
	s := model.DefaultTenantSettings("t1") // Europe/Moscow, UTC+3
	utc := time.Date(2026, 8, 24, 22, 30, 0, 0, time.UTC)
	if got := s.LocalDay(utc); got != "2026-08-25" {
		t.Fatalf("LocalDay = %s, want 2026-08-25", got)
	}
}

func TestLocationFallback(t *testing.T) {
	s := model.DefaultTenantSettings("t1")
	s.Timezone = "Nowhere/Invalid"
	if s.Location() == nil {
		t.Fatal("nil location")
	}
}
