package crontab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/crontab"
	"github.com/janhq/sense-api/internal/infrastructure/store"
)

type failingResetter struct{}

func (failingResetter) ResetStale(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("store down")
}

func TestResetUsage(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, time.April, 1, 0, 5, 0, 0, time.UTC)

	s := store.NewMemoryStore(zerolog.Nop())
	if _, err := s.EnsureAccount(ctx, "user-1", march); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	job := crontab.NewCrontab(s, "", zerolog.Nop()).WithClock(func() time.Time { return april })
	if n := job.ResetUsage(ctx); n != 1 {
		t.Fatalf("expected 1 account reset, got %d", n)
	}
	if n := job.ResetUsage(ctx); n != 0 {
		t.Fatalf("second sweep in the same period reset %d accounts", n)
	}

	account, err := s.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Usage.Period != usage.PeriodOf(april) {
		t.Fatalf("expected period %s, got %s", usage.PeriodOf(april), account.Usage.Period)
	}
}

func TestResetUsage_StoreError(t *testing.T) {
	job := crontab.NewCrontab(failingResetter{}, "", zerolog.Nop())
	if n := job.ResetUsage(context.Background()); n != 0 {
		t.Fatalf("expected 0 on failure, got %d", n)
	}
}

func TestRun_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := crontab.NewCrontab(store.NewMemoryStore(zerolog.Nop()), "", zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	job := crontab.NewCrontab(store.NewMemoryStore(zerolog.Nop()), "not a cron", zerolog.Nop())
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}
