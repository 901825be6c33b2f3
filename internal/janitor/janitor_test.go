package janitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakePurger записывает cutoff последнего вызова.
type fakePurger struct {
	cutoff time.Time
	purged int64
	err    error
	calls  int
}

func (f *fakePurger) PurgeTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.purged, f.err
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New(Config{Purger: &fakePurger{}, CronExpr: "not a cron"})
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewDefaults(t *testing.T) {
	j, err := New(Config{Purger: &fakePurger{}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if j.retention != 30*24*time.Hour {
		t.Errorf("default retention = %v, want 720h", j.retention)
	}

	// Дефолтное расписание "0 3 * * *": следующий запуск в 03:00
	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next := j.NextRun(from)
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextRun(%v) = %v, want 03:00", from, next)
	}
	if !next.After(from) {
		t.Errorf("NextRun(%v) = %v, must be in the future", from, next)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("ValidateCronExpr(valid) = %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("ValidateCronExpr(61 minutes) must fail")
	}
}

func TestTickUsesRetentionCutoff(t *testing.T) {
	purger := &fakePurger{purged: 7}
	j, err := New(Config{Purger: purger, Retention: 48 * time.Hour})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	before := time.Now().UTC().Add(-48 * time.Hour)
	if err := j.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	after := time.Now().UTC().Add(-48 * time.Hour)

	if purger.calls != 1 {
		t.Fatalf("purger called %d times, want 1", purger.calls)
	}
	if purger.cutoff.Before(before) || purger.cutoff.After(after) {
		t.Errorf("cutoff %v not within [%v, %v]", purger.cutoff, before, after)
	}
}

func TestTickPropagatesError(t *testing.T) {
	wantErr := errors.New("db down")
	j, err := New(Config{Purger: &fakePurger{err: wantErr}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := j.Tick(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Tick() = %v, want wrapped %v", err, wantErr)
	}
}
