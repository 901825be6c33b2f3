package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Purger удаляет терминальные сессии старше cutoff.
// Реализуется repo.SessionRepo.PurgeTerminalBefore.
type Purger interface {
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor периодически чистит завершённые сессии.
type Janitor struct {
	purger    Purger
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	Purger Purger

	// CronExpr — расписание запусков, 5 полей (default: "0 3 * * *").
	CronExpr string

	// Retention — сколько хранить терминальные сессии (default: 720h).
	Retention time.Duration

	Logger *slog.Logger
}

// New создаёт Janitor. Невалидное cron-выражение — ошибка конфигурации.
func New(cfg Config) (*Janitor, error) {
	expr := cfg.CronExpr
	if expr == "" {
		expr = "0 3 * * *"
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		purger:    cfg.Purger,
		schedule:  schedule,
		retention: retention,
		logger:    logger,
	}, nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextRun возвращает следующий запуск после from.
func (j *Janitor) NextRun(from time.Time) time.Time {
	return j.schedule.Next(from)
}

// Run блокирует до отмены контекста, выполняя чистку по расписанию.
func (j *Janitor) Run(ctx context.Context) error {
	j.logger.Info("janitor started",
		"retention", j.retention.String(),
		"next_run", j.NextRun(time.Now()),
	)

	for {
		next := j.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor stopped")
			return ctx.Err()
		case <-timer.C:
			if err := j.Tick(ctx); err != nil {
				// Ошибка одного прогона не останавливает janitor.
				j.logger.Error("purge pass failed", "error", err)
			}
		}
	}
}

// Tick выполняет один проход чистки.
func (j *Janitor) Tick(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)

	purged, err := j.purger.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge terminal sessions: %w", err)
	}

	j.logger.Info("purge pass completed",
		"cutoff", cutoff,
		"purged", purged,
	)
	return nil
}
