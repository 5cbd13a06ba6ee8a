package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/telemetry"
)

const (
	defaultStaleAfter = time.Hour
	defaultBatchSize  = 100

	// closeLeaseTTL — аренда плана на время закрытия.
	closeLeaseTTL = time.Minute
)

// LeaderFunc сообщает, должен ли этот экземпляр выполнять тик.
type LeaderFunc func(ctx context.Context) (bool, error)

// Janitor переводит зависшие планы в error.
type Janitor struct {
	plans      repo.Plans
	schedule   cron.Schedule
	staleAfter time.Duration
	batchSize  int
	leader     LeaderFunc
	logger     *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	Plans repo.Plans

	// Cron — расписание тиков (default: */5 * * * *).
	Cron string

	// StaleAfter — сколько план может оставаться в processing без
	// обновлений (default: 1h).
	StaleAfter time.Duration

	BatchSize int // планов за один тик (default: 100)

	// Leader — опционально; nil означает единственный экземпляр.
	Leader LeaderFunc

	Logger *slog.Logger
}

// New создаёт Janitor. Возвращает ошибку при некорректном cron.
func New(cfg Config) (*Janitor, error) {
	expr := cfg.Cron
	if expr == "" {
		expr = DefaultCron
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		plans:      cfg.Plans,
		schedule:   schedule,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		leader:     cfg.Leader,
		logger:     logger,
	}, nil
}

// Run выполняет тики по расписанию до отмены ctx.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info("janitor started", "stale_after", j.staleAfter)

	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor stopped")
			return
		case t := <-timer.C:
			if !j.isLeader(ctx) {
				continue
			}
			if _, err := j.Tick(ctx, t); err != nil {
				j.logger.Error("janitor tick failed", "error", err)
			}
		}
	}
}

func (j *Janitor) isLeader(ctx context.Context) bool {
	if j.leader == nil {
		return true
	}
	ok, err := j.leader(ctx)
	if err != nil {
		j.logger.Warn("leader check failed", "error", err)
		return false
	}
	return ok
}

// Tick переводит в error планы, не обновлявшиеся с now-StaleAfter.
// Возвращает количество закрытых планов.
//
// Ошибка одного плана не блокирует обработку остальных. Планы с живой
// арендой (их собирает API или планировщик) пропускаются.
func (j *Janitor) Tick(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-j.staleAfter)

	plans, err := j.plans.ListStale(ctx, cutoff, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale plans: %w", err)
	}

	if len(plans) == 0 {
		return 0, nil
	}

	var closed int
	for i := range plans {
		plan := &plans[i]

		ok, err := j.closePlan(ctx, plan)
		if !ok {
			continue
		}
		if err != nil {
			j.logger.Error("failed to close stale plan", "plan_id", plan.ID, "error", err)
			continue
		}

		closed++
		telemetry.PlansFinalized.WithLabelValues(string(domain.PlanStatusError)).Inc()
		j.logger.Info("closed stale plan",
			"plan_id", plan.ID,
			"user_id", plan.UserID,
			"stage", plan.Progress.Current.String(),
		)
	}

	j.logger.Info("janitor tick completed", "stale", len(plans), "closed", closed)
	return closed, nil
}

// closePlan арендует план и переводит его в error.
// false — план пропущен (занят, завершился или удалён после выборки).
func (j *Janitor) closePlan(ctx context.Context, plan *domain.Plan) (bool, error) {
	owner := "janitor/" + uuid.NewString()
	err := j.plans.AcquireLease(ctx, plan.ID, owner, closeLeaseTTL)
	if errors.Is(err, repo.ErrLeased) || errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return true, err
	}
	defer func() {
		if err := j.plans.ReleaseLease(context.WithoutCancel(ctx), plan.ID, owner); err != nil {
			j.logger.Warn("failed to release plan lease", "plan_id", plan.ID, "error", err)
		}
	}()

	reason := fmt.Sprintf("stale: no progress since %s", plan.UpdatedAt.UTC().Format(time.RFC3339))
	err = j.plans.UpdateStatus(ctx, plan.ID, domain.StatusUpdate{
		Status: domain.PlanStatusError,
		Error:  reason,
	})
	if errors.Is(err, repo.ErrInvalidState) || errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return true, err
}
