package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/notify"
	"github.com/shaiso/Itinera/internal/stages"
	"github.com/shaiso/Itinera/internal/telemetry"
)

// DefaultStageTimeout — таймаут шага по умолчанию.
const DefaultStageTimeout = 30 * time.Second

// PlanStore — запись статуса плана.
//
// Контроллер не владеет хранилищем: это его единственный вызов.
type PlanStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, update domain.StatusUpdate) error
}

// Controller — контроллер шагов.
type Controller struct {
	registry *stages.Registry
	notifier notify.Notifier
	store    PlanStore

	timeouts       map[domain.StageKind]time.Duration
	defaultTimeout time.Duration

	logger *slog.Logger
}

// Config — конфигурация Controller.
type Config struct {
	// Registry — исполнители шагов (обязательно).
	Registry *stages.Registry

	// Notifier — получатель событий прогресса (default: notify.Nop).
	Notifier notify.Notifier

	// Store — запись статуса плана (обязательно).
	Store PlanStore

	// Timeouts — таймауты отдельных шагов.
	Timeouts map[domain.StageKind]time.Duration

	// DefaultTimeout — таймаут шага без явной настройки (default: 30s).
	DefaultTimeout time.Duration

	Logger *slog.Logger
}

// New создаёт Controller.
func New(cfg Config) *Controller {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop
	}

	defaultTimeout := cfg.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultStageTimeout
	}

	timeouts := make(map[domain.StageKind]time.Duration, len(cfg.Timeouts))
	for k, d := range cfg.Timeouts {
		if d > 0 {
			timeouts[k] = d
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		registry:       cfg.Registry,
		notifier:       notifier,
		store:          cfg.Store,
		timeouts:       timeouts,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// WithNotifier возвращает копию Controller, которая дополнительно
// отправляет события в n. Используется для сбора событий одного запроса.
func (c *Controller) WithNotifier(n notify.Notifier) *Controller {
	cp := *c
	cp.notifier = notify.Multi{c.notifier, n}
	return &cp
}

// timeout возвращает таймаут шага.
func (c *Controller) timeout(kind domain.StageKind) time.Duration {
	if d, ok := c.timeouts[kind]; ok {
		return d
	}
	return c.defaultTimeout
}

// outcome — результат выполнения исполнителя до применения к состоянию.
type outcome struct {
	kind     domain.StageKind
	result   *stages.Result
	err      error
	duration time.Duration
}

// Advance выполняет текущий шаг и возвращает новое состояние.
//
// Для финализированного плана — no-op. При остановке шага возвращает
// новое состояние (шаг Failed, индекс прежний) и *StageError. Прочие
// ошибки (нет пользователя, нет исполнителя) возвращаются с исходным
// состоянием.
func (c *Controller) Advance(ctx context.Context, st State) (State, error) {
	if st.Finalized() {
		return st, nil
	}

	exec, err := c.prepare(st)
	if err != nil {
		return st, err
	}

	next := st.clone()
	kind := next.Current()

	if err := stages.Validate(exec, next.Query); err != nil {
		return c.commit(ctx, next, outcome{kind: kind, err: err})
	}

	if next, err = c.markProcessing(ctx, next); err != nil {
		return next, err
	}

	return c.commit(ctx, next, c.run(ctx, exec, next))
}

// Abandon окончательно переводит план в статус error.
func (c *Controller) Abandon(ctx context.Context, st State, reason string) (State, error) {
	if st.Finalized() {
		return st, nil
	}

	err := c.store.UpdateStatus(ctx, st.PlanID, domain.StatusUpdate{
		Status: domain.PlanStatusError,
		Error:  reason,
	})
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	telemetry.PlansFinalized.WithLabelValues(string(domain.PlanStatusError)).Inc()
	c.logger.Info("plan abandoned", "plan_id", st.PlanID, "stage", st.Current().String(), "reason", reason)

	next := st.clone()
	next.Status = domain.PlanStatusError
	return next, nil
}

// prepare проверяет предусловия и возвращает исполнителя текущего шага.
func (c *Controller) prepare(st State) (stages.Executor, error) {
	if st.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if !st.Current().Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStage, int(st.Current()))
	}
	return c.registry.Get(st.Current())
}

// markProcessing пишет статус processing при старте шага 1.
func (c *Controller) markProcessing(ctx context.Context, st State) (State, error) {
	if st.Current() != domain.FirstStage || st.Status == domain.PlanStatusProcessing {
		return st, nil
	}

	err := c.store.UpdateStatus(ctx, st.PlanID, domain.StatusUpdate{Status: domain.PlanStatusProcessing})
	if err != nil {
		return c.fail(ctx, st, st.Current(), domain.FailurePersistence, err, nil)
	}

	st.Status = domain.PlanStatusProcessing
	return st, nil
}

// run выполняет исполнителя с таймаутом шага.
func (c *Controller) run(ctx context.Context, exec stages.Executor, st State) outcome {
	kind := exec.Kind()

	ctx, cancel := context.WithTimeout(ctx, c.timeout(kind))
	defer cancel()

	start := time.Now()
	res, err := exec.Execute(ctx, st.Query, st.Itinerary.Clone())
	if err == nil && res == nil {
		err = errors.New("executor returned no result")
	}

	return outcome{kind: kind, result: res, err: err, duration: time.Since(start)}
}

// commit применяет исход шага к состоянию. Общий путь для Advance и RunAll.
func (c *Controller) commit(ctx context.Context, st State, out outcome) (State, error) {
	kind := out.kind
	logger := telemetry.WithStage(telemetry.WithPlanID(c.logger, st.PlanID.String()), kind.String())

	var missing *stages.MissingFieldsError
	if errors.As(out.err, &missing) {
		logger.Info("stage validation failed", "fields", missing.Fields)
		return c.fail(ctx, st, kind, domain.FailureValidation, out.err, missing.Fields)
	}

	st.Progress.SetStage(kind, domain.StageStatus{State: domain.StageStateRunning})
	c.notifier.Notify(ctx, notify.Started(st.PlanID, kind, st.Query))

	if out.err != nil {
		telemetry.ObserveStage(kind.String(), telemetry.OutcomeFailed, out.duration)
		logger.Warn("stage failed", "error", out.err, "duration", out.duration)
		return c.fail(ctx, st, kind, domain.FailureProvider, out.err, nil)
	}

	if out.result.Empty || out.result.Count() == 0 {
		telemetry.ObserveStage(kind.String(), telemetry.OutcomeEmpty, out.duration)
		logger.Info("stage returned no results", "duration", out.duration)

		st.Progress.SetStage(kind, domain.StageStatus{
			State:     domain.StageStateFailed,
			ErrorKind: domain.FailureEmpty,
			Error:     ErrEmptyResult.Error(),
		})
		c.notifier.Notify(ctx, notify.Empty(st.PlanID, kind))
		return st, &StageError{Kind: domain.FailureEmpty, Stage: kind}
	}

	count := out.result.Count()
	merged := Merge(st.Itinerary, st.Query, out.result)
	query := out.result.ApplyToQuery(st.Query)

	if kind == domain.LastStage {
		err := c.store.UpdateStatus(ctx, st.PlanID, domain.StatusUpdate{
			Status:    domain.PlanStatusCompleted,
			Itinerary: &merged,
		})
		if err != nil {
			telemetry.ObserveStage(kind.String(), telemetry.OutcomeFailed, out.duration)
			logger.Error("failed to finalize plan", "error", err)
			return c.fail(ctx, st, kind, domain.FailurePersistence, err, nil)
		}
	}

	telemetry.ObserveStage(kind.String(), telemetry.OutcomeSucceeded, out.duration)
	logger.Info("stage succeeded", "count", count, "duration", out.duration)

	st.Itinerary = merged
	st.Query = query
	st.Progress.SetStage(kind, domain.StageStatus{State: domain.StageStateSucceeded, Count: count})
	c.notifier.Notify(ctx, notify.Succeeded(st.PlanID, kind, count, st.Query))

	if kind == domain.LastStage {
		st.Progress.Finalized = true
		st.Status = domain.PlanStatusCompleted
		telemetry.PlansFinalized.WithLabelValues(string(domain.PlanStatusCompleted)).Inc()
		logger.Info("plan completed")
	} else {
		st.Progress.Current = kind.Next()
	}

	return st, nil
}

// fail переводит шаг в Failed, уведомляет и возвращает *StageError.
func (c *Controller) fail(ctx context.Context, st State, kind domain.StageKind, fk domain.FailureKind, cause error, fields []string) (State, error) {
	st.Progress.SetStage(kind, domain.StageStatus{
		State:     domain.StageStateFailed,
		ErrorKind: fk,
		Error:     cause.Error(),
	})
	c.notifier.Notify(ctx, notify.Failed(st.PlanID, kind, fk, cause))

	return st, &StageError{Kind: fk, Stage: kind, Fields: fields, Err: cause}
}
