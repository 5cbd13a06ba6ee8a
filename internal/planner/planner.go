package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/workflow"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
)

// Planner доводит запрошенные планы до финала.
type Planner struct {
	plans      repo.Plans
	controller *workflow.Controller
	parallel   bool

	// MQ (опционально)
	conn     *mq.Connection
	consumer *mq.Consumer

	// Active plans — планы в процессе сборки
	activePlans map[uuid.UUID]struct{}
	mu          sync.RWMutex

	// Configuration
	pollInterval time.Duration
	batchSize    int
	leaseTTL     time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Planner.
type Config struct {
	Plans      repo.Plans
	Controller *workflow.Controller

	// Parallel — параллельный запрос шагов 1–3.
	Parallel bool

	// Conn — соединение RabbitMQ. Nil — только polling.
	Conn *mq.Connection

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество планов за один poll (default: 20)

	// LeaseTTL — аренда плана на время сборки (default: repo.DefaultLeaseTTL).
	// Должна превышать сумму таймаутов шагов.
	LeaseTTL time.Duration

	Logger *slog.Logger
}

// New создаёт новый Planner.
func New(cfg Config) *Planner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	leaseTTL := cfg.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = repo.DefaultLeaseTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Planner{
		plans:        cfg.Plans,
		controller:   cfg.Controller,
		parallel:     cfg.Parallel,
		conn:         cfg.Conn,
		activePlans:  make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		leaseTTL:     leaseTTL,
		logger:       logger,
	}
}

// Start запускает consumer (если есть соединение) и polling.
func (p *Planner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	p.logger.Info("starting planner",
		"poll_interval", p.pollInterval,
		"batch_size", p.batchSize,
		"parallel", p.parallel,
	)

	if p.conn != nil {
		p.consumer = mq.NewConsumer(p.conn, p.logger, mq.ConsumerConfig{
			Queue:    mq.QueuePlansRequested,
			Handler:  p.handlePlanRequested,
			Prefetch: 4,
		})

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("plan consumer error", "error", err)
			}
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLoop(ctx)
	}()

	p.logger.Info("planner started")
	return nil
}

// Stop останавливает Planner и ждёт завершения текущих сборок.
func (p *Planner) Stop() {
	p.stoppedMu.Lock()
	p.stopped = true
	p.stoppedMu.Unlock()

	p.logger.Info("stopping planner...")

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	if p.consumer != nil {
		p.consumer.Stop()
	}

	p.wg.Wait()

	p.logger.Info("planner stopped")
}

// IsStopped проверяет, остановлен ли Planner.
func (p *Planner) IsStopped() bool {
	p.stoppedMu.RLock()
	defer p.stoppedMu.RUnlock()
	return p.stopped
}

// pollLoop — цикл polling для fallback.
func (p *Planner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (p *Planner) poll(ctx context.Context) {
	plans, err := p.plans.ListRequested(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to list requested plans", "error", err)
		return
	}

	if len(plans) == 0 {
		return
	}

	p.logger.Debug("poll found requested plans", "count", len(plans))

	for i := range plans {
		if ctx.Err() != nil {
			return
		}

		id := plans[i].ID
		if p.isPlanActive(id) {
			continue
		}

		if err := p.ProcessPlan(ctx, id); err != nil && !skippable(err) {
			p.logger.Error("failed to process plan from poll", "plan_id", id, "error", err)
		}
	}
}

// isPlanActive проверяет, собирается ли план.
func (p *Planner) isPlanActive(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.activePlans[id]
	return exists
}

// addActivePlan добавляет план в активные.
func (p *Planner) addActivePlan(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.activePlans[id]; exists {
		return ErrPlanAlreadyActive
	}
	p.activePlans[id] = struct{}{}
	return nil
}

// removeActivePlan удаляет план из активных.
func (p *Planner) removeActivePlan(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activePlans, id)
}

// ActivePlansCount возвращает количество собираемых планов.
func (p *Planner) ActivePlansCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.activePlans)
}

// skippable — ошибки, означающие, что план обрабатывать не нужно.
func skippable(err error) bool {
	return errors.Is(err, ErrPlanAlreadyActive) ||
		errors.Is(err, ErrPlanNotRequested) ||
		errors.Is(err, ErrPlanBusy) ||
		errors.Is(err, ErrPlanFinished)
}
