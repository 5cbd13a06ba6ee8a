package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/telemetry"
)

// Log пишет события в slog.
type Log struct {
	logger *slog.Logger
}

// NewLog создаёт Log.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify реализует Notifier.
func (l *Log) Notify(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if e.Kind == KindStageFailed {
		level = slog.LevelWarn
	}

	attrs := []any{
		"plan_id", e.PlanID,
		"stage", e.Stage.String(),
		"kind", e.Kind,
		"title", e.Title,
	}
	if e.Kind == KindStageSucceeded {
		attrs = append(attrs, "count", e.Count)
	}
	if e.Failure != "" {
		attrs = append(attrs, "failure", e.Failure)
	}
	if e.Error != "" {
		attrs = append(attrs, "error", e.Error)
	}

	l.logger.Log(ctx, level, "stage notification", attrs...)
}

// Recorder накапливает события в памяти. Потокобезопасен.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify реализует Notifier.
func (r *Recorder) Notify(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events возвращает копию накопленных событий.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds возвращает виды накопленных событий по порядку.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// EventPublisher — публикация событий в брокер.
// Реализуется *mq.Publisher.
type EventPublisher interface {
	PublishStageEvent(ctx context.Context, payload mq.StageEventPayload) error
}

// MQ публикует события в RabbitMQ.
//
// Ошибка публикации только логируется: уведомление не влияет на шаг.
type MQ struct {
	publisher EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMQ создаёт MQ. timeout ограничивает одну публикацию (default: 2s).
func NewMQ(publisher EventPublisher, timeout time.Duration, logger *slog.Logger) *MQ {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQ{publisher: publisher, timeout: timeout, logger: logger}
}

// Notify реализует Notifier.
func (m *MQ) Notify(ctx context.Context, e Event) {
	// Отмена запроса не должна терять уже случившееся событие.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	err := m.publisher.PublishStageEvent(ctx, mq.StageEventPayload{
		PlanID:      e.PlanID,
		Kind:        string(e.Kind),
		Stage:       e.Stage.String(),
		Count:       e.Count,
		Title:       e.Title,
		Description: e.Description,
		Variant:     string(e.Variant),
		Error:       e.Error,
	})
	if err != nil {
		m.logger.Warn("failed to publish stage event",
			"plan_id", e.PlanID,
			"stage", e.Stage.String(),
			"kind", e.Kind,
			"error", err,
		)
	}
}

// Metrics считает события в itinera_notifications_total.
type Metrics struct{}

// Notify реализует Notifier.
func (Metrics) Notify(_ context.Context, e Event) {
	telemetry.Notifications.WithLabelValues(string(e.Kind)).Inc()
}

// Multi рассылает событие всем получателям по порядку.
type Multi []Notifier

// Notify реализует Notifier.
func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}
