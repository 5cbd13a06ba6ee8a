package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// Kind — вид события.
type Kind string

const (
	KindStageStarted   Kind = "stage_started"
	KindStageSucceeded Kind = "stage_succeeded"
	KindStageEmpty     Kind = "stage_empty"
	KindStageFailed    Kind = "stage_failed"
)

// Variant — визуальный вариант уведомления.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Event — событие прогресса шага.
type Event struct {
	Kind   Kind             `json:"kind"`
	PlanID uuid.UUID        `json:"plan_id"`
	Stage  domain.StageKind `json:"stage"`

	// Count — количество записей (только для KindStageSucceeded).
	Count int `json:"count,omitempty"`

	// Failure — вид ошибки (только для KindStageFailed).
	Failure domain.FailureKind `json:"failure,omitempty"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`

	// Error — техническая причина; пользователю не показывается.
	Error string `json:"-"`

	Timestamp time.Time `json:"timestamp"`
}

// Notifier получает события прогресса.
//
// Реализация не должна блокировать вызывающего надолго и не может
// повлиять на выполнение шага.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Func — адаптер функции к Notifier.
type Func func(ctx context.Context, event Event)

// Notify реализует Notifier.
func (f Func) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Nop — Notifier, который ничего не делает.
var Nop Notifier = Func(func(context.Context, Event) {})

// Started создаёт событие старта шага.
func Started(planID uuid.UUID, stage domain.StageKind, query domain.TripQuery) Event {
	title, desc := startedText(stage, query)
	return newEvent(KindStageStarted, planID, stage, title, desc, VariantDefault)
}

// Succeeded создаёт событие успешного шага с количеством записей.
func Succeeded(planID uuid.UUID, stage domain.StageKind, count int, query domain.TripQuery) Event {
	title, desc := succeededText(stage, count, query)
	e := newEvent(KindStageSucceeded, planID, stage, title, desc, VariantDefault)
	e.Count = count
	return e
}

// Empty создаёт событие "нет результатов".
func Empty(planID uuid.UUID, stage domain.StageKind) Event {
	title, desc := emptyText(stage)
	e := newEvent(KindStageEmpty, planID, stage, title, desc, VariantDefault)
	e.Failure = domain.FailureEmpty
	return e
}

// Failed создаёт событие ошибки шага. cause — техническая причина для логов.
func Failed(planID uuid.UUID, stage domain.StageKind, kind domain.FailureKind, cause error) Event {
	title, desc := failedText(stage, kind)
	e := newEvent(KindStageFailed, planID, stage, title, desc, VariantDestructive)
	e.Failure = kind
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

func newEvent(kind Kind, planID uuid.UUID, stage domain.StageKind, title, desc string, variant Variant) Event {
	return Event{
		Kind:        kind,
		PlanID:      planID,
		Stage:       stage,
		Title:       title,
		Description: desc,
		Variant:     variant,
		Timestamp:   time.Now().UTC(),
	}
}
