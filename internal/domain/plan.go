package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus — состояние и итог последнего запуска одного шага.
type StageStatus struct {
	State StageState `json:"state"`

	// Count — количество нормализованных записей последнего успешного запуска.
	Count int `json:"count,omitempty"`

	// Error — текст последней ошибки (пусто после успеха).
	Error string `json:"error,omitempty"`

	// ErrorKind — вид последней ошибки.
	ErrorKind FailureKind `json:"error_kind,omitempty"`
}

// Progress — состояние контроллера шагов, сохраняемое вместе с планом.
type Progress struct {
	// Current — индекс текущего шага (1..4). Никогда не уменьшается.
	Current StageKind `json:"current"`

	// Stages — состояние каждого шага, индекс = StageKind-1.
	Stages [StageCount]StageStatus `json:"stages"`

	// Finalized — шаг 4 завершён, itinerary только для чтения.
	Finalized bool `json:"finalized"`
}

// NewProgress создаёт Progress в начальном состоянии.
func NewProgress() Progress {
	p := Progress{Current: FirstStage}
	for i := range p.Stages {
		p.Stages[i].State = StageStateIdle
	}
	return p
}

// Stage возвращает состояние шага.
func (p Progress) Stage(kind StageKind) StageStatus {
	if !kind.Valid() {
		return StageStatus{}
	}
	return p.Stages[kind-1]
}

// SetStage устанавливает состояние шага.
func (p *Progress) SetStage(kind StageKind, status StageStatus) {
	if !kind.Valid() {
		return
	}
	p.Stages[kind-1] = status
}

// Plan — план путешествия пользователя в хранилище.
//
// Plan создаётся в статусе draft, получает processing при старте первого
// шага и completed после финализации itinerary (или error при отказе).
type Plan struct {
	// ID — уникальный идентификатор плана.
	ID uuid.UUID `json:"id"`

	// UserID — идентификатор владельца (от провайдера идентификации).
	UserID string `json:"user_id"`

	// Title — название поездки.
	Title string `json:"title"`

	// Description — описание в свободной форме.
	Description string `json:"description,omitempty"`

	// Query — параметры поездки.
	Query TripQuery `json:"query"`

	// Status — статус плана.
	Status PlanStatus `json:"status"`

	// Progress — состояние шагов.
	Progress Progress `json:"progress"`

	// Itinerary — собранный документ.
	Itinerary CompositeTravelPlan `json:"itinerary"`

	// Error — причина перехода в статус error.
	Error string `json:"error,omitempty"`

	// RequestedAt — время запроса фоновой сборки. Nil, если не запрашивалась.
	RequestedAt *time.Time `json:"requested_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlan создаёт план-черновик.
func NewPlan(userID, title, description string, query TripQuery) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Query:       query,
		Status:      PlanStatusDraft,
		Progress:    NewProgress(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsFinalized возвращает true, если itinerary финализирован.
func (p *Plan) IsFinalized() bool {
	return p.Progress.Finalized
}

// MarkRequested отмечает запрос фоновой сборки.
func (p *Plan) MarkRequested() {
	now := time.Now().UTC()
	p.RequestedAt = &now
	p.UpdatedAt = now
}

// MarkError переводит план в статус error.
func (p *Plan) MarkError(reason string) {
	p.Status = PlanStatusError
	p.Error = reason
	p.UpdatedAt = time.Now().UTC()
}

// StatusUpdate — изменение статуса плана, записываемое контроллером шагов.
type StatusUpdate struct {
	Status PlanStatus

	// Itinerary — финальный документ (только для completed).
	Itinerary *CompositeTravelPlan

	// Error — причина (только для error).
	Error string
}
