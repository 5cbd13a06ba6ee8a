package workflow

import (
	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// State — состояние сборки одного плана.
//
// Передаётся в Controller по значению; Advance возвращает новое State,
// исходное не изменяется.
type State struct {
	PlanID    uuid.UUID
	UserID    string
	Status    domain.PlanStatus
	Query     domain.TripQuery
	Progress  domain.Progress
	Itinerary domain.CompositeTravelPlan
}

// NewState создаёт начальное состояние.
func NewState(planID uuid.UUID, userID string, query domain.TripQuery) State {
	return State{
		PlanID:   planID,
		UserID:   userID,
		Status:   domain.PlanStatusDraft,
		Query:    query,
		Progress: domain.NewProgress(),
	}
}

// StateFromPlan извлекает состояние из записи плана.
func StateFromPlan(p *domain.Plan) State {
	progress := p.Progress
	if !progress.Current.Valid() {
		progress = domain.NewProgress()
	}
	return State{
		PlanID:    p.ID,
		UserID:    p.UserID,
		Status:    p.Status,
		Query:     p.Query,
		Progress:  progress,
		Itinerary: p.Itinerary.Clone(),
	}
}

// ApplyTo записывает состояние в план.
func (s State) ApplyTo(p *domain.Plan) {
	p.Status = s.Status
	p.Query = s.Query
	p.Progress = s.Progress
	p.Itinerary = s.Itinerary.Clone()
}

// Current возвращает текущий шаг.
func (s State) Current() domain.StageKind {
	return s.Progress.Current
}

// Finalized возвращает true после успеха шага 4.
func (s State) Finalized() bool {
	return s.Progress.Finalized
}

// clone возвращает копию без общих срезов.
func (s State) clone() State {
	s.Itinerary = s.Itinerary.Clone()
	return s
}
