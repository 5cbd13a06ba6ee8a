package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Itinera/internal/domain"
)

// Ошибки шагов.
var (
	// ErrStageNotFound — исполнитель для шага не зарегистрирован.
	ErrStageNotFound = errors.New("stage executor not found")

	// ErrMissingFields — в TripQuery не заполнены обязательные поля.
	ErrMissingFields = errors.New("missing required fields")
)

// MissingFieldsError — ошибка валидации с перечнем пустых полей.
type MissingFieldsError struct {
	Stage  domain.StageKind
	Fields []string
}

// Error реализует интерфейс error.
func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, ErrMissingFields, strings.Join(e.Fields, ", "))
}

// Is позволяет errors.Is(err, ErrMissingFields).
func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}

// Executor — исполнитель одного шага.
type Executor interface {
	// Kind возвращает шаг, который выполняет исполнитель.
	Kind() domain.StageKind

	// Required возвращает обязательные поля TripQuery.
	Required() []string

	// Execute выполняет шаг. plan — уже собранная часть документа,
	// исполнитель его не изменяет.
	Execute(ctx context.Context, query domain.TripQuery, plan domain.CompositeTravelPlan) (*Result, error)
}

// Validate проверяет обязательные поля для исполнителя.
// Возвращает *MissingFieldsError или nil.
func Validate(exec Executor, query domain.TripQuery) error {
	missing := query.MissingFields(exec.Required()...)
	if len(missing) == 0 {
		return nil
	}
	return &MissingFieldsError{Stage: exec.Kind(), Fields: missing}
}

// Result — нормализованный результат шага.
//
// Заполнен ровно один из срезов (или Enrichment) в зависимости от Kind.
type Result struct {
	Kind       domain.StageKind
	Flights    []domain.FlightOffer
	Hotels     []domain.HotelOffer
	Activities []domain.ActivityOffer
	Enrichment *domain.Enrichment

	// Empty — провайдер ответил без ошибки, но записей нет
	// (или success != true).
	Empty bool
}

// EmptyResult возвращает результат "нет данных" для шага.
func EmptyResult(kind domain.StageKind) *Result {
	return &Result{Kind: kind, Empty: true}
}

// Count возвращает количество нормализованных записей.
// Для enrichment — 1, если есть данные.
func (r *Result) Count() int {
	switch r.Kind {
	case domain.StageFlights:
		return len(r.Flights)
	case domain.StageHotels:
		return len(r.Hotels)
	case domain.StageActivities:
		return len(r.Activities)
	case domain.StageEnrichment:
		if r.Enrichment != nil && !r.Enrichment.IsZero() {
			return 1
		}
	}
	return 0
}

// ApplyToQuery возвращает TripQuery с учётом обратной связи шага.
// Только activities меняет запрос: Activities = имена через ", ".
func (r *Result) ApplyToQuery(query domain.TripQuery) domain.TripQuery {
	if r.Kind != domain.StageActivities || len(r.Activities) == 0 {
		return query
	}

	names := make([]string, len(r.Activities))
	for i, a := range r.Activities {
		names[i] = a.Name
	}
	query.Activities = strings.Join(names, ", ")
	return query
}
