package api

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/notify"
	"github.com/shaiso/Itinera/internal/workflow"
)

// Plan DTOs

// TripQueryRequest — параметры поездки в запросе.
type TripQueryRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	Budget        string `json:"budget"`
	Preferences   string `json:"preferences"`
}

// CreatePlanRequest — запрос на создание плана.
type CreatePlanRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Query       TripQueryRequest `json:"query"`
}

// UpdatePlanRequest — запрос на обновление плана.
type UpdatePlanRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Query       *TripQueryRequest `json:"query,omitempty"`
}

// AbandonPlanRequest — запрос на прекращение сборки.
type AbandonPlanRequest struct {
	Reason string `json:"reason"`
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText убирает разметку из пользовательского ввода.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// ToDomain конвертирует запрос в domain.TripQuery.
func (q TripQueryRequest) ToDomain() domain.TripQuery {
	return domain.TripQuery{
		Origin:        cleanText(q.Origin),
		Destination:   cleanText(q.Destination),
		DepartureDate: strings.TrimSpace(q.DepartureDate),
		ReturnDate:    strings.TrimSpace(q.ReturnDate),
		Budget:        cleanText(q.Budget),
		Preferences:   cleanText(q.Preferences),
	}
}

// validatePlanInput проверяет название и даты поездки.
func validatePlanInput(title string, q domain.TripQuery) error {
	if title == "" {
		return errors.New("title is required")
	}
	if missing := q.MissingFields(domain.FieldDestination, domain.FieldDepartureDate, domain.FieldReturnDate); len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}

	departure, err := time.Parse(time.DateOnly, q.DepartureDate)
	if err != nil {
		return errors.New("departure_date must be YYYY-MM-DD")
	}
	ret, err := time.Parse(time.DateOnly, q.ReturnDate)
	if err != nil {
		return errors.New("return_date must be YYYY-MM-DD")
	}
	if ret.Before(departure) {
		return errors.New("return_date is before departure_date")
	}
	return nil
}

// StageResponse — состояние шага в ответе.
type StageResponse struct {
	Stage     string             `json:"stage"`
	State     domain.StageState  `json:"state"`
	Count     int                `json:"count,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind domain.FailureKind `json:"error_kind,omitempty"`
}

// PlanResponse — ответ с планом.
type PlanResponse struct {
	ID           uuid.UUID                  `json:"id"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description,omitempty"`
	Query        domain.TripQuery           `json:"query"`
	Status       domain.PlanStatus          `json:"status"`
	CurrentStage string                     `json:"current_stage"`
	Finalized    bool                       `json:"finalized"`
	Stages       []StageResponse            `json:"stages"`
	Itinerary    domain.CompositeTravelPlan `json:"itinerary"`
	Error        string                     `json:"error,omitempty"`
	RequestedAt  *time.Time                 `json:"requested_at,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// PlanFromDomain конвертирует domain.Plan в PlanResponse.
func PlanFromDomain(p domain.Plan) PlanResponse {
	resp := PlanResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Query:        p.Query,
		Status:       p.Status,
		CurrentStage: p.Progress.Current.String(),
		Finalized:    p.Progress.Finalized,
		Itinerary:    p.Itinerary,
		Error:        p.Error,
		RequestedAt:  p.RequestedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	for _, kind := range domain.AllStages() {
		st := p.Progress.Stage(kind)
		resp.Stages = append(resp.Stages, StageResponse{
			Stage:     kind.String(),
			State:     st.State,
			Count:     st.Count,
			Error:     st.Error,
			ErrorKind: st.ErrorKind,
		})
	}
	return resp
}

// Advance DTOs

// Результат шага в AdvanceResponse.
const (
	OutcomeAdvanced  = "advanced"
	OutcomeCompleted = "completed"
	OutcomeHalted    = "halted"
)

// EventResponse — уведомление о шаге.
type EventResponse struct {
	Kind        notify.Kind        `json:"kind"`
	Stage       string             `json:"stage"`
	Count       int                `json:"count,omitempty"`
	Failure     domain.FailureKind `json:"failure,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Variant     notify.Variant     `json:"variant"`
	Timestamp   time.Time          `json:"timestamp"`
}

// EventFromNotify конвертирует notify.Event в EventResponse.
func EventFromNotify(e notify.Event) EventResponse {
	return EventResponse{
		Kind:        e.Kind,
		Stage:       e.Stage.String(),
		Count:       e.Count,
		Failure:     e.Failure,
		Title:       e.Title,
		Description: e.Description,
		Variant:     e.Variant,
		Timestamp:   e.Timestamp,
	}
}

// HaltResponse — причина остановки шага.
type HaltResponse struct {
	Kind   domain.FailureKind `json:"kind"`
	Stage  string             `json:"stage"`
	Fields []string           `json:"fields,omitempty"`
}

// AdvanceResponse — ответ на выполнение шага.
type AdvanceResponse struct {
	Outcome string          `json:"outcome"`
	Plan    PlanResponse    `json:"plan"`
	Events  []EventResponse `json:"events"`
	Halt    *HaltResponse   `json:"halt,omitempty"`
}

// haltFromError извлекает причину остановки из ошибки контроллера.
func haltFromError(err error) *HaltResponse {
	var se *workflow.StageError
	if !errors.As(err, &se) {
		return nil
	}
	return &HaltResponse{Kind: se.Kind, Stage: se.Stage.String(), Fields: se.Fields}
}
