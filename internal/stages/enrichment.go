package stages

import (
	"context"
	"fmt"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// EnrichmentExecutor — шаг 4, генерация погоды, кухни, списка вещей
// и мест для посещения.
type EnrichmentExecutor struct {
	generator provider.Generator
}

// NewEnrichmentExecutor создаёт EnrichmentExecutor.
func NewEnrichmentExecutor(generator provider.Generator) *EnrichmentExecutor {
	return &EnrichmentExecutor{generator: generator}
}

// Kind возвращает шаг.
func (e *EnrichmentExecutor) Kind() domain.StageKind {
	return domain.StageEnrichment
}

// Required возвращает обязательные поля.
func (e *EnrichmentExecutor) Required() []string {
	return []string{domain.FieldDestination, domain.FieldDepartureDate, domain.FieldReturnDate}
}

// Execute запрашивает генерацию и нормализует ответ.
func (e *EnrichmentExecutor) Execute(ctx context.Context, query domain.TripQuery, _ domain.CompositeTravelPlan) (*Result, error) {
	if err := Validate(e, query); err != nil {
		return nil, err
	}

	env, err := e.generator.GenerateTravelPlan(ctx, provider.PlanRequest{
		Destination:   query.Destination,
		DepartureDate: query.DepartureDate,
		ReturnDate:    query.ReturnDate,
	})
	if err != nil {
		return nil, fmt.Errorf("generate travel plan: %w", err)
	}
	if env == nil || !env.Success {
		return EmptyResult(e.Kind()), nil
	}

	enrichment, ok := NormalizeEnrichment(env.Data)
	if !ok {
		return EmptyResult(e.Kind()), nil
	}
	return &Result{Kind: e.Kind(), Enrichment: &enrichment}, nil
}

// NormalizeEnrichment преобразует data ответа generate_travel_plan.
// Возвращает false, если в ответе нет ни одного содержательного поля.
// Картинка-заглушка подставляется только для непустого ответа.
func NormalizeEnrichment(rec provider.Record) (domain.Enrichment, bool) {
	if rec == nil {
		return domain.Enrichment{}, false
	}

	e := domain.Enrichment{
		Weather:       getSummary(rec, "weather"),
		Cuisine:       getList(rec, "cuisine"),
		PackingList:   getList(rec, "packing_list"),
		PlacesToVisit: getList(rec, "places_to_visit"),
		CityImageURL:  getURL(rec, "city_image_url"),
	}
	if e.IsZero() {
		return domain.Enrichment{}, false
	}

	if e.CityImageURL == "" {
		e.CityImageURL = PlaceholderImage(labelCityImage)
	}
	return e, true
}
