package stages

import (
	"context"
	"fmt"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// ActivitiesExecutor — шаг 3, поиск активностей в пункте назначения.
//
// Единственный шаг с обратной связью в TripQuery: см. Result.ApplyToQuery.
type ActivitiesExecutor struct {
	searcher provider.Searcher
}

// NewActivitiesExecutor создаёт ActivitiesExecutor.
func NewActivitiesExecutor(searcher provider.Searcher) *ActivitiesExecutor {
	return &ActivitiesExecutor{searcher: searcher}
}

// Kind возвращает шаг.
func (e *ActivitiesExecutor) Kind() domain.StageKind {
	return domain.StageActivities
}

// Required возвращает обязательные поля.
func (e *ActivitiesExecutor) Required() []string {
	return []string{domain.FieldDestination}
}

// Execute ищет активности и нормализует до MaxResults записей.
func (e *ActivitiesExecutor) Execute(ctx context.Context, query domain.TripQuery, _ domain.CompositeTravelPlan) (*Result, error) {
	if err := Validate(e, query); err != nil {
		return nil, err
	}

	env, err := e.searcher.SearchActivities(ctx, provider.ActivitySearch{
		Destination: query.Destination,
	})
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}
	if env == nil || !env.Success {
		return EmptyResult(e.Kind()), nil
	}

	activities := NormalizeActivities(env.Data.Data)
	if len(activities) == 0 {
		return EmptyResult(e.Kind()), nil
	}
	return &Result{Kind: e.Kind(), Activities: activities}, nil
}

// NormalizeActivities преобразует сырые записи в ActivityOffer.
func NormalizeActivities(records []provider.Record) []domain.ActivityOffer {
	records = limit(records)
	if len(records) == 0 {
		return nil
	}

	out := make([]domain.ActivityOffer, len(records))
	for i, rec := range records {
		out[i] = domain.ActivityOffer{
			ID:          fmt.Sprintf("activity-%d", i),
			Name:        textOr(rec, "name", unknownValue),
			Description: textOr(rec, "description", unknownValue),
			Price:       textOr(rec, "price", unknownValue),
			ImageURL:    urlOr(rec, "image_url", labelActivityImage),
		}
	}
	return out
}
