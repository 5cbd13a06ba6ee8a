package stages

import (
	"context"
	"fmt"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// HotelsExecutor — шаг 2, поиск отелей. Даты поездки используются
// как check-in/check-out.
type HotelsExecutor struct {
	searcher provider.Searcher
}

// NewHotelsExecutor создаёт HotelsExecutor.
func NewHotelsExecutor(searcher provider.Searcher) *HotelsExecutor {
	return &HotelsExecutor{searcher: searcher}
}

// Kind возвращает шаг.
func (e *HotelsExecutor) Kind() domain.StageKind {
	return domain.StageHotels
}

// Required возвращает обязательные поля.
func (e *HotelsExecutor) Required() []string {
	return []string{domain.FieldDestination, domain.FieldDepartureDate, domain.FieldReturnDate}
}

// Execute ищет отели и нормализует до MaxResults предложений.
func (e *HotelsExecutor) Execute(ctx context.Context, query domain.TripQuery, _ domain.CompositeTravelPlan) (*Result, error) {
	if err := Validate(e, query); err != nil {
		return nil, err
	}

	env, err := e.searcher.SearchHotels(ctx, provider.HotelSearch{
		Destination:  query.Destination,
		CheckInDate:  query.DepartureDate,
		CheckOutDate: query.ReturnDate,
	})
	if err != nil {
		return nil, fmt.Errorf("search hotels: %w", err)
	}
	if env == nil || !env.Success {
		return EmptyResult(e.Kind()), nil
	}

	hotels := NormalizeHotels(env.Data.Hotels)
	if len(hotels) == 0 {
		return EmptyResult(e.Kind()), nil
	}
	return &Result{Kind: e.Kind(), Hotels: hotels}, nil
}

// NormalizeHotels преобразует сырые записи в HotelOffer.
func NormalizeHotels(records []provider.Record) []domain.HotelOffer {
	records = limit(records)
	if len(records) == 0 {
		return nil
	}

	out := make([]domain.HotelOffer, len(records))
	for i, rec := range records {
		out[i] = domain.HotelOffer{
			ID:       fmt.Sprintf("hotel-%d", i),
			Name:     textOr(rec, "name", unknownValue),
			Address:  textOr(rec, "address", unknownValue),
			Rating:   getNumber(rec, "rating"),
			Price:    textOr(rec, "price", unknownValue),
			ImageURL: urlOr(rec, "thumbnail", labelHotelImage),
		}
	}
	return out
}
