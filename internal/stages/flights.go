package stages

import (
	"context"
	"fmt"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// FlightsExecutor — шаг 1, поиск перелётов.
type FlightsExecutor struct {
	searcher provider.Searcher
}

// NewFlightsExecutor создаёт FlightsExecutor.
func NewFlightsExecutor(searcher provider.Searcher) *FlightsExecutor {
	return &FlightsExecutor{searcher: searcher}
}

// Kind возвращает шаг.
func (e *FlightsExecutor) Kind() domain.StageKind {
	return domain.StageFlights
}

// Required возвращает обязательные поля.
func (e *FlightsExecutor) Required() []string {
	return []string{domain.FieldOrigin, domain.FieldDestination, domain.FieldDepartureDate}
}

// Execute ищет перелёты и нормализует до MaxResults предложений.
func (e *FlightsExecutor) Execute(ctx context.Context, query domain.TripQuery, _ domain.CompositeTravelPlan) (*Result, error) {
	if err := Validate(e, query); err != nil {
		return nil, err
	}

	env, err := e.searcher.SearchFlights(ctx, provider.FlightSearch{
		Origin:        query.Origin,
		Destination:   query.Destination,
		DepartureDate: query.DepartureDate,
		ReturnDate:    query.ReturnDate,
	})
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	if env == nil || !env.Success {
		return EmptyResult(e.Kind()), nil
	}

	flights := NormalizeFlights(env.Data.Flights)
	if len(flights) == 0 {
		return EmptyResult(e.Kind()), nil
	}
	return &Result{Kind: e.Kind(), Flights: flights}, nil
}

// NormalizeFlights преобразует сырые записи в FlightOffer.
func NormalizeFlights(records []provider.Record) []domain.FlightOffer {
	records = limit(records)
	if len(records) == 0 {
		return nil
	}

	out := make([]domain.FlightOffer, len(records))
	for i, rec := range records {
		out[i] = domain.FlightOffer{
			ID:            fmt.Sprintf("flight-%d", i),
			Airline:       textOr(rec, "airline", unknownAirline),
			FlightNumber:  textOr(rec, "flight_number", unknownValue),
			DepartureTime: textOr(rec, "departure_time", unknownValue),
			ArrivalTime:   textOr(rec, "arrival_time", unknownValue),
			Duration:      textOr(rec, "duration", unknownValue),
			Price:         textOr(rec, "price", unknownValue),
		}
	}
	return out
}
