package workflow

import (
	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/stages"
)

// Merge добавляет результат шага в документ.
//
// Чистая функция: plan не изменяется, возвращается новая копия.
// Поля только добавляются или заменяются непустыми значениями.
func Merge(plan domain.CompositeTravelPlan, query domain.TripQuery, res *stages.Result) domain.CompositeTravelPlan {
	out := plan.Clone()
	if res == nil || res.Empty {
		return out
	}

	switch res.Kind {
	case domain.StageFlights:
		if len(res.Flights) > 0 {
			out.Flights = append([]domain.FlightOffer(nil), res.Flights...)
		}

	case domain.StageHotels:
		if len(res.Hotels) > 0 {
			out.Hotels = append([]domain.HotelOffer(nil), res.Hotels...)
		}

	case domain.StageActivities:
		if len(res.Activities) > 0 {
			out.Activities = append([]domain.ActivityOffer(nil), res.Activities...)
		}
		// Заполняются один раз и больше не меняются.
		if out.Destination == "" {
			out.Destination = query.Destination
		}
		if out.DateRange == "" {
			out.DateRange = query.DateRange()
		}

	case domain.StageEnrichment:
		if res.Enrichment == nil {
			return out
		}
		e := res.Enrichment
		if e.Weather != "" {
			out.Weather = e.Weather
		}
		if len(e.Cuisine) > 0 {
			out.Cuisine = append([]string(nil), e.Cuisine...)
		}
		if len(e.PackingList) > 0 {
			out.PackingList = append([]string(nil), e.PackingList...)
		}
		if len(e.PlacesToVisit) > 0 {
			out.PlacesToVisit = append([]string(nil), e.PlacesToVisit...)
		}
		if e.CityImageURL != "" {
			out.CityImageURL = e.CityImageURL
		}
	}

	return out
}
