package provider

import "context"

// RequestType — тип запроса к удалённому сервису.
type RequestType string

const (
	TypeFlights      RequestType = "flights"
	TypeHotels       RequestType = "hotels"
	TypeActivities   RequestType = "activities"
	TypeGeneratePlan RequestType = "generate_travel_plan"
)

// Record — сырая запись провайдера. Схема не гарантируется.
type Record = map[string]any

// Envelope — ответ удалённого сервиса.
type Envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// FlightSearch — запрос поиска перелётов.
type FlightSearch struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
}

// HotelSearch — запрос поиска отелей.
type HotelSearch struct {
	Destination  string `json:"destination"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
}

// ActivitySearch — запрос поиска активностей.
type ActivitySearch struct {
	Destination string `json:"destination"`
}

// PlanRequest — запрос генерации дополнительной информации о поездке.
type PlanRequest struct {
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
}

// FlightsData — data ответа на поиск перелётов.
type FlightsData struct {
	Flights []Record `json:"flights"`
}

// HotelsData — data ответа на поиск отелей.
type HotelsData struct {
	Hotels []Record `json:"hotels"`
}

// ActivitiesData — data ответа на поиск активностей.
type ActivitiesData struct {
	Data []Record `json:"data"`
}

// Searcher — сервис поиска (шаги 1–3).
type Searcher interface {
	SearchFlights(ctx context.Context, req FlightSearch) (*Envelope[FlightsData], error)
	SearchHotels(ctx context.Context, req HotelSearch) (*Envelope[HotelsData], error)
	SearchActivities(ctx context.Context, req ActivitySearch) (*Envelope[ActivitiesData], error)
}

// Generator — сервис генерации (шаг 4).
type Generator interface {
	GenerateTravelPlan(ctx context.Context, req PlanRequest) (*Envelope[Record], error)
}
