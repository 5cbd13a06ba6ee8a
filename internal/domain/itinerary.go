package domain

// FlightOffer — нормализованное предложение перелёта.
type FlightOffer struct {
	ID            string `json:"id"`
	Airline       string `json:"airline"`
	FlightNumber  string `json:"flightNumber"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      string `json:"duration"`
	Price         string `json:"price"`
}

// HotelOffer — нормализованное предложение отеля.
type HotelOffer struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Rating   float64 `json:"rating"`
	Price    string  `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

// ActivityOffer — нормализованная активность в пункте назначения.
type ActivityOffer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl"`
}

// Enrichment — дополнительная информация о направлении (шаг 4).
type Enrichment struct {
	Weather       string   `json:"weather,omitempty"`
	Cuisine       []string `json:"cuisine,omitempty"`
	PackingList   []string `json:"packing_list,omitempty"`
	PlacesToVisit []string `json:"places_to_visit,omitempty"`
	CityImageURL  string   `json:"city_image_url,omitempty"`
}

// IsZero возвращает true, если ни одно поле не заполнено.
func (e Enrichment) IsZero() bool {
	return e.Weather == "" &&
		len(e.Cuisine) == 0 &&
		len(e.PackingList) == 0 &&
		len(e.PlacesToVisit) == 0 &&
		e.CityImageURL == ""
}

// CompositeTravelPlan — итоговый документ, собираемый по шагам.
//
// Документ только дополняется: поле может быть добавлено или заменено
// непустым значением, но никогда не обнуляется последующим шагом.
type CompositeTravelPlan struct {
	Flights    []FlightOffer   `json:"flights,omitempty"`
	Hotels     []HotelOffer    `json:"hotels,omitempty"`
	Activities []ActivityOffer `json:"activities,omitempty"`

	// Destination и DateRange заполняются на шаге activities.
	Destination string `json:"destination,omitempty"`
	DateRange   string `json:"date_range,omitempty"`

	Weather       string   `json:"weather,omitempty"`
	Cuisine       []string `json:"cuisine,omitempty"`
	PackingList   []string `json:"packing_list,omitempty"`
	PlacesToVisit []string `json:"places_to_visit,omitempty"`
	CityImageURL  string   `json:"city_image_url,omitempty"`
}

// Enrichment возвращает поля шага 4 одной структурой.
func (p CompositeTravelPlan) Enrichment() Enrichment {
	return Enrichment{
		Weather:       p.Weather,
		Cuisine:       p.Cuisine,
		PackingList:   p.PackingList,
		PlacesToVisit: p.PlacesToVisit,
		CityImageURL:  p.CityImageURL,
	}
}

// Clone возвращает глубокую копию документа.
func (p CompositeTravelPlan) Clone() CompositeTravelPlan {
	out := p
	out.Flights = append([]FlightOffer(nil), p.Flights...)
	out.Hotels = append([]HotelOffer(nil), p.Hotels...)
	out.Activities = append([]ActivityOffer(nil), p.Activities...)
	out.Cuisine = append([]string(nil), p.Cuisine...)
	out.PackingList = append([]string(nil), p.PackingList...)
	out.PlacesToVisit = append([]string(nil), p.PlacesToVisit...)
	return out
}
