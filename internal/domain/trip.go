package domain

// Имена полей TripQuery — используются в ошибках валидации.
const (
	FieldOrigin        = "origin"
	FieldDestination   = "destination"
	FieldDepartureDate = "departure_date"
	FieldReturnDate    = "return_date"
)

// TripQuery — параметры поездки, введённые пользователем.
//
// Не изменяется во время выполнения шага. Единственное исключение —
// поле Activities, которое перезаписывается после успешного шага activities.
type TripQuery struct {
	// Origin — город/аэропорт вылета. Нужен только для поиска перелётов.
	Origin string `json:"origin,omitempty"`

	// Destination — пункт назначения, обязателен для всех шагов.
	Destination string `json:"destination"`

	// DepartureDate — дата вылета (и заезда в отель), формат YYYY-MM-DD.
	DepartureDate string `json:"departure_date"`

	// ReturnDate — дата возвращения (и выезда из отеля).
	ReturnDate string `json:"return_date,omitempty"`

	// Budget — бюджет в свободной форме ("1500 EUR").
	Budget string `json:"budget,omitempty"`

	// Preferences — пожелания в свободной форме.
	Preferences string `json:"preferences,omitempty"`

	// Activities — названия найденных активностей через ", ".
	Activities string `json:"activities,omitempty"`
}

// MissingFields возвращает имена пустых полей из списка required.
func (q TripQuery) MissingFields(required ...string) []string {
	var missing []string
	for _, field := range required {
		if q.field(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// DateRange возвращает строку "{departure} to {return}".
func (q TripQuery) DateRange() string {
	return q.DepartureDate + " to " + q.ReturnDate
}

func (q TripQuery) field(name string) string {
	switch name {
	case FieldOrigin:
		return q.Origin
	case FieldDestination:
		return q.Destination
	case FieldDepartureDate:
		return q.DepartureDate
	case FieldReturnDate:
		return q.ReturnDate
	default:
		return ""
	}
}
