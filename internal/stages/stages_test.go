package stages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// fakeProvider — провайдер с заранее заданными ответами.
type fakeProvider struct {
	flights    *provider.Envelope[provider.FlightsData]
	hotels     *provider.Envelope[provider.HotelsData]
	activities *provider.Envelope[provider.ActivitiesData]
	plan       *provider.Envelope[provider.Record]
	err        error

	calls       int
	lastHotels  provider.HotelSearch
	lastFlights provider.FlightSearch
}

func (f *fakeProvider) SearchFlights(_ context.Context, req provider.FlightSearch) (*provider.Envelope[provider.FlightsData], error) {
	f.calls++
	f.lastFlights = req
	return f.flights, f.err
}

func (f *fakeProvider) SearchHotels(_ context.Context, req provider.HotelSearch) (*provider.Envelope[provider.HotelsData], error) {
	f.calls++
	f.lastHotels = req
	return f.hotels, f.err
}

func (f *fakeProvider) SearchActivities(_ context.Context, _ provider.ActivitySearch) (*provider.Envelope[provider.ActivitiesData], error) {
	f.calls++
	return f.activities, f.err
}

func (f *fakeProvider) GenerateTravelPlan(_ context.Context, _ provider.PlanRequest) (*provider.Envelope[provider.Record], error) {
	f.calls++
	return f.plan, f.err
}

func fullQuery() domain.TripQuery {
	return domain.TripQuery{
		Origin:        "MAD",
		Destination:   "BCN",
		DepartureDate: "2024-06-01",
		ReturnDate:    "2024-06-05",
	}
}

func flightRecords(n int) []provider.Record {
	out := make([]provider.Record, n)
	for i := range out {
		out[i] = provider.Record{
			"airline":       "Iberia",
			"flight_number": fmt.Sprintf("IB%d", 100+i),
			"price":         float64(100 + i),
		}
	}
	return out
}

// Registry Tests

func TestDefaultRegistry(t *testing.T) {
	fp := &fakeProvider{}
	r := DefaultRegistry(fp, fp)

	if err := r.Complete(); err != nil {
		t.Fatalf("default registry should be complete: %v", err)
	}

	for _, kind := range domain.AllStages() {
		exec, err := r.Get(kind)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", kind, err)
		}
		if exec.Kind() != kind {
			t.Errorf("expected %s, got %s", kind, exec.Kind())
		}
	}
}

func TestRegistry_Missing(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFlightsExecutor(&fakeProvider{}))

	if _, err := r.Get(domain.StageHotels); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("expected ErrStageNotFound, got %v", err)
	}
	if err := r.Complete(); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("incomplete registry should fail Complete, got %v", err)
	}
}

// Validation Tests

func TestValidation_NoRemoteCall(t *testing.T) {
	cases := []struct {
		exec    func(*fakeProvider) Executor
		query   domain.TripQuery
		missing []string
	}{
		{
			exec:    func(p *fakeProvider) Executor { return NewFlightsExecutor(p) },
			query:   domain.TripQuery{Destination: "BCN"},
			missing: []string{domain.FieldOrigin, domain.FieldDepartureDate},
		},
		{
			exec:    func(p *fakeProvider) Executor { return NewHotelsExecutor(p) },
			query:   domain.TripQuery{Destination: "BCN", DepartureDate: "2024-06-01"},
			missing: []string{domain.FieldReturnDate},
		},
		{
			exec:    func(p *fakeProvider) Executor { return NewActivitiesExecutor(p) },
			query:   domain.TripQuery{Origin: "MAD"},
			missing: []string{domain.FieldDestination},
		},
		{
			exec:    func(p *fakeProvider) Executor { return NewEnrichmentExecutor(p) },
			query:   domain.TripQuery{},
			missing: []string{domain.FieldDestination, domain.FieldDepartureDate, domain.FieldReturnDate},
		},
	}

	for _, tc := range cases {
		fp := &fakeProvider{}
		exec := tc.exec(fp)

		_, err := exec.Execute(context.Background(), tc.query, domain.CompositeTravelPlan{})
		if !errors.Is(err, ErrMissingFields) {
			t.Fatalf("%s: expected ErrMissingFields, got %v", exec.Kind(), err)
		}

		var mfe *MissingFieldsError
		if !errors.As(err, &mfe) {
			t.Fatalf("%s: expected MissingFieldsError", exec.Kind())
		}
		if fmt.Sprint(mfe.Fields) != fmt.Sprint(tc.missing) {
			t.Errorf("%s: expected missing %v, got %v", exec.Kind(), tc.missing, mfe.Fields)
		}
		if fp.calls != 0 {
			t.Errorf("%s: provider should not be called on validation failure", exec.Kind())
		}
	}
}

// Flights Tests

func TestFlights_TruncatesToFive(t *testing.T) {
	fp := &fakeProvider{flights: &provider.Envelope[provider.FlightsData]{
		Success: true,
		Data:    provider.FlightsData{Flights: flightRecords(12)},
	}}

	res, err := NewFlightsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Flights) != MaxResults {
		t.Fatalf("expected %d flights, got %d", MaxResults, len(res.Flights))
	}
	if res.Flights[4].ID != "flight-4" {
		t.Errorf("expected sequential id flight-4, got %s", res.Flights[4].ID)
	}
	if res.Flights[0].Price != "100" {
		t.Errorf("expected numeric price formatted as 100, got %s", res.Flights[0].Price)
	}
	if fp.lastFlights.ReturnDate != "2024-06-05" {
		t.Errorf("return date should be forwarded, got %q", fp.lastFlights.ReturnDate)
	}
}

func TestFlights_MissingFieldsFallback(t *testing.T) {
	fp := &fakeProvider{flights: &provider.Envelope[provider.FlightsData]{
		Success: true,
		Data:    provider.FlightsData{Flights: []provider.Record{{}}},
	}}

	res, err := NewFlightsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Flights[0]
	if f.Airline != "Unknown Airline" {
		t.Errorf("expected Unknown Airline, got %s", f.Airline)
	}
	if f.FlightNumber != "Unknown" || f.DepartureTime != "Unknown" || f.Price != "Unknown" {
		t.Errorf("expected Unknown fallbacks, got %+v", f)
	}
}

func TestFlights_SuccessFalseIsEmpty(t *testing.T) {
	fp := &fakeProvider{flights: &provider.Envelope[provider.FlightsData]{Success: false}}

	res, err := NewFlightsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty {
		t.Error("success=false should yield an empty result")
	}
	if res.Count() != 0 {
		t.Errorf("expected count 0, got %d", res.Count())
	}
}

func TestFlights_SuccessFalseWithStringData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":false,"data":"no flights for route"}`)
	}))
	defer server.Close()

	client := provider.NewClient(provider.ClientConfig{URL: server.URL})

	res, err := NewFlightsExecutor(client).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty {
		t.Error("success=false should yield an empty result")
	}
}

func TestFlights_ZeroRecordsIsEmpty(t *testing.T) {
	fp := &fakeProvider{flights: &provider.Envelope[provider.FlightsData]{Success: true}}

	res, err := NewFlightsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty {
		t.Error("zero records should yield an empty result")
	}
}

func TestFlights_ProviderError(t *testing.T) {
	fp := &fakeProvider{err: provider.ErrRequest}

	_, err := NewFlightsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if !errors.Is(err, provider.ErrRequest) {
		t.Errorf("expected wrapped ErrRequest, got %v", err)
	}
}

// Hotels Tests

func TestHotels_Defaults(t *testing.T) {
	fp := &fakeProvider{hotels: &provider.Envelope[provider.HotelsData]{
		Success: true,
		Data: provider.HotelsData{Hotels: []provider.Record{
			{"name": "Hotel Arts", "rating": 4.5, "thumbnail": "https://img.example/arts.jpg"},
			{"name": "Casa Fuster", "thumbnail": "javascript:alert(1)"},
		}},
	}}

	res, err := NewHotelsExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fp.lastHotels.CheckInDate != "2024-06-01" || fp.lastHotels.CheckOutDate != "2024-06-05" {
		t.Errorf("dates should map to check-in/out, got %+v", fp.lastHotels)
	}

	first, second := res.Hotels[0], res.Hotels[1]
	if first.Rating != 4.5 || first.ImageURL != "https://img.example/arts.jpg" {
		t.Errorf("unexpected first hotel: %+v", first)
	}
	if second.Rating != 0 {
		t.Errorf("missing rating should default to 0, got %v", second.Rating)
	}
	if second.ImageURL != "https://placehold.co/400x300?text=Hotel+Image" {
		t.Errorf("expected placeholder image, got %s", second.ImageURL)
	}
	if second.Address != "Unknown" || second.Price != "Unknown" {
		t.Errorf("expected Unknown fallbacks, got %+v", second)
	}
}

// Activities Tests

func TestActivities_ApplyToQuery(t *testing.T) {
	fp := &fakeProvider{activities: &provider.Envelope[provider.ActivitiesData]{
		Success: true,
		Data: provider.ActivitiesData{Data: []provider.Record{
			{"name": "Sagrada Familia"},
			{"name": "Park Guell"},
			{"name": "<b>Camp Nou</b>"},
		}},
	}}

	res, err := NewActivitiesExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count() != 3 {
		t.Fatalf("expected 3 activities, got %d", res.Count())
	}
	if res.Activities[0].ImageURL != "https://placehold.co/400x300?text=Activity+Image" {
		t.Errorf("expected activity placeholder, got %s", res.Activities[0].ImageURL)
	}

	q := res.ApplyToQuery(fullQuery())
	if q.Activities != "Sagrada Familia, Park Guell, Camp Nou" {
		t.Errorf("unexpected activities text: %q", q.Activities)
	}
	if q.Destination != "BCN" {
		t.Error("other query fields should be unchanged")
	}
}

func TestApplyToQuery_OtherStagesNoop(t *testing.T) {
	res := &Result{Kind: domain.StageFlights, Flights: []domain.FlightOffer{{ID: "flight-0"}}}
	q := fullQuery()
	q.Activities = "previous"

	if got := res.ApplyToQuery(q); got.Activities != "previous" {
		t.Errorf("flights should not touch activities, got %q", got.Activities)
	}
}

// Enrichment Tests

func TestEnrichment_Normalize(t *testing.T) {
	fp := &fakeProvider{plan: &provider.Envelope[provider.Record]{
		Success: true,
		Data: provider.Record{
			"weather":         map[string]any{"temp": "28C"},
			"cuisine":         []any{"paella", map[string]any{"name": "crema catalana"}, 42},
			"packing_list":    []any{"sunscreen"},
			"places_to_visit": "Barceloneta",
		},
	}}

	res, err := NewEnrichmentExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := res.Enrichment
	if e == nil {
		t.Fatal("expected enrichment")
	}
	if e.Weather != `{"temp":"28C"}` {
		t.Errorf("unexpected weather: %s", e.Weather)
	}
	if len(e.Cuisine) != 2 || e.Cuisine[1] != "crema catalana" {
		t.Errorf("unexpected cuisine: %v", e.Cuisine)
	}
	if len(e.PlacesToVisit) != 1 || e.PlacesToVisit[0] != "Barceloneta" {
		t.Errorf("unexpected places: %v", e.PlacesToVisit)
	}
	if e.CityImageURL != "https://placehold.co/400x300?text=City+Image" {
		t.Errorf("expected city placeholder, got %s", e.CityImageURL)
	}
	if res.Count() != 1 {
		t.Errorf("expected count 1, got %d", res.Count())
	}
}

func TestEnrichment_EmptyData(t *testing.T) {
	fp := &fakeProvider{plan: &provider.Envelope[provider.Record]{
		Success: true,
		Data:    provider.Record{"weather": "", "cuisine": []any{}},
	}}

	res, err := NewEnrichmentExecutor(fp).Execute(context.Background(), fullQuery(), domain.CompositeTravelPlan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty {
		t.Error("enrichment without content should be empty")
	}
}

// Normalize Tests

func TestSanitize(t *testing.T) {
	rec := provider.Record{"name": `<script>alert(1)</script>Tapas & Wine`}
	if got := getText(rec, "name"); got != "Tapas & Wine" {
		t.Errorf("unexpected sanitized text: %q", got)
	}
}

func TestGetNumber(t *testing.T) {
	rec := provider.Record{"a": 4.2, "b": "3.5", "c": "n/a"}
	if getNumber(rec, "a") != 4.2 || getNumber(rec, "b") != 3.5 || getNumber(rec, "c") != 0 || getNumber(rec, "d") != 0 {
		t.Error("unexpected number extraction")
	}
}
