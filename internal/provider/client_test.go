package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_SearchFlights_RequestShape(t *testing.T) {
	var received map[string]any
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"flights": []any{
					map[string]any{"airline": "Iberia", "price": 120},
					map[string]any{"airline": "Vueling"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL, Token: "secret"})
	env, err := client.SearchFlights(context.Background(), FlightSearch{
		Origin:        "MAD",
		Destination:   "BCN",
		DepartureDate: "2024-06-01",
		ReturnDate:    "2024-06-05",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received["type"] != "flights" {
		t.Errorf("expected type flights, got %v", received["type"])
	}
	data, ok := received["data"].(map[string]any)
	if !ok {
		t.Fatalf("data should be an object, got %T", received["data"])
	}
	if data["origin"] != "MAD" || data["destination"] != "BCN" || data["departure_date"] != "2024-06-01" {
		t.Errorf("unexpected request data: %v", data)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", auth)
	}

	if !env.Success {
		t.Error("expected success")
	}
	if len(env.Data.Flights) != 2 {
		t.Fatalf("expected 2 flights, got %d", len(env.Data.Flights))
	}
	if env.Data.Flights[0]["airline"] != "Iberia" {
		t.Errorf("unexpected first flight: %v", env.Data.Flights[0])
	}
}

func TestClient_SearchHotels_UsesCheckInOut(t *testing.T) {
	var received struct {
		Type string      `json:"type"`
		Data HotelSearch `json:"data"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"success": true, "data": {"hotels": []}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})
	_, err := client.SearchHotels(context.Background(), HotelSearch{
		Destination:  "BCN",
		CheckInDate:  "2024-06-01",
		CheckOutDate: "2024-06-05",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Type != "hotels" {
		t.Errorf("expected type hotels, got %s", received.Type)
	}
	if received.Data.CheckInDate != "2024-06-01" || received.Data.CheckOutDate != "2024-06-05" {
		t.Errorf("unexpected hotel search: %+v", received.Data)
	}
}

func TestClient_SuccessFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})
	env, err := client.SearchActivities(context.Background(), ActivitySearch{Destination: "BCN"})
	if err != nil {
		t.Fatalf("success=false should not be an error: %v", err)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if len(env.Data.Data) != 0 {
		t.Error("expected no records")
	}
}

func TestClient_SuccessFalseIgnoresData(t *testing.T) {
	for _, body := range []string{
		`{"success": false, "data": "no flights for route"}`,
		`{"success": false, "data": []}`,
		`{"success": false, "error": "quota"}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(body))
		}))

		client := NewClient(ClientConfig{URL: server.URL})
		env, err := client.SearchFlights(context.Background(), FlightSearch{Origin: "MAD", Destination: "BCN"})
		server.Close()

		if err != nil {
			t.Errorf("%s: unexpected error: %v", body, err)
			continue
		}
		if env.Success || len(env.Data.Flights) != 0 {
			t.Errorf("%s: envelope = %+v", body, env)
		}
	}
}

func TestClient_SuccessWithMalformedData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "data": "oops"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})
	_, err := client.SearchFlights(context.Background(), FlightSearch{})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})
	_, err := client.SearchFlights(context.Background(), FlightSearch{})
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !IsStatusError(err) {
		t.Errorf("expected StatusError, got %v", err)
	}

	var se *StatusError
	if errors.As(err, &se) && se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", se.StatusCode)
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})
	_, err := client.GenerateTravelPlan(context.Background(), PlanRequest{Destination: "BCN"})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SearchFlights(ctx, FlightSearch{})
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(ClientConfig{})
	_, err := client.SearchFlights(context.Background(), FlightSearch{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
