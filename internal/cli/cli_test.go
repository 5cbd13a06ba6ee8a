package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type apiStub struct {
	t        *testing.T
	requests []*http.Request
	bodies   []map[string]any
	advances int
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)

	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "UNAUTHORIZED", "message": "authentication required"}})
		return
	}

	plan := map[string]any{
		"id":            "p1",
		"title":         "Barcelona",
		"status":        "draft",
		"current_stage": "flights",
		"query":         map[string]string{"destination": "BCN", "departure_date": "2024-06-01", "return_date": "2024-06-05"},
		"stages":        []map[string]any{{"stage": "flights", "state": "idle"}},
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/plans":
		json.NewEncoder(w).Encode(map[string]any{"data": []any{plan}, "total": 1})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/plans":
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": plan})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/plans/p1/advance":
		s.advances++
		resp := map[string]any{
			"outcome": "advanced",
			"plan":    plan,
			"events": []map[string]string{
				{"kind": "stage_started", "title": "Buscando vuelos", "description": "MAD → BCN", "variant": "default"},
			},
		}
		if s.advances == 2 {
			resp["outcome"] = "halted"
			resp["halt"] = map[string]any{"kind": "empty", "stage": "hotels"}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": resp})
	case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/plans/p1":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/plans/missing":
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "NOT_FOUND", "message": "plan not found"}})
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func runCLI(t *testing.T, stub *apiStub, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()

	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	var stdout, stderr bytes.Buffer
	cmd := NewPlanCmd(
		func() *Client { return NewClient(server.URL, "tok") },
		func() *Output { return &Output{jsonMode: jsonMode, w: &stdout, errW: &stderr} },
	)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPlanList_Table(t *testing.T) {
	stub := &apiStub{t: t}
	stdout, _, err := runCLI(t, stub, false, "list", "--status", "draft")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(stdout, "DESTINATION") || !strings.Contains(stdout, "BCN") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	if got := stub.requests[0].URL.Query().Get("status"); got != "draft" {
		t.Errorf("status param = %q", got)
	}
}

func TestPlanList_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, &apiStub{t: t}, true, "list")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var plans []PlanResponse
	if err := json.Unmarshal([]byte(stdout), &plans); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(plans) != 1 || plans[0].ID != "p1" {
		t.Errorf("plans = %+v", plans)
	}
}

func TestPlanCreate(t *testing.T) {
	stub := &apiStub{t: t}
	_, stderr, err := runCLI(t, stub, false, "create", "Barcelona",
		"--origin", "MAD", "--destination", "BCN", "--departure", "2024-06-01", "--return", "2024-06-05")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(stderr, "Plan created: p1") {
		t.Errorf("stderr = %q", stderr)
	}
	query, _ := stub.bodies[0]["query"].(map[string]any)
	if stub.bodies[0]["title"] != "Barcelona" || query["origin"] != "MAD" || query["return_date"] != "2024-06-05" {
		t.Errorf("request body = %v", stub.bodies[0])
	}
}

func TestPlanCreate_RequiresDates(t *testing.T) {
	_, _, err := runCLI(t, &apiStub{t: t}, false, "create", "Barcelona", "--destination", "BCN")
	if err == nil {
		t.Error("expected error for missing required flags")
	}
}

func TestPlanAdvance_AllStopsOnHalt(t *testing.T) {
	stub := &apiStub{t: t}
	_, stderr, err := runCLI(t, stub, false, "advance", "p1", "--all")
	if err == nil || !strings.Contains(err.Error(), "hotels halted: empty") {
		t.Fatalf("err = %v", err)
	}

	if stub.advances != 2 {
		t.Errorf("advances = %d, want 2", stub.advances)
	}
	if strings.Count(stderr, "Buscando vuelos") != 2 {
		t.Errorf("events not printed:\n%s", stderr)
	}
}

func TestPlanDelete(t *testing.T) {
	_, stderr, err := runCLI(t, &apiStub{t: t}, false, "delete", "p1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stderr, "Plan deleted: p1") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestPlanShow_APIError(t *testing.T) {
	_, _, err := runCLI(t, &apiStub{t: t}, false, "show", "missing")
	if err == nil || err.Error() != "NOT_FOUND: plan not found" {
		t.Errorf("err = %v", err)
	}
}

func TestClient_SendsToken(t *testing.T) {
	stub := &apiStub{t: t}
	server := httptest.NewServer(stub)
	defer server.Close()

	_, err := NewClient(server.URL, "").ListPlans(ListPlansOpts{})
	if err == nil || !strings.Contains(err.Error(), "UNAUTHORIZED") {
		t.Errorf("err = %v", err)
	}
}
