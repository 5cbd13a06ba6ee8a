package repo

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// testDBEnv — DSN тестовой базы PostgreSQL. Без него тесты PlanRepo пропускаются.
const testDBEnv = "ITINERA_TEST_DB_URL"

func TestAllowedFrom(t *testing.T) {
	tests := []struct {
		to   domain.PlanStatus
		want []string
	}{
		{domain.PlanStatusProcessing, []string{"draft", "processing"}},
		{domain.PlanStatusCompleted, []string{"processing"}},
		{domain.PlanStatusError, []string{"draft", "processing"}},
		{domain.PlanStatusDraft, nil},
		{domain.PlanStatus("unknown"), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			got := allowedFrom(tt.to)
			if !slices.Equal(got, tt.want) {
				t.Errorf("allowedFrom(%s) = %v, want %v", tt.to, got, tt.want)
			}
			if slices.Contains(got, string(domain.PlanStatusCompleted)) {
				t.Errorf("completed plan must stay terminal, got %v", got)
			}
		})
	}
}

func TestCheckUpdate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p := newTestPlan("user-1")
	if err := r.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name   string
		id     uuid.UUID
		userID string
		want   error
	}{
		{"existing any owner", p.ID, "", ErrInvalidState},
		{"existing own", p.ID, "user-1", ErrInvalidState},
		{"foreign user", p.ID, "user-2", ErrNotFound},
		{"missing", uuid.New(), "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkUpdate(ctx, r, tt.id, tt.userID, "plan is finished")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckLeased(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	draft := newTestPlan("user-1")
	done := newTestPlan("user-1")
	for _, p := range []*domain.Plan{draft, done} {
		if err := r.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	for _, s := range []domain.PlanStatus{domain.PlanStatusProcessing, domain.PlanStatusCompleted} {
		if err := r.UpdateStatus(ctx, done.ID, domain.StatusUpdate{Status: s}); err != nil {
			t.Fatalf("to %s: %v", s, err)
		}
	}

	tests := []struct {
		name   string
		id     uuid.UUID
		userID string
		want   error
	}{
		{"active plan", draft.ID, "", ErrLeased},
		{"active own plan", draft.ID, "user-1", ErrLeased},
		{"completed plan", done.ID, "", ErrInvalidState},
		{"foreign user", draft.ID, "user-2", ErrNotFound},
		{"missing", uuid.New(), "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkLeased(ctx, r, tt.id, tt.userID)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPlans_SQLite(t *testing.T) {
	testPlans(t, newTestRepo(t))
}

func TestPlanRepo_Postgres(t *testing.T) {
	dsn := os.Getenv(testDBEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDBEnv)
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	testPlans(t, NewPlanRepo(pool))
}

// testPlans проверяет общее поведение реализаций Plans.
// Пользователь уникален на запуск, чтобы не зависеть от данных в базе.
func testPlans(t *testing.T, r Plans) {
	t.Helper()
	ctx := context.Background()
	user := "user-" + uuid.NewString()

	p := newTestPlan(user)
	other := newTestPlan(user)
	for _, plan := range []*domain.Plan{p, other} {
		if err := r.Create(ctx, plan); err != nil {
			t.Fatalf("create: %v", err)
		}
		id := plan.ID
		t.Cleanup(func() { _ = r.Delete(context.Background(), id, user) })
	}

	// Переходы статусов.
	err := r.UpdateStatus(ctx, p.ID, domain.StatusUpdate{Status: domain.PlanStatusCompleted})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("draft → completed: expected ErrInvalidState, got %v", err)
	}
	if err := r.UpdateStatus(ctx, p.ID, domain.StatusUpdate{Status: domain.PlanStatusProcessing}); err != nil {
		t.Fatalf("to processing: %v", err)
	}

	// Аренда и запись прогресса.
	if err := r.AcquireLease(ctx, p.ID, "planner", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := r.AcquireLease(ctx, p.ID, "api", time.Minute); !errors.Is(err, ErrLeased) {
		t.Errorf("foreign acquire: expected ErrLeased, got %v", err)
	}

	p.Progress.Current = domain.StageHotels
	p.Itinerary.Flights = []domain.FlightOffer{{ID: "flight-0", Airline: "Iberia"}}
	if err := r.SaveProgress(ctx, p, "api"); !errors.Is(err, ErrLeased) {
		t.Errorf("save without lease: expected ErrLeased, got %v", err)
	}
	if err := r.SaveProgress(ctx, p, "planner"); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if err := r.ReleaseLease(ctx, p.ID, "planner"); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Завершение без itinerary сохраняет накопленный.
	if err := r.UpdateStatus(ctx, p.ID, domain.StatusUpdate{Status: domain.PlanStatusCompleted}); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	got, err := r.GetForUser(ctx, p.ID, user)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.PlanStatusCompleted || got.Progress.Current != domain.StageHotels {
		t.Errorf("unexpected plan: %+v", got)
	}
	if len(got.Itinerary.Flights) != 1 || got.Itinerary.Flights[0].Airline != "Iberia" {
		t.Errorf("itinerary lost on completion: %+v", got.Itinerary)
	}

	err = r.UpdateStatus(ctx, p.ID, domain.StatusUpdate{Status: domain.PlanStatusError, Error: "late"})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("completed → error: expected ErrInvalidState, got %v", err)
	}
	if err := r.MarkRequested(ctx, p.ID, user, time.Now()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("mark completed: expected ErrInvalidState, got %v", err)
	}

	// Фильтр по статусу.
	completed, err := r.ListByUser(ctx, user, PlanFilter{Status: domain.PlanStatusCompleted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != p.ID {
		t.Errorf("expected only the completed plan, got %d plans", len(completed))
	}
	all, err := r.ListByUser(ctx, user, PlanFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 plans, got %d", len(all))
	}

	// Запрос фоновой сборки снимается один раз.
	if err := r.MarkRequested(ctx, other.ID, user, time.Now()); err != nil {
		t.Fatalf("mark requested: %v", err)
	}
	claimed, err := r.ClaimRequested(ctx, other.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	claimed, err = r.ClaimRequested(ctx, other.ID)
	if err != nil || claimed {
		t.Errorf("second claim: claimed=%v err=%v", claimed, err)
	}

	if _, err := r.GetForUser(ctx, other.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get: expected ErrNotFound, got %v", err)
	}
	if err := r.Delete(ctx, other.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: expected ErrNotFound, got %v", err)
	}
}
