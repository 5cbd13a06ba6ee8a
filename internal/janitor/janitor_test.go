package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/repo"
)

func newTestJanitor(t *testing.T) (*Janitor, *repo.SQLitePlanRepo) {
	t.Helper()

	db, err := repo.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	plans := repo.NewSQLitePlanRepo(db)

	j, err := New(Config{
		Plans:      plans,
		StaleAfter: time.Hour,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return j, plans
}

func createPlan(t *testing.T, plans repo.Plans, status domain.PlanStatus) *domain.Plan {
	t.Helper()

	ctx := context.Background()
	plan := domain.NewPlan("user-1", "Lisbon", "", domain.TripQuery{
		Destination:   "LIS",
		DepartureDate: "2024-09-01",
		ReturnDate:    "2024-09-03",
	})
	if err := plans.Create(ctx, plan); err != nil {
		t.Fatalf("create: %v", err)
	}
	if status != domain.PlanStatusDraft {
		if err := plans.UpdateStatus(ctx, plan.ID, domain.StatusUpdate{Status: status}); err != nil {
			t.Fatalf("update status: %v", err)
		}
	}
	return plan
}

func TestNew_InvalidCron(t *testing.T) {
	if _, err := New(Config{Cron: "every minute"}); err == nil {
		t.Error("expected error for invalid cron")
	}
}

func TestNew_Defaults(t *testing.T) {
	j, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if j.staleAfter != defaultStaleAfter || j.batchSize != defaultBatchSize {
		t.Errorf("staleAfter = %v, batchSize = %d", j.staleAfter, j.batchSize)
	}
}

func TestJanitor_Tick_ClosesStale(t *testing.T) {
	j, plans := newTestJanitor(t)
	ctx := context.Background()

	stale := createPlan(t, plans, domain.PlanStatusProcessing)
	draft := createPlan(t, plans, domain.PlanStatusDraft)

	closed, err := j.Tick(ctx, time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}

	got, _ := plans.Get(ctx, stale.ID)
	if got.Status != domain.PlanStatusError || got.Error == "" {
		t.Errorf("stale plan: status = %s, error = %q", got.Status, got.Error)
	}

	got, _ = plans.Get(ctx, draft.ID)
	if got.Status != domain.PlanStatusDraft {
		t.Errorf("draft plan status = %s", got.Status)
	}
}

func TestJanitor_Tick_KeepsFresh(t *testing.T) {
	j, plans := newTestJanitor(t)
	ctx := context.Background()

	fresh := createPlan(t, plans, domain.PlanStatusProcessing)

	closed, err := j.Tick(ctx, time.Now())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0", closed)
	}

	got, _ := plans.Get(ctx, fresh.ID)
	if got.Status != domain.PlanStatusProcessing {
		t.Errorf("status = %s", got.Status)
	}
}

func TestJanitor_Tick_SkipsLeased(t *testing.T) {
	j, plans := newTestJanitor(t)
	ctx := context.Background()

	busy := createPlan(t, plans, domain.PlanStatusProcessing)
	if err := plans.AcquireLease(ctx, busy.ID, "planner/1", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	closed, err := j.Tick(ctx, time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0", closed)
	}

	got, _ := plans.Get(ctx, busy.ID)
	if got.Status != domain.PlanStatusProcessing {
		t.Errorf("leased plan status = %s", got.Status)
	}

	// Аренда держателя не снята.
	if err := plans.AcquireLease(ctx, busy.ID, "api/1", time.Minute); !errors.Is(err, repo.ErrLeased) {
		t.Errorf("lease lost: %v", err)
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	j, _ := newTestJanitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 6, 1, 10, 2, 0, 0, time.UTC)

	next, err := NextRun(DefaultCron, from)
	if err != nil {
		t.Fatalf("next run: %v", err)
	}
	want := time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("expected error for minute 61")
	}
}
