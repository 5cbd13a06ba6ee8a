package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/provider"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/stages"
	"github.com/shaiso/Itinera/internal/workflow"
)

// fakeProvider отвечает фиксированными данными.
type fakeProvider struct {
	noHotels bool

	// onHotels вызывается перед ответом на поиск отелей.
	onHotels func()
}

func (f *fakeProvider) SearchFlights(context.Context, provider.FlightSearch) (*provider.Envelope[provider.FlightsData], error) {
	return &provider.Envelope[provider.FlightsData]{Success: true, Data: provider.FlightsData{
		Flights: []provider.Record{{"airline": "Iberia"}},
	}}, nil
}

func (f *fakeProvider) SearchHotels(ctx context.Context, _ provider.HotelSearch) (*provider.Envelope[provider.HotelsData], error) {
	if f.onHotels != nil {
		f.onHotels()
		return nil, fmt.Errorf("%w: %w", provider.ErrRequest, ctx.Err())
	}
	if f.noHotels {
		return &provider.Envelope[provider.HotelsData]{Success: false}, nil
	}
	return &provider.Envelope[provider.HotelsData]{Success: true, Data: provider.HotelsData{
		Hotels: []provider.Record{{"name": "Hotel Arts"}},
	}}, nil
}

func (f *fakeProvider) SearchActivities(context.Context, provider.ActivitySearch) (*provider.Envelope[provider.ActivitiesData], error) {
	return &provider.Envelope[provider.ActivitiesData]{Success: true, Data: provider.ActivitiesData{
		Data: []provider.Record{{"name": "Sagrada Familia"}},
	}}, nil
}

func (f *fakeProvider) GenerateTravelPlan(context.Context, provider.PlanRequest) (*provider.Envelope[provider.Record], error) {
	return &provider.Envelope[provider.Record]{Success: true, Data: provider.Record{"weather": "Sunny"}}, nil
}

func newTestPlanner(t *testing.T, fp *fakeProvider, parallel bool) (*Planner, *repo.SQLitePlanRepo) {
	t.Helper()

	db, err := repo.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	plans := repo.NewSQLitePlanRepo(db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	controller := workflow.New(workflow.Config{
		Registry: stages.DefaultRegistry(fp, fp),
		Store:    plans,
		Logger:   logger,
	})

	return New(Config{
		Plans:      plans,
		Controller: controller,
		Parallel:   parallel,
		Logger:     logger,
	}), plans
}

func requestPlan(t *testing.T, plans repo.Plans) *domain.Plan {
	t.Helper()

	ctx := context.Background()
	plan := domain.NewPlan("user-1", "Barcelona", "", domain.TripQuery{
		Origin:        "MAD",
		Destination:   "BCN",
		DepartureDate: "2024-06-01",
		ReturnDate:    "2024-06-05",
	})
	if err := plans.Create(ctx, plan); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := plans.MarkRequested(ctx, plan.ID, plan.UserID, time.Now()); err != nil {
		t.Fatalf("mark requested: %v", err)
	}
	return plan
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})

	if p.pollInterval != defaultPollInterval {
		t.Errorf("pollInterval = %v", p.pollInterval)
	}
	if p.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d", p.batchSize)
	}
	if p.logger == nil {
		t.Error("logger should default")
	}
}

func TestPlanner_ProcessPlan_Completes(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			p, plans := newTestPlanner(t, &fakeProvider{}, parallel)
			plan := requestPlan(t, plans)

			if err := p.ProcessPlan(context.Background(), plan.ID); err != nil {
				t.Fatalf("process: %v", err)
			}

			got, err := plans.Get(context.Background(), plan.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != domain.PlanStatusCompleted || !got.Progress.Finalized {
				t.Errorf("status = %s, finalized = %v", got.Status, got.Progress.Finalized)
			}
			if got.RequestedAt != nil {
				t.Error("request should be claimed")
			}
			if got.Itinerary.Weather != "Sunny" || len(got.Itinerary.Hotels) != 1 {
				t.Errorf("itinerary = %+v", got.Itinerary)
			}
			if p.ActivePlansCount() != 0 {
				t.Error("plan should not stay active")
			}
		})
	}
}

func TestPlanner_ProcessPlan_HaltMarksError(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{noHotels: true}, false)
	plan := requestPlan(t, plans)

	if err := p.ProcessPlan(context.Background(), plan.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := plans.Get(context.Background(), plan.ID)
	if got.Status != domain.PlanStatusError || got.Error == "" {
		t.Errorf("status = %s, error = %q", got.Status, got.Error)
	}
	if got.Progress.Current != domain.StageHotels {
		t.Errorf("current = %s", got.Progress.Current)
	}
	if st := got.Progress.Stage(domain.StageHotels); st.State != domain.StageStateFailed || st.ErrorKind != domain.FailureEmpty {
		t.Errorf("hotels stage = %+v", st)
	}
	if len(got.Itinerary.Flights) != 1 {
		t.Error("flights should be kept")
	}
}

func TestPlanner_ProcessPlan_NotRequested(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{}, false)
	plan := requestPlan(t, plans)

	if err := p.ProcessPlan(context.Background(), plan.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := p.ProcessPlan(context.Background(), plan.ID); !errors.Is(err, ErrPlanNotRequested) {
		t.Errorf("second process: err = %v, want ErrPlanNotRequested", err)
	}
}

func TestPlanner_ProcessPlan_AlreadyActive(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{}, false)
	plan := requestPlan(t, plans)

	if err := p.addActivePlan(plan.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.ProcessPlan(context.Background(), plan.ID); !errors.Is(err, ErrPlanAlreadyActive) {
		t.Errorf("err = %v, want ErrPlanAlreadyActive", err)
	}

	got, _ := plans.Get(context.Background(), plan.ID)
	if got.RequestedAt == nil {
		t.Error("request should stay pending")
	}
}

func TestPlanner_ProcessPlan_InterruptedRestoresRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, plans := newTestPlanner(t, &fakeProvider{onHotels: cancel}, false)
	plan := requestPlan(t, plans)

	if err := p.ProcessPlan(ctx, plan.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := plans.Get(context.Background(), plan.ID)
	if got.Status != domain.PlanStatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.RequestedAt == nil {
		t.Error("request should be restored")
	}
	if got.Progress.Current != domain.StageHotels || len(got.Itinerary.Flights) != 1 {
		t.Errorf("progress not saved: %+v", got.Progress)
	}
}

func TestPlanner_Poll(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{}, false)
	first := requestPlan(t, plans)
	second := requestPlan(t, plans)

	p.poll(context.Background())

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, _ := plans.Get(context.Background(), id)
		if got.Status != domain.PlanStatusCompleted {
			t.Errorf("plan %s status = %s", id, got.Status)
		}
	}

	requested, err := plans.ListRequested(context.Background(), 10)
	if err != nil || len(requested) != 0 {
		t.Errorf("requested = %d, err = %v", len(requested), err)
	}
}

func TestPlanner_HandlePlanRequested(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{}, false)
	plan := requestPlan(t, plans)

	delivery := &mq.Delivery{Message: *mq.NewMessage(mq.MessageTypePlanRequested, mq.PlanRequestedPayload{
		PlanID: plan.ID,
		UserID: plan.UserID,
	})}
	if err := p.handlePlanRequested(context.Background(), delivery); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := plans.Get(context.Background(), plan.ID)
	if got.Status != domain.PlanStatusCompleted {
		t.Errorf("status = %s", got.Status)
	}

	// Повторная доставка подтверждается без работы.
	if err := p.handlePlanRequested(context.Background(), delivery); err != nil {
		t.Errorf("redelivery: %v", err)
	}
}

func TestPlanner_HandlePlanRequested_Malformed(t *testing.T) {
	p, _ := newTestPlanner(t, &fakeProvider{}, false)

	delivery := &mq.Delivery{Message: mq.Message{Type: mq.MessageTypePlanRequested, Payload: "garbage"}}
	err := p.handlePlanRequested(context.Background(), delivery)
	if !errors.Is(err, mq.ErrPermanent) {
		t.Errorf("err = %v, want ErrPermanent", err)
	}
}

func TestPlanner_IsStopped(t *testing.T) {
	p, _ := newTestPlanner(t, &fakeProvider{}, false)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.IsStopped() {
		t.Error("should not be stopped after Start")
	}

	p.Stop()
	if !p.IsStopped() {
		t.Error("should be stopped after Stop")
	}
}

func TestPlanner_ProcessPlan_LeasedByOther(t *testing.T) {
	p, plans := newTestPlanner(t, &fakeProvider{}, false)
	plan := requestPlan(t, plans)
	ctx := context.Background()

	if err := plans.AcquireLease(ctx, plan.ID, "api/request", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := p.ProcessPlan(ctx, plan.ID); !errors.Is(err, ErrPlanBusy) {
		t.Fatalf("err = %v, want ErrPlanBusy", err)
	}

	got, _ := plans.Get(ctx, plan.ID)
	if got.RequestedAt == nil || got.Status != domain.PlanStatusDraft {
		t.Errorf("busy plan was touched: status = %s, requested = %v", got.Status, got.RequestedAt)
	}

	if err := plans.ReleaseLease(ctx, plan.ID, "api/request"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := p.ProcessPlan(ctx, plan.ID); err != nil {
		t.Fatalf("process after release: %v", err)
	}
	got, _ = plans.Get(ctx, plan.ID)
	if got.Status != domain.PlanStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}

	// Аренда освобождена после сборки.
	if err := plans.AcquireLease(ctx, plan.ID, "api/next", time.Minute); err != nil {
		t.Errorf("lease not released: %v", err)
	}
}
