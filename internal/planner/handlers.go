package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/telemetry"
	"github.com/shaiso/Itinera/internal/workflow"
)

// handlePlanRequested обрабатывает событие plan.requested.
func (p *Planner) handlePlanRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.PlanRequestedPayload](&delivery.Message)
	if err != nil {
		p.logger.Error("failed to parse plan.requested payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
	}

	p.logger.Debug("received plan.requested event", "plan_id", payload.PlanID)

	err = p.ProcessPlan(ctx, payload.PlanID)
	switch {
	case err == nil:
		return nil
	case skippable(err):
		p.logger.Debug("plan not processed", "plan_id", payload.PlanID, "reason", err)
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
	default:
		p.logger.Error("failed to process plan", "plan_id", payload.PlanID, "error", err)
		return err
	}
}

// ProcessPlan забирает запрос и собирает план до финала или остановки.
//
// На время сборки план арендуется: пока аренду держит API или другой
// планировщик, запрос не забирается (ErrPlanBusy). Остановка шага
// переводит план в error. При отмене ctx план остаётся незавершённым,
// запрос восстанавливается для следующего запуска.
func (p *Planner) ProcessPlan(ctx context.Context, id uuid.UUID) error {
	if err := p.addActivePlan(id); err != nil {
		return err
	}
	defer p.removeActivePlan(id)

	owner := "planner/" + uuid.NewString()
	if err := p.plans.AcquireLease(ctx, id, owner, p.leaseTTL); err != nil {
		if errors.Is(err, repo.ErrLeased) {
			return ErrPlanBusy
		}
		return fmt.Errorf("lease plan: %w", err)
	}
	defer func() {
		if err := p.plans.ReleaseLease(context.WithoutCancel(ctx), id, owner); err != nil {
			p.logger.Warn("failed to release plan lease", "plan_id", id, "error", err)
		}
	}()

	claimed, err := p.plans.ClaimRequested(ctx, id)
	if err != nil {
		return fmt.Errorf("claim plan: %w", err)
	}
	if !claimed {
		return ErrPlanNotRequested
	}

	plan, err := p.plans.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if plan.Status.IsTerminal() {
		return ErrPlanFinished
	}

	logger := telemetry.WithUserID(telemetry.WithPlanID(p.logger, id.String()), plan.UserID)
	logger.Info("building plan", "stage", plan.Progress.Current.String(), "parallel", p.parallel)

	start := time.Now()
	st, runErr := p.controller.RunAll(ctx, workflow.StateFromPlan(plan), p.parallel)

	// Состояние сохраняется и при отмене ctx.
	saveCtx := context.WithoutCancel(ctx)

	switch {
	case runErr == nil:
		logger.Info("plan built", "duration", time.Since(start))

	case ctx.Err() != nil:
		logger.Warn("plan build interrupted", "stage", st.Current().String(), "error", runErr)
		if err := p.plans.MarkRequested(saveCtx, id, plan.UserID, time.Now().UTC()); err != nil {
			logger.Error("failed to restore plan request", "error", err)
		}

	default:
		logger.Warn("plan build halted", "stage", st.Current().String(), "error", runErr)
		abandoned, err := p.controller.Abandon(saveCtx, st, runErr.Error())
		if err != nil {
			logger.Error("failed to abandon plan", "error", err)
		} else {
			st = abandoned
		}
	}

	st.ApplyTo(plan)
	if err := p.plans.SaveProgress(saveCtx, plan, owner); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	return nil
}
