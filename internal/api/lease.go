package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// leasedPlan — план, арендованный на время запроса.
type leasedPlan struct {
	*domain.Plan
	owner   string
	release func()
}

// leasePlan проверяет владельца, арендует план и перечитывает его под
// арендой. Пока план собирает планировщик или другой запрос, отвечает 409.
// false — ответ уже отправлен.
func (h *Handler) leasePlan(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*leasedPlan, bool) {
	ctx := r.Context()

	if _, err := h.plans.GetForUser(ctx, id, UserID(ctx)); HandleRepoError(w, h.logger, err, "plan not found") {
		return nil, false
	}

	owner := "api/" + uuid.NewString()
	if err := h.plans.AcquireLease(ctx, id, owner, h.leaseTTL); HandleRepoError(w, h.logger, err, "plan not found") {
		return nil, false
	}

	release := func() {
		if err := h.plans.ReleaseLease(context.WithoutCancel(ctx), id, owner); err != nil {
			h.logger.Warn("failed to release plan lease", "plan_id", id, "error", err)
		}
	}

	plan, err := h.plans.Get(ctx, id)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		release()
		return nil, false
	}

	return &leasedPlan{Plan: plan, owner: owner, release: release}, true
}
