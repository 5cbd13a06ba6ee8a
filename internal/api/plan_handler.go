package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/notify"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/workflow"
)

// ListPlans возвращает планы пользователя.
// GET /api/v1/plans?status=...&limit=...&offset=...
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	filter := repo.PlanFilter{Limit: 50}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.PlanStatus(status)
		if !filter.Status.Valid() {
			BadRequest(w, "invalid status")
			return
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = mustParseInt(limitStr, 50)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = mustParseInt(offsetStr, 0)
	}

	plans, err := h.plans.ListByUser(r.Context(), UserID(r.Context()), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]PlanResponse, len(plans))
	for i, p := range plans {
		result[i] = PlanFromDomain(p)
	}

	List(w, result, len(result))
}

// CreatePlan создаёт план-черновик.
// POST /api/v1/plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	title := cleanText(req.Title)
	query := req.Query.ToDomain()
	if err := validatePlanInput(title, query); err != nil {
		BadRequest(w, err.Error())
		return
	}

	plan := domain.NewPlan(UserID(r.Context()), title, cleanText(req.Description), query)
	if err := h.plans.Create(r.Context(), plan); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("plan created", "plan_id", plan.ID, "user_id", plan.UserID)
	Created(w, PlanFromDomain(*plan))
}

// GetPlan возвращает план по ID.
// GET /api/v1/plans/{id}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	plan, err := h.plans.GetForUser(r.Context(), id, UserID(r.Context()))
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	Success(w, PlanFromDomain(*plan))
}

// UpdatePlan обновляет название, описание и параметры поездки.
// PUT /api/v1/plans/{id}
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	leased, ok := h.leasePlan(w, r, id)
	if !ok {
		return
	}
	defer leased.release()

	plan := leased.Plan
	if plan.IsFinalized() {
		InvalidState(w, "plan is finalized")
		return
	}

	if req.Title != nil {
		plan.Title = cleanText(*req.Title)
	}
	if req.Description != nil {
		plan.Description = cleanText(*req.Description)
	}
	if req.Query != nil {
		query := req.Query.ToDomain()
		query.Activities = plan.Query.Activities
		plan.Query = query
	}
	if err := validatePlanInput(plan.Title, plan.Query); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.plans.Update(r.Context(), plan, leased.owner); HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	Success(w, PlanFromDomain(*plan))
}

// DeletePlan удаляет план.
// DELETE /api/v1/plans/{id}
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	leased, ok := h.leasePlan(w, r, id)
	if !ok {
		return
	}
	defer leased.release()

	err := h.plans.Delete(r.Context(), id, UserID(r.Context()))
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	h.logger.Info("plan deleted", "plan_id", id)
	NoContent(w)
}

// AdvancePlan синхронно выполняет текущий шаг плана.
// POST /api/v1/plans/{id}/advance
//
// Остановка шага (пустой результат, ошибка провайдера, незаполненные
// поля) — штатный исход: ответ 200 с outcome=halted и уведомлениями.
func (h *Handler) AdvancePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	leased, ok := h.leasePlan(w, r, id)
	if !ok {
		return
	}
	defer leased.release()

	ctx := r.Context()
	plan := leased.Plan
	if plan.Status == domain.PlanStatusError {
		InvalidState(w, "plan was abandoned")
		return
	}

	recorder := notify.NewRecorder()
	st, err := h.controller.WithNotifier(recorder).Advance(ctx, workflow.StateFromPlan(plan))
	if err != nil && !workflow.IsStageError(err) {
		HandleWorkflowError(w, h.logger, err)
		return
	}

	outcome := OutcomeAdvanced
	switch {
	case err != nil:
		outcome = OutcomeHalted
	case st.Finalized():
		outcome = OutcomeCompleted
	}

	st.ApplyTo(plan)
	if saveErr := h.plans.SaveProgress(ctx, plan, leased.owner); HandleRepoError(w, h.logger, saveErr, "plan not found") {
		return
	}

	events := recorder.Events()
	resp := AdvanceResponse{
		Outcome: outcome,
		Plan:    PlanFromDomain(*plan),
		Events:  make([]EventResponse, len(events)),
		Halt:    haltFromError(err),
	}
	for i, e := range events {
		resp.Events[i] = EventFromNotify(e)
	}

	Success(w, resp)
}

// RunPlan запрашивает фоновую сборку плана.
// POST /api/v1/plans/{id}/run
func (h *Handler) RunPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	userID := UserID(ctx)

	err := h.plans.MarkRequested(ctx, id, userID, time.Now().UTC())
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	// Без сообщения план всё равно будет найден опросом планировщика.
	if h.requester != nil {
		if err := h.requester.PublishPlanRequested(ctx, id, userID); err != nil {
			h.logger.Warn("failed to publish plan request", "plan_id", id, "error", err)
		}
	}

	plan, err := h.plans.GetForUser(ctx, id, userID)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: PlanFromDomain(*plan)})
}

// AbandonPlan окончательно прекращает сборку плана.
// POST /api/v1/plans/{id}/abandon
func (h *Handler) AbandonPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	var req AbandonPlanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}
	reason := cleanText(req.Reason)
	if reason == "" {
		reason = "abandoned by user"
	}

	leased, ok := h.leasePlan(w, r, id)
	if !ok {
		return
	}
	defer leased.release()

	ctx := r.Context()
	plan := leased.Plan
	if plan.Status.IsTerminal() {
		InvalidState(w, "plan is "+string(plan.Status))
		return
	}

	if _, err := h.controller.Abandon(ctx, workflow.StateFromPlan(plan), reason); err != nil {
		if errors.Is(err, repo.ErrInvalidState) || errors.Is(err, repo.ErrNotFound) {
			HandleRepoError(w, h.logger, err, "plan not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	plan, err := h.plans.GetForUser(ctx, id, UserID(ctx))
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	Success(w, PlanFromDomain(*plan))
}

// parsePlanID извлекает ID плана из пути. При ошибке отправляет 400.
func parsePlanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return uuid.Nil, false
	}
	return id, true
}

// mustParseInt парсит int или возвращает значение по умолчанию.
func mustParseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
