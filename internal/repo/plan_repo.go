package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Itinera/internal/domain"
)

// PlanRepo — хранилище планов в PostgreSQL.
type PlanRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo создаёт PlanRepo.
func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

var _ Plans = (*PlanRepo)(nil)

const planColumns = `id, user_id, title, description, query, status, progress,
	itinerary, error, requested_at, created_at, updated_at`

// Create создаёт план.
func (r *PlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Title,
		nullString(p.Description),
		docs.query,
		p.Status,
		docs.progress,
		docs.itinerary,
		nullString(p.Error),
		p.RequestedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// Get возвращает план по ID.
func (r *PlanRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, id))
}

// GetForUser возвращает план владельца.
func (r *PlanRepo) GetForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1 AND user_id = $2`
	return scanPlan(r.pool.QueryRow(ctx, query, id, userID))
}

// ListByUser возвращает планы пользователя, новые первыми.
func (r *PlanRepo) ListByUser(ctx context.Context, userID string, filter PlanFilter) ([]domain.Plan, error) {
	filter = filter.normalize()

	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE user_id = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, userID, nullString(string(filter.Status)), filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return collectPlans(rows)
}

// Update меняет title, description и query. Завершённый план не меняется.
func (r *PlanRepo) Update(ctx context.Context, p *domain.Plan, owner string) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		UPDATE plans
		SET title = $3, description = $4, query = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2 AND status <> 'completed'
		  AND lease_owner = $7 AND lease_until >= $6
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Title, nullString(p.Description), docs.query, now, owner,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkLeased(ctx, r, p.ID, p.UserID)
	}
	return nil
}

// Delete удаляет план владельца.
func (r *PlanRepo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus меняет статус с проверкой допустимого перехода.
func (r *PlanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, u domain.StatusUpdate) error {
	var itinerary []byte
	if u.Itinerary != nil {
		docs, err := marshalDocs(&domain.Plan{Itinerary: *u.Itinerary})
		if err != nil {
			return err
		}
		itinerary = docs.itinerary
	}

	query := `
		UPDATE plans
		SET status = $2,
		    itinerary = COALESCE($3, itinerary),
		    error = $4,
		    requested_at = CASE WHEN $2 = 'error' THEN NULL ELSE requested_at END,
		    updated_at = $5
		WHERE id = $1 AND status = ANY($6)
	`
	result, err := r.pool.Exec(ctx, query,
		id, string(u.Status), itinerary, nullString(u.Error), time.Now().UTC(), allowedFrom(u.Status),
	)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkUpdate(ctx, r, id, "", "transition to "+string(u.Status))
	}
	return nil
}

// SaveProgress сохраняет query, progress и itinerary держателя аренды.
func (r *PlanRepo) SaveProgress(ctx context.Context, p *domain.Plan, owner string) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE plans
		SET query = $2, progress = $3, itinerary = $4, updated_at = $5
		WHERE id = $1 AND lease_owner = $6 AND lease_until >= $5
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID, docs.query, docs.progress, docs.itinerary, time.Now().UTC(), owner,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkLeased(ctx, r, p.ID, "")
	}
	return nil
}

// AcquireLease захватывает план, если аренда свободна, истекла или уже у owner.
func (r *PlanRepo) AcquireLease(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	query := `
		UPDATE plans
		SET lease_owner = $2, lease_until = $3
		WHERE id = $1 AND (lease_owner IS NULL OR lease_until < $4 OR lease_owner = $2)
	`
	result, err := r.pool.Exec(ctx, query, id, owner, now.Add(ttl), now)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrLeased
	}
	return nil
}

// ReleaseLease освобождает аренду owner.
func (r *PlanRepo) ReleaseLease(ctx context.Context, id uuid.UUID, owner string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE plans SET lease_owner = NULL, lease_until = NULL WHERE id = $1 AND lease_owner = $2`,
		id, owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// MarkRequested отмечает запрос фоновой сборки незавершённого плана.
func (r *PlanRepo) MarkRequested(ctx context.Context, id uuid.UUID, userID string, at time.Time) error {
	query := `
		UPDATE plans
		SET requested_at = $3, updated_at = $3
		WHERE id = $1 AND user_id = $2 AND status IN ('draft', 'processing')
	`
	result, err := r.pool.Exec(ctx, query, id, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark requested: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkUpdate(ctx, r, id, userID, "plan is finished")
	}
	return nil
}

// ClaimRequested атомарно снимает отметку запроса.
func (r *PlanRepo) ClaimRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE plans SET requested_at = NULL WHERE id = $1 AND requested_at IS NOT NULL`, id)
	if err != nil {
		return false, fmt.Errorf("claim requested: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// ListRequested возвращает планы с запросом фоновой сборки, старые первыми.
func (r *PlanRepo) ListRequested(ctx context.Context, limit int) ([]domain.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE requested_at IS NOT NULL AND status IN ('draft', 'processing')
		ORDER BY requested_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list requested plans: %w", err)
	}
	return collectPlans(rows)
}

// ListStale возвращает зависшие в processing планы.
func (r *PlanRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale plans: %w", err)
	}
	return collectPlans(rows)
}

// --- Helpers ---

func collectPlans(rows pgx.Rows) ([]domain.Plan, error) {
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// scanPlan сканирует строку в Plan.
func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	var docs planDocs
	var description, planError *string
	var status string

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&description,
		&docs.query,
		&status,
		&docs.progress,
		&docs.itinerary,
		&planError,
		&p.RequestedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	p.Description = derefString(description)
	p.Error = derefString(planError)
	p.Status = domain.ParsePlanStatus(status)
	if err := docs.unmarshal(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
