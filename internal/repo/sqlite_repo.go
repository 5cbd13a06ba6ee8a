package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// SQLitePlanRepo — хранилище планов в SQLite (локальный запуск и тесты).
//
// Время хранится текстом в RFC 3339 (UTC, наносекунды), поэтому
// строковое сравнение совпадает с хронологическим.
type SQLitePlanRepo struct {
	db *sql.DB
}

// NewSQLitePlanRepo создаёт SQLitePlanRepo. Схема создаётся в OpenSQLite.
func NewSQLitePlanRepo(db *sql.DB) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: db}
}

var _ Plans = (*SQLitePlanRepo)(nil)

// sqliteTimeLayout — фиксированная ширина, чтобы сортировка строк была корректной.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// Create создаёт план.
func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID.String(),
		p.UserID,
		p.Title,
		nullString(p.Description),
		string(docs.query),
		string(p.Status),
		string(docs.progress),
		string(docs.itinerary),
		nullString(p.Error),
		formatNullTime(p.RequestedAt),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: plan %s", ErrAlreadyExists, p.ID)
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// Get возвращает план по ID.
func (r *SQLitePlanRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = ?`
	return scanSQLitePlan(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetForUser возвращает план владельца.
func (r *SQLitePlanRepo) GetForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = ? AND user_id = ?`
	return scanSQLitePlan(r.db.QueryRowContext(ctx, query, id.String(), userID))
}

// ListByUser возвращает планы пользователя, новые первыми.
func (r *SQLitePlanRepo) ListByUser(ctx context.Context, userID string, filter PlanFilter) ([]domain.Plan, error) {
	filter = filter.normalize()

	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE user_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	status := string(filter.Status)
	rows, err := r.db.QueryContext(ctx, query, userID, status, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return collectSQLitePlans(rows)
}

// Update меняет title, description и query. Завершённый план не меняется.
func (r *SQLitePlanRepo) Update(ctx context.Context, p *domain.Plan, owner string) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	query := `
		UPDATE plans
		SET title = ?, description = ?, query = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status <> 'completed'
		  AND lease_owner = ? AND lease_until >= ?
	`
	result, err := r.db.ExecContext(ctx, query,
		p.Title, nullString(p.Description), string(docs.query), now, p.ID.String(), p.UserID, owner, now,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if affected(result) == 0 {
		return checkLeased(ctx, r, p.ID, p.UserID)
	}
	return nil
}

// Delete удаляет план владельца.
func (r *SQLitePlanRepo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if affected(result) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus меняет статус с проверкой допустимого перехода.
func (r *SQLitePlanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, u domain.StatusUpdate) error {
	var itinerary *string
	if u.Itinerary != nil {
		docs, err := marshalDocs(&domain.Plan{Itinerary: *u.Itinerary})
		if err != nil {
			return err
		}
		s := string(docs.itinerary)
		itinerary = &s
	}

	from := allowedFrom(u.Status)
	if len(from) == 0 {
		return fmt.Errorf("%w: transition to %s", ErrInvalidState, u.Status)
	}

	query := `
		UPDATE plans
		SET status = ?,
		    itinerary = COALESCE(?, itinerary),
		    error = ?,
		    requested_at = CASE WHEN ? = 'error' THEN NULL ELSE requested_at END,
		    updated_at = ?
		WHERE id = ? AND status IN (` + placeholders(len(from)) + `)
	`
	args := []any{string(u.Status), itinerary, nullString(u.Error), string(u.Status), formatTime(time.Now()), id.String()}
	for _, s := range from {
		args = append(args, s)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if affected(result) == 0 {
		return checkUpdate(ctx, r, id, "", "transition to "+string(u.Status))
	}
	return nil
}

// SaveProgress сохраняет query, progress и itinerary держателя аренды.
func (r *SQLitePlanRepo) SaveProgress(ctx context.Context, p *domain.Plan, owner string) error {
	docs, err := marshalDocs(p)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	query := `
		UPDATE plans
		SET query = ?, progress = ?, itinerary = ?, updated_at = ?
		WHERE id = ? AND lease_owner = ? AND lease_until >= ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(docs.query), string(docs.progress), string(docs.itinerary), now, p.ID.String(), owner, now,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if affected(result) == 0 {
		return checkLeased(ctx, r, p.ID, "")
	}
	return nil
}

// AcquireLease захватывает план, если аренда свободна, истекла или уже у owner.
func (r *SQLitePlanRepo) AcquireLease(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error {
	now := time.Now()
	query := `
		UPDATE plans
		SET lease_owner = ?, lease_until = ?
		WHERE id = ? AND (lease_owner IS NULL OR lease_until < ? OR lease_owner = ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		owner, formatTime(now.Add(ttl)), id.String(), formatTime(now), owner,
	)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if affected(result) == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrLeased
	}
	return nil
}

// ReleaseLease освобождает аренду owner.
func (r *SQLitePlanRepo) ReleaseLease(ctx context.Context, id uuid.UUID, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plans SET lease_owner = NULL, lease_until = NULL WHERE id = ? AND lease_owner = ?`,
		id.String(), owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// MarkRequested отмечает запрос фоновой сборки незавершённого плана.
func (r *SQLitePlanRepo) MarkRequested(ctx context.Context, id uuid.UUID, userID string, at time.Time) error {
	query := `
		UPDATE plans
		SET requested_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status IN ('draft', 'processing')
	`
	ts := formatTime(at)
	result, err := r.db.ExecContext(ctx, query, ts, ts, id.String(), userID)
	if err != nil {
		return fmt.Errorf("mark requested: %w", err)
	}
	if affected(result) == 0 {
		return checkUpdate(ctx, r, id, userID, "plan is finished")
	}
	return nil
}

// ClaimRequested атомарно снимает отметку запроса.
func (r *SQLitePlanRepo) ClaimRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE plans SET requested_at = NULL WHERE id = ? AND requested_at IS NOT NULL`, id.String())
	if err != nil {
		return false, fmt.Errorf("claim requested: %w", err)
	}
	return affected(result) == 1, nil
}

// ListRequested возвращает планы с запросом фоновой сборки, старые первыми.
func (r *SQLitePlanRepo) ListRequested(ctx context.Context, limit int) ([]domain.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE requested_at IS NOT NULL AND status IN ('draft', 'processing')
		ORDER BY requested_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list requested plans: %w", err)
	}
	return collectSQLitePlans(rows)
}

// ListStale возвращает зависшие в processing планы.
func (r *SQLitePlanRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE status = 'processing' AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, formatTime(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale plans: %w", err)
	}
	return collectSQLitePlans(rows)
}

// --- Helpers ---

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func affected(result sql.Result) int64 {
	n, err := result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func collectSQLitePlans(rows *sql.Rows) ([]domain.Plan, error) {
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanSQLitePlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlan(row rowScanner) (*domain.Plan, error) {
	var p domain.Plan
	var id, status, query, progress, itinerary, createdAt, updatedAt string
	var description, planError, requestedAt sql.NullString

	err := row.Scan(
		&id,
		&p.UserID,
		&p.Title,
		&description,
		&query,
		&status,
		&progress,
		&itinerary,
		&planError,
		&requestedAt,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if requestedAt.Valid {
		t, err := parseTime(requestedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse requested_at: %w", err)
		}
		p.RequestedAt = &t
	}

	p.Description = description.String
	p.Error = planError.String
	p.Status = domain.ParsePlanStatus(status)

	docs := planDocs{query: []byte(query), progress: []byte(progress), itinerary: []byte(itinerary)}
	if err := docs.unmarshal(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
