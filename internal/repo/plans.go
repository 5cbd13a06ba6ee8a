package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/domain"
)

// DefaultLeaseTTL — срок аренды плана по умолчанию.
const DefaultLeaseTTL = 10 * time.Minute

// Plans — хранилище планов путешествий.
//
// Все методы, принимающие userID, ограничены планами владельца:
// чужой план неотличим от отсутствующего (ErrNotFound).
//
// Изменять query, progress и itinerary может только держатель аренды
// (AcquireLease). Аренда общая для всех процессов: API и планировщика.
type Plans interface {
	Create(ctx context.Context, plan *domain.Plan) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	GetForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Plan, error)
	ListByUser(ctx context.Context, userID string, filter PlanFilter) ([]domain.Plan, error)

	// Update меняет title, description и query. owner должен держать аренду.
	Update(ctx context.Context, plan *domain.Plan, owner string) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error

	// UpdateStatus — единственная запись, которую делает контроллер шагов.
	UpdateStatus(ctx context.Context, id uuid.UUID, update domain.StatusUpdate) error

	// SaveProgress сохраняет query, progress и itinerary после шага.
	// Статус меняет только UpdateStatus. owner должен держать аренду,
	// иначе ErrLeased.
	SaveProgress(ctx context.Context, plan *domain.Plan, owner string) error

	// AcquireLease захватывает план для owner до now+ttl. Повторный захват
	// тем же owner продлевает аренду. ErrLeased — аренду держит другой.
	AcquireLease(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error

	// ReleaseLease освобождает аренду owner. Чужая аренда не трогается.
	ReleaseLease(ctx context.Context, id uuid.UUID, owner string) error

	// MarkRequested отмечает запрос фоновой сборки.
	MarkRequested(ctx context.Context, id uuid.UUID, userID string, at time.Time) error

	// ClaimRequested снимает отметку запроса. false — план уже взят
	// другим обработчиком или не запрашивался.
	ClaimRequested(ctx context.Context, id uuid.UUID) (bool, error)

	// ListRequested возвращает незавершённые планы с запросом фоновой сборки.
	ListRequested(ctx context.Context, limit int) ([]domain.Plan, error)

	// ListStale возвращает планы в статусе processing, не обновлявшиеся с before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Plan, error)
}

// PlanFilter — параметры выборки планов пользователя.
type PlanFilter struct {
	Status domain.PlanStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// normalize подставляет лимиты по умолчанию.
func (f PlanFilter) normalize() PlanFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// planDocs — JSON колонки плана.
type planDocs struct {
	query     []byte
	progress  []byte
	itinerary []byte
}

func marshalDocs(p *domain.Plan) (planDocs, error) {
	var docs planDocs
	var err error

	if docs.query, err = json.Marshal(p.Query); err != nil {
		return docs, fmt.Errorf("marshal query: %w", err)
	}
	if docs.progress, err = json.Marshal(p.Progress); err != nil {
		return docs, fmt.Errorf("marshal progress: %w", err)
	}
	if docs.itinerary, err = json.Marshal(p.Itinerary); err != nil {
		return docs, fmt.Errorf("marshal itinerary: %w", err)
	}
	return docs, nil
}

func (d planDocs) unmarshal(p *domain.Plan) error {
	if len(d.query) > 0 {
		if err := json.Unmarshal(d.query, &p.Query); err != nil {
			return fmt.Errorf("unmarshal query: %w", err)
		}
	}

	p.Progress = domain.NewProgress()
	if len(d.progress) > 0 {
		if err := json.Unmarshal(d.progress, &p.Progress); err != nil {
			return fmt.Errorf("unmarshal progress: %w", err)
		}
	}

	if len(d.itinerary) > 0 {
		if err := json.Unmarshal(d.itinerary, &p.Itinerary); err != nil {
			return fmt.Errorf("unmarshal itinerary: %w", err)
		}
	}
	return nil
}

// nullString конвертирует пустую строку в nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает значение или "".
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// allowedFrom возвращает статусы, из которых допустим переход в to.
func allowedFrom(to domain.PlanStatus) []string {
	switch to {
	case domain.PlanStatusProcessing:
		return []string{string(domain.PlanStatusDraft), string(domain.PlanStatusProcessing)}
	case domain.PlanStatusCompleted:
		return []string{string(domain.PlanStatusProcessing)}
	case domain.PlanStatusError:
		return []string{string(domain.PlanStatusDraft), string(domain.PlanStatusProcessing)}
	default:
		return nil
	}
}

// checkLeased формирует ошибку для записи держателя аренды без
// затронутых строк: ErrNotFound, ErrInvalidState для завершённого плана,
// иначе ErrLeased.
func checkLeased(ctx context.Context, plans Plans, id uuid.UUID, userID string) error {
	var p *domain.Plan
	var err error
	if userID == "" {
		p, err = plans.Get(ctx, id)
	} else {
		p, err = plans.GetForUser(ctx, id, userID)
	}
	if err != nil {
		return err
	}
	if p.Status == domain.PlanStatusCompleted {
		return fmt.Errorf("%w: plan is completed", ErrInvalidState)
	}
	return fmt.Errorf("%w: lease not held", ErrLeased)
}

// checkUpdate формирует ошибку для UPDATE без затронутых строк:
// ErrNotFound, если записи нет, иначе ErrInvalidState.
func checkUpdate(ctx context.Context, plans Plans, id uuid.UUID, userID string, op string) error {
	var err error
	if userID == "" {
		_, err = plans.Get(ctx, id)
	} else {
		_, err = plans.GetForUser(ctx, id, userID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, op)
}
