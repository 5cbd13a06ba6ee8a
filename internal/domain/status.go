package domain

// PlanStatus — статус плана путешествия в хранилище.
//
// Жизненный цикл:
//
//	draft → processing → completed
//	                   ↘ error
type PlanStatus string

const (
	// PlanStatusDraft — план создан, шаги ещё не запускались.
	PlanStatusDraft PlanStatus = "draft"

	// PlanStatusProcessing — первый шаг запущен, план собирается.
	PlanStatusProcessing PlanStatus = "processing"

	// PlanStatusCompleted — все четыре шага завершены, itinerary финализирован.
	PlanStatusCompleted PlanStatus = "completed"

	// PlanStatusError — сборка плана прервана окончательно.
	PlanStatusError PlanStatus = "error"
)

// IsTerminal возвращает true, если статус финальный.
func (s PlanStatus) IsTerminal() bool {
	switch s {
	case PlanStatusCompleted, PlanStatusError:
		return true
	default:
		return false
	}
}

// Valid проверяет, что статус входит в допустимый набор.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusProcessing, PlanStatusCompleted, PlanStatusError:
		return true
	default:
		return false
	}
}

// ParsePlanStatus парсит строку в PlanStatus.
// Неизвестные значения трактуются как draft.
func ParsePlanStatus(s string) PlanStatus {
	status := PlanStatus(s)
	if !status.Valid() {
		return PlanStatusDraft
	}
	return status
}

// StageState — состояние одного шага.
//
// Жизненный цикл:
//
//	idle → running → succeeded
//	               ↘ failed → (снова idle при повторном запуске)
type StageState string

const (
	StageStateIdle      StageState = "idle"
	StageStateRunning   StageState = "running"
	StageStateSucceeded StageState = "succeeded"
	StageStateFailed    StageState = "failed"
)

// FailureKind — вид неуспешного исхода шага.
type FailureKind string

const (
	// FailureValidation — не заполнены обязательные поля TripQuery.
	FailureValidation FailureKind = "validation"

	// FailureProvider — удалённый вызов завершился ошибкой или таймаутом.
	FailureProvider FailureKind = "provider"

	// FailureEmpty — провайдер ответил, но записей нет.
	FailureEmpty FailureKind = "empty"

	// FailurePersistence — не удалось сохранить статус плана.
	FailurePersistence FailureKind = "persistence"
)
