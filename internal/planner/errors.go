package planner

import "errors"

// Ошибки планировщика.
var (
	// ErrPlanAlreadyActive — план уже собирается этим процессом.
	ErrPlanAlreadyActive = errors.New("plan already being processed")

	// ErrPlanNotRequested — запроса нет или его забрал другой обработчик.
	ErrPlanNotRequested = errors.New("plan not requested")

	// ErrPlanBusy — план удерживает другой обработчик (API или планировщик).
	// Запрос остаётся и будет подобран следующим опросом.
	ErrPlanBusy = errors.New("plan is busy")

	// ErrPlanFinished — план уже в финальном статусе.
	ErrPlanFinished = errors.New("plan already finished")
)
