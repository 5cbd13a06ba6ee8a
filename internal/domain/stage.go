package domain

import "fmt"

// StageKind — вид шага сборки плана.
//
// Значение совпадает с индексом шага (1..4), порядок выполнения фиксирован.
type StageKind int

const (
	StageFlights StageKind = iota + 1
	StageHotels
	StageActivities
	StageEnrichment
)

// FirstStage и LastStage — границы индекса шага.
const (
	FirstStage = StageFlights
	LastStage  = StageEnrichment
)

// StageCount — количество шагов.
const StageCount = int(LastStage)

// AllStages возвращает все шаги в порядке выполнения.
func AllStages() []StageKind {
	return []StageKind{StageFlights, StageHotels, StageActivities, StageEnrichment}
}

// Valid проверяет, что индекс шага в диапазоне 1..4.
func (k StageKind) Valid() bool {
	return k >= FirstStage && k <= LastStage
}

// Next возвращает следующий шаг. Для последнего шага возвращает его же.
func (k StageKind) Next() StageKind {
	if k >= LastStage {
		return LastStage
	}
	return k + 1
}

// String возвращает имя шага (используется в логах и метриках).
func (k StageKind) String() string {
	switch k {
	case StageFlights:
		return "flights"
	case StageHotels:
		return "hotels"
	case StageActivities:
		return "activities"
	case StageEnrichment:
		return "enrichment"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// ParseStageKind парсит имя шага.
func ParseStageKind(s string) (StageKind, error) {
	for _, k := range AllStages() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}
