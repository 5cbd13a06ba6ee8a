package stages

import (
	"fmt"
	"sync"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/provider"
)

// Registry — реестр исполнителей по шагу. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.StageKind]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.StageKind]Executor),
	}
}

// DefaultRegistry создаёт реестр со всеми четырьмя шагами.
func DefaultRegistry(searcher provider.Searcher, generator provider.Generator) *Registry {
	r := NewRegistry()
	r.Register(NewFlightsExecutor(searcher))
	r.Register(NewHotelsExecutor(searcher))
	r.Register(NewActivitiesExecutor(searcher))
	r.Register(NewEnrichmentExecutor(generator))
	return r
}

// Register регистрирует исполнителя. Существующий для того же шага перезаписывается.
func (r *Registry) Register(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[exec.Kind()] = exec
}

// Get возвращает исполнителя шага или ErrStageNotFound.
func (r *Registry) Get(kind domain.StageKind) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotFound, kind)
	}
	return exec, nil
}

// Complete проверяет, что зарегистрированы все шаги.
func (r *Registry) Complete() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range domain.AllStages() {
		if _, ok := r.executors[kind]; !ok {
			return fmt.Errorf("%w: %s", ErrStageNotFound, kind)
		}
	}
	return nil
}
