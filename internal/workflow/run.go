package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/stages"
)

// RunAll выполняет шаги начиная с текущего до финализации или первой остановки.
//
// parallel=true: оставшиеся шаги из 1–3 запрашиваются одновременно, затем
// их исходы применяются по порядку; первый неуспех останавливает применение,
// исходы следующих шагов отбрасываются. Шаг 4 всегда выполняется после них.
func (c *Controller) RunAll(ctx context.Context, st State, parallel bool) (State, error) {
	if parallel && !st.Finalized() && st.Current() < domain.StageEnrichment {
		var err error
		if st, err = c.prefetch(ctx, st); err != nil {
			return st, err
		}
	}

	for !st.Finalized() {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		var err error
		if st, err = c.Advance(ctx, st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// prefetch параллельно выполняет шаги от текущего до activities.
func (c *Controller) prefetch(ctx context.Context, st State) (State, error) {
	if _, err := c.prepare(st); err != nil {
		return st, err
	}

	var kinds []domain.StageKind
	for k := st.Current(); k <= domain.StageActivities; k++ {
		kinds = append(kinds, k)
	}

	executors := make([]stages.Executor, len(kinds))
	for i, k := range kinds {
		exec, err := c.registry.Get(k)
		if err != nil {
			return st, err
		}
		executors[i] = exec
	}

	// Валидация первого шага до записи processing, как в Advance.
	if err := stages.Validate(executors[0], st.Query); err != nil {
		return c.commit(ctx, st.clone(), outcome{kind: kinds[0], err: err})
	}

	next, err := c.markProcessing(ctx, st.clone())
	if err != nil {
		return next, err
	}

	outcomes := make([]outcome, len(kinds))
	snapshot := next.clone()

	// Ошибки шагов — часть outcome, поэтому g.Wait всегда nil.
	var g errgroup.Group
	for i, exec := range executors {
		g.Go(func() error {
			outcomes[i] = c.run(ctx, exec, snapshot)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if next, err = c.commit(ctx, next, out); err != nil {
			return next, err
		}
	}
	return next, nil
}
