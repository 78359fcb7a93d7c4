package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

// Replicate produces n independent deep copies of root. Atoms short-circuit
// into n aliases. Copies are produced one at a time on their own pooled
// sessions; a parallelism above 1 (opt-in) lets them overlap.
func (e *Engine) Replicate(ctx context.Context, root object.Object, n int) ([]object.Object, error) {
	if n < 0 {
		return nil, klonerrors.NewValidationError("replica count cannot be negative", nil)
	}
	if n == 0 {
		return []object.Object{}, nil
	}
	if root == nil {
		root = object.None
	}

	if classify(root) == kindAtomic {
		replicas := make([]object.Object, n)
		for i := range replicas {
			replicas[i] = root
		}
		return replicas, nil
	}

	replicas := make([]object.Object, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.replicateParallelism)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			clone, err := e.Clone(gctx, root)
			if err != nil {
				return err
			}
			replicas[i] = clone
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return replicas, nil
}
