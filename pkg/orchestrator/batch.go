package orchestrator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/portctl/pkg/model"
)

// DefaultParallelism caps concurrent transactions in ExecuteAll.
const DefaultParallelism = 8

// ExecuteAll runs independent change requests concurrently, at most
// parallelism at a time (DefaultParallelism when <= 0). Requests for the
// same interface still serialize on the interface lock. Results are
// returned in request order; the error joins every failed transaction's
// error. The batch is not atomic: a failure does not undo or stop the
// other requests.
func (o *Orchestrator) ExecuteAll(ctx context.Context, reqs []model.ChangeRequest, parallelism int) ([]*model.ChangeResult, error) {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	results := make([]*model.ChangeResult, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = o.Execute(ctx, req)
			return nil
		})
	}
	g.Wait()

	return results, errors.Join(errs...)
}
