package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// CaseRequest names a case to evaluate and its optional debt-to-income ratio.
type CaseRequest struct {
	CaseID string
	DTI    *float64
}

// CaseResult is the outcome of one case in a batch. Exactly one of
// Evaluation and Err is set.
type CaseResult struct {
	CaseID     string
	Evaluation *model.Evaluation
	Err        error
}

// EvaluateMany evaluates cases with at most concurrency in flight. A failed
// case does not stop the others; results keep the order of reqs.
func (p *Pipeline) EvaluateMany(ctx context.Context, reqs []CaseRequest, concurrency int) []CaseResult {
	results := make([]CaseResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("pipeline: evaluating batch",
		zap.Int("cases", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			ev, err := p.Evaluate(gctx, req.CaseID, req.DTI)
			results[i] = CaseResult{CaseID: req.CaseID, Evaluation: ev, Err: err}
			if err != nil {
				failed.Add(1)
				zap.L().Error("pipeline: case evaluation failed",
					zap.String("case_id", req.CaseID), zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("pipeline: batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}
