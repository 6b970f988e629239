package feature

import (
	"context"
	"fmt"
	"runtime"

	"github.com/1F47E/geojson-rtree/pkg/record"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of converting the record at Index.
type Result struct {
	Index   int
	Feature Any
	Err     error
}

// BuildAll converts recs in parallel and fails on the first bad record.
// The output keeps input order.
func BuildAll(ctx context.Context, recs []*record.Feature, workers int) ([]Any, error) {
	out := make([]Any, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))

	for i, rec := range recs {
		i, rec := i, rec
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := New(rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildEach converts every record in parallel and reports each outcome, so
// the caller decides what to do with failures. Records not reached before ctx
// is done carry ctx's error.
func BuildEach(ctx context.Context, recs []*record.Feature, workers int) []Result {
	results := make([]Result, len(recs))

	var g errgroup.Group
	g.SetLimit(workerCount(workers))

	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			results[i].Index = i
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Feature, results[i].Err = New(rec)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
