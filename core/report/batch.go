package report

import (
	"context"
	"runtime"

	"github.com/koscakluka/ema-ordersim/core/scenario"
	"golang.org/x/sync/errgroup"
)

// ValidateAll validates every scenario of the set. Scenarios share no state,
// so they are validated concurrently; results keep the order of the set.
func ValidateAll(ctx context.Context, set *scenario.Set, opts ...ValidationOption) ([]Result, error) {
	names := set.Names()
	results := make([]Result, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		messages, _ := set.Get(name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = ValidateScenario(name, messages, opts...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AllValid reports whether none of the results carries a structural error.
func AllValid(results []Result) bool {
	for _, result := range results {
		if !result.Valid {
			return false
		}
	}
	return true
}
