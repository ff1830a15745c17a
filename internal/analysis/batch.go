package analysis

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of domains analyzed at once by a batch.
const DefaultConcurrency = 4

// BatchResult is the outcome for one input of a batch.
type BatchResult struct {
	// Input is the domain as given by the caller.
	Input string

	// Result is set when the analysis succeeded.
	Result *Result

	// Err is set when the analysis failed.
	Err error
}

// BatchOption configures GetOrCreateBatch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	concurrency int
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Non-positive values keep DefaultConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// GetOrCreateBatch runs GetOrCreate for every input with bounded
// concurrency. Results keep the order of inputs, and a failure for one
// input does not stop the others. The error return is only set when ctx
// was cancelled before every input started.
func (s *Service) GetOrCreateBatch(ctx context.Context, inputs []string, forceRefresh bool, opts ...BatchOption) ([]BatchResult, error) {
	cfg := batchConfig{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.logger.Info("starting batch analysis",
		slog.Int("total", len(inputs)),
		slog.Int("concurrency", cfg.concurrency),
	)
	start := time.Now()

	results := make([]BatchResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i, input := range inputs {
		results[i].Input = input
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i].Err = gctx.Err()
				return gctx.Err()
			default:
			}

			result, err := s.GetOrCreate(gctx, input, forceRefresh)
			if err != nil {
				s.logger.Warn("analysis failed",
					slog.String("input", input),
					slog.String("error", err.Error()),
				)
				results[i].Err = err
				return nil
			}
			results[i].Result = result
			return nil
		})
	}

	err := g.Wait()

	s.logger.Info("batch analysis complete",
		slog.Int("total", len(inputs)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return results, err
}
