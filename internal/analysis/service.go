package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/domaindive/internal/database"
	"github.com/nao1215/domaindive/internal/domain"
	"github.com/nao1215/domaindive/internal/freshness"
	"github.com/nao1215/domaindive/internal/model"
	"github.com/nao1215/domaindive/internal/pipeline"
)

// Store persists analysis records keyed by normalized address.
// database.SQLiteDB and database.PostgresDB implement it.
type Store interface {
	// GetByAddress returns the record for address or database.ErrNotFound.
	GetByAddress(ctx context.Context, address string) (*model.AnalysisRecord, error)

	// Upsert inserts a record for address or replaces the payload of the
	// existing one, keeping its ID and CreatedAt.
	Upsert(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, bool, error)

	// ListAddresses returns every stored address.
	ListAddresses(ctx context.Context) ([]string, error)
}

// Collector runs every probe for an address and returns the merged payload.
// *pipeline.Pipeline implements it.
type Collector interface {
	Collect(ctx context.Context, address string) (*model.Payload, *pipeline.Report)
}

// Result is the answer to one GetOrCreate call.
type Result struct {
	// Record is the stored analysis.
	Record *model.AnalysisRecord `json:"analysis"`

	// CacheStatus is cached when no probe ran, fresh otherwise.
	CacheStatus model.CacheStatus `json:"cache_status"`

	// SecondsUntilRefresh is how long Record stays inside the freshness
	// window, computed after any write.
	SecondsUntilRefresh int64 `json:"seconds_until_refresh"`

	// Failures maps failed probe names to their errors. Only set for fresh
	// results.
	Failures map[string]string `json:"probe_failures,omitempty"`
}

// Service is the analysis orchestrator.
type Service struct {
	store     Store
	collector Collector
	policy    freshness.Policy
	logger    *slog.Logger
	coalesce  bool
	group     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the freshness policy. The default is freshness.Default().
func WithPolicy(policy freshness.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCoalescing controls whether concurrent refreshes of the same address
// share one probe run. It is enabled by default.
func WithCoalescing(enabled bool) Option {
	return func(s *Service) {
		s.coalesce = enabled
	}
}

// New creates a Service that reads and writes store and probes with collector.
// collector may be nil for a Service that is only used to List.
func New(store Store, collector Collector, opts ...Option) *Service {
	s := &Service{
		store:     store,
		collector: collector,
		policy:    freshness.Default(),
		coalesce:  true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Policy returns the freshness policy in use.
func (s *Service) Policy() freshness.Policy {
	return s.policy
}

// GetOrCreate returns the analysis of input.
//
// The stored record is returned with CacheStatus cached when it exists,
// forceRefresh is false and it is not stale. Otherwise every probe runs,
// the merged payload is upserted and the result is fresh. Probe failures
// only leave the corresponding fields empty.
//
// It returns ErrInvalidDomain for input that is not a domain and wraps
// ErrStoreUnavailable when the store cannot be read or written.
func (s *Service) GetOrCreate(ctx context.Context, input string, forceRefresh bool) (*Result, error) {
	address, err := domain.Parse(input)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("address", address),
	)

	existing, err := s.store.GetByAddress(ctx, address)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if existing != nil && !forceRefresh && !s.policy.IsStale(existing.UpdatedAt) {
		logger.Debug("serving cached analysis",
			slog.Int64("id", existing.ID),
			slog.Time("updated_at", existing.UpdatedAt),
		)
		return &Result{
			Record:              existing,
			CacheStatus:         model.CacheStatusCached,
			SecondsUntilRefresh: s.policy.SecondsUntilRefresh(existing.UpdatedAt),
		}, nil
	}

	logger.Info("refreshing analysis",
		slog.Bool("exists", existing != nil),
		slog.Bool("forced", forceRefresh),
	)

	out, err := s.refresh(ctx, address, logger)
	if err != nil {
		return nil, err
	}

	record := *out.record
	return &Result{
		Record:              &record,
		CacheStatus:         model.CacheStatusFresh,
		SecondsUntilRefresh: s.policy.SecondsUntilRefresh(record.UpdatedAt),
		Failures:            maps.Clone(out.failures),
	}, nil
}

// refreshed is the outcome of one probe-and-store run.
type refreshed struct {
	record   *model.AnalysisRecord
	failures map[string]string
}

// refresh probes address and upserts the result. The run is detached from
// ctx; ctx only bounds how long this caller waits for it.
func (s *Service) refresh(ctx context.Context, address string, logger *slog.Logger) (*refreshed, error) {
	run := func() (*refreshed, error) {
		return s.probeAndStore(context.WithoutCancel(ctx), address, logger)
	}

	if !s.coalesce {
		return run()
	}

	ch := s.group.DoChan(address, func() (any, error) {
		return run()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("joined in-flight refresh")
		}
		out, ok := res.Val.(*refreshed)
		if !ok {
			return nil, fmt.Errorf("unexpected refresh result %T", res.Val)
		}
		return out, nil
	case <-ctx.Done():
		logger.Warn("caller stopped waiting, refresh continues in background",
			slog.String("reason", ctx.Err().Error()))
		return nil, ctx.Err()
	}
}

// probeAndStore runs the collector and writes its payload.
func (s *Service) probeAndStore(ctx context.Context, address string, logger *slog.Logger) (*refreshed, error) {
	start := time.Now()
	payload, report := s.collector.Collect(ctx, address)

	failures := make(map[string]string)
	if report != nil {
		for step, msg := range report.Failures {
			failures[step] = msg
		}
	}
	if len(failures) > 0 {
		logger.Info("analysis completed with probe failures",
			slog.Int("failed", len(failures)),
		)
	}

	record, created, err := s.store.Upsert(ctx, address, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	logger.Info("analysis stored",
		slog.Int64("id", record.ID),
		slog.Bool("created", created),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &refreshed{record: record, failures: failures}, nil
}

// List returns every stored address in the order the store yields them.
func (s *Service) List(ctx context.Context) ([]string, error) {
	addresses, err := s.store.ListAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return addresses, nil
}
