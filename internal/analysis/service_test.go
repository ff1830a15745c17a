package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/domaindive/internal/database"
	"github.com/nao1215/domaindive/internal/freshness"
	"github.com/nao1215/domaindive/internal/model"
	"github.com/nao1215/domaindive/internal/pipeline"
	"github.com/nao1215/domaindive/internal/probe"
)

// testClock is a manually advanced clock that also ticks one millisecond
// per reading, so two writes never share a timestamp.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingCollector records how often probes ran. When release is set,
// Collect blocks until it is closed.
type countingCollector struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (c *countingCollector) Collect(_ context.Context, address string) (*model.Payload, *pipeline.Report) {
	c.calls.Add(1)
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.release != nil {
		<-c.release
	}

	payload := model.NewPayload()
	whois := "Registrar: " + address
	payload.WhoisRaw = &whois
	payload.DNSRecords.A = []model.DNSRecord{{Value: "192.0.2.1", TTL: 300}}
	return payload, &pipeline.Report{Address: address, Failures: map[string]string{}}
}

// newTestService wires a Service to a real SQLite store in a temp dir.
func newTestService(t *testing.T, collector Collector, opts ...Option) (*Service, *database.SQLiteDB, *testClock) {
	t.Helper()

	clock := newTestClock()
	db, err := database.Open(t.TempDir(), database.Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		Clock:             clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]Option{WithPolicy(freshness.New(freshness.WithClock(clock.Now)))}, opts...)
	return New(db, collector, opts...), db, clock
}

// TestGetOrCreate tests the cache decision and the write path.
func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("first call on an empty store creates one fresh record", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, db, _ := newTestService(t, collector)

		result, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.CacheStatus != model.CacheStatusFresh {
			t.Errorf("expected fresh, got %s", result.CacheStatus)
		}
		if result.Record.ID == 0 {
			t.Error("expected an assigned id")
		}
		if result.Record.Address != "example.com" {
			t.Errorf("unexpected address %q", result.Record.Address)
		}
		if result.SecondsUntilRefresh < 299 || result.SecondsUntilRefresh > 300 {
			t.Errorf("expected about 300 seconds, got %d", result.SecondsUntilRefresh)
		}
		if collector.calls.Load() != 1 {
			t.Errorf("expected 1 probe run, got %d", collector.calls.Load())
		}
		if count, _ := db.Count(ctx); count != 1 {
			t.Errorf("expected 1 record, got %d", count)
		}
	})

	t.Run("second call inside the window is cached without probing", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, _, clock := newTestService(t, collector)

		first, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		clock.Advance(4 * time.Minute)

		second, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}

		if second.CacheStatus != model.CacheStatusCached {
			t.Errorf("expected cached, got %s", second.CacheStatus)
		}
		if !second.Record.UpdatedAt.Equal(first.Record.UpdatedAt) {
			t.Errorf("expected identical updated_at, got %v then %v", first.Record.UpdatedAt, second.Record.UpdatedAt)
		}
		if second.Record.ID != first.Record.ID {
			t.Errorf("expected id %d, got %d", first.Record.ID, second.Record.ID)
		}
		if collector.calls.Load() != 1 {
			t.Errorf("expected no new probe run, got %d runs", collector.calls.Load())
		}
		if second.SecondsUntilRefresh < 59 || second.SecondsUntilRefresh > 60 {
			t.Errorf("expected about 60 seconds left, got %d", second.SecondsUntilRefresh)
		}
	})

	t.Run("forced refresh keeps the id and advances updated_at", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, db, _ := newTestService(t, collector)

		first, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		second, err := svc.GetOrCreate(ctx, "example.com", true)
		if err != nil {
			t.Fatalf("forced call failed: %v", err)
		}

		if second.CacheStatus != model.CacheStatusFresh {
			t.Errorf("expected fresh, got %s", second.CacheStatus)
		}
		if second.Record.ID != first.Record.ID {
			t.Errorf("expected id %d, got %d", first.Record.ID, second.Record.ID)
		}
		if !second.Record.UpdatedAt.After(first.Record.UpdatedAt) {
			t.Errorf("expected updated_at after %v, got %v", first.Record.UpdatedAt, second.Record.UpdatedAt)
		}
		if !second.Record.CreatedAt.Equal(first.Record.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", first.Record.CreatedAt, second.Record.CreatedAt)
		}
		if collector.calls.Load() != 2 {
			t.Errorf("expected 2 probe runs, got %d", collector.calls.Load())
		}
		if count, _ := db.Count(ctx); count != 1 {
			t.Errorf("expected 1 record, got %d", count)
		}
	})

	t.Run("stale record is refreshed in place", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, _, clock := newTestService(t, collector)

		first, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		clock.Advance(6 * time.Minute)

		second, err := svc.GetOrCreate(ctx, "example.com", false)
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}

		if second.CacheStatus != model.CacheStatusFresh {
			t.Errorf("expected fresh, got %s", second.CacheStatus)
		}
		if second.Record.ID != first.Record.ID {
			t.Errorf("expected id %d, got %d", first.Record.ID, second.Record.ID)
		}
		if collector.calls.Load() != 2 {
			t.Errorf("expected 2 probe runs, got %d", collector.calls.Load())
		}
	})

	t.Run("equivalent inputs share one record", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, db, _ := newTestService(t, collector)

		if _, err := svc.GetOrCreate(ctx, "example.com", false); err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		result, err := svc.GetOrCreate(ctx, "  HTTPS://Example.COM/ ", false)
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}

		if result.CacheStatus != model.CacheStatusCached {
			t.Errorf("expected cached, got %s", result.CacheStatus)
		}
		if count, _ := db.Count(ctx); count != 1 {
			t.Errorf("expected 1 record, got %d", count)
		}
	})

	t.Run("invalid input fails without touching store or probes", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc, db, _ := newTestService(t, collector)

		_, err := svc.GetOrCreate(ctx, "not valid", false)
		if !errors.Is(err, ErrInvalidDomain) {
			t.Fatalf("expected ErrInvalidDomain, got %v", err)
		}
		if err.Error() != "must be a valid domain name with a top-level domain (e.g., example.com)" {
			t.Errorf("unexpected message %q", err.Error())
		}
		if collector.calls.Load() != 0 {
			t.Error("expected no probe run")
		}
		if count, _ := db.Count(ctx); count != 0 {
			t.Errorf("expected no record, got %d", count)
		}
	})
}

// failingWhois always fails; every other adapter answers.
type failingWhois struct{}

func (failingWhois) Fetch(_ context.Context, _ string) (string, error) {
	return "", errors.New("connection refused")
}

type stubDNS struct{}

func (stubDNS) Records(_ context.Context, _ string) (model.DNSRecords, error) {
	records := model.NewDNSRecords()
	records.A = append(records.A, model.DNSRecord{Value: "192.0.2.1", TTL: 300})
	return records, nil
}

func (stubDNS) Nameservers(_ context.Context, _ string) ([]model.Nameserver, error) {
	return []model.Nameserver{{Hostname: "ns1.example.net"}}, nil
}

type stubSSL struct{}

func (stubSSL) Inspect(_ context.Context, domain string) (model.SSLInfo, error) {
	return model.SSLInfo{Available: true, Subject: domain, Issuer: "Test CA"}, nil
}

type stubHTTP struct{}

func (stubHTTP) Probe(_ context.Context, _ string) (model.HTTPResponse, error) {
	return model.HTTPResponse{Status: 200, Headers: map[string]string{"server": "test"}}, nil
}

type stubGeo struct{}

func (stubGeo) Locate(_ context.Context, ip string) (model.Geolocation, error) {
	return model.Geolocation{IP: ip, Country: "Japan"}, nil
}

// TestGetOrCreateWithFailingProbe tests that a failing adapter only empties
// its own field.
func TestGetOrCreateWithFailingProbe(t *testing.T) {
	t.Parallel()

	prober := &probe.Prober{
		Whois: failingWhois{},
		DNS:   stubDNS{},
		SSL:   stubSSL{},
		HTTP:  stubHTTP{},
		Geo:   stubGeo{},
	}
	svc, _, _ := newTestService(t, pipeline.Default(prober))

	result, err := svc.GetOrCreate(context.Background(), "example.com", false)
	if err != nil {
		t.Fatalf("expected probe failure to be absorbed, got %v", err)
	}

	record := result.Record
	if record.WhoisRaw != nil {
		t.Errorf("expected absent whois, got %q", *record.WhoisRaw)
	}
	if len(record.DNSRecords.A) != 1 || len(record.Nameservers) != 1 {
		t.Errorf("expected DNS data to be stored, got %+v / %+v", record.DNSRecords, record.Nameservers)
	}
	if !record.SSLInfo.Available || record.HTTPResponse.Status != 200 || record.Geolocation.Country != "Japan" {
		t.Errorf("expected other probes to be stored, got %+v", record.Payload)
	}
	if _, ok := result.Failures[pipeline.StepWhois]; !ok || len(result.Failures) != 1 {
		t.Errorf("expected only whois to be reported as failed, got %v", result.Failures)
	}
}

// errStore fails every call.
type errStore struct {
	getErr    error
	upsertErr error
}

func (s errStore) GetByAddress(_ context.Context, _ string) (*model.AnalysisRecord, error) {
	return nil, s.getErr
}

func (s errStore) Upsert(_ context.Context, _ string, _ *model.Payload) (*model.AnalysisRecord, bool, error) {
	return nil, false, s.upsertErr
}

func (s errStore) ListAddresses(_ context.Context) ([]string, error) {
	return nil, s.getErr
}

// TestStoreUnavailable tests that store failures are wrapped and stop the run.
func TestStoreUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	diskFull := errors.New("disk I/O error")

	t.Run("read failure does not probe", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc := New(errStore{getErr: diskFull}, collector)

		_, err := svc.GetOrCreate(ctx, "example.com", false)
		if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, diskFull) {
			t.Errorf("expected wrapped ErrStoreUnavailable, got %v", err)
		}
		if collector.calls.Load() != 0 {
			t.Error("expected no probe run")
		}
	})

	t.Run("write failure is reported", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{}
		svc := New(errStore{getErr: database.ErrNotFound, upsertErr: diskFull}, collector)

		_, err := svc.GetOrCreate(ctx, "example.com", false)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
		if collector.calls.Load() != 1 {
			t.Errorf("expected 1 probe run, got %d", collector.calls.Load())
		}
	})

	t.Run("list failure is wrapped", func(t *testing.T) {
		t.Parallel()

		svc := New(errStore{getErr: diskFull}, &countingCollector{})
		if _, err := svc.List(ctx); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

// TestRefreshConcurrency tests coalescing and detached refreshes.
func TestRefreshConcurrency(t *testing.T) {
	t.Parallel()

	const callers = 5

	runConcurrently := func(t *testing.T, svc *Service, collector *countingCollector) []*Result {
		t.Helper()

		results := make([]*Result, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.GetOrCreate(context.Background(), "example.com", true)
			}(i)
		}

		<-collector.started
		time.Sleep(100 * time.Millisecond)
		close(collector.release)
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("caller %d failed: %v", i, err)
			}
		}
		return results
	}

	t.Run("concurrent refreshes share one probe run", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{started: make(chan struct{}, 1), release: make(chan struct{})}
		svc, db, _ := newTestService(t, collector)

		results := runConcurrently(t, svc, collector)

		if collector.calls.Load() != 1 {
			t.Errorf("expected 1 probe run, got %d", collector.calls.Load())
		}
		for i, r := range results {
			if r.Record.ID != results[0].Record.ID || r.CacheStatus != model.CacheStatusFresh {
				t.Errorf("caller %d got %+v", i, r)
			}
		}
		if count, _ := db.Count(context.Background()); count != 1 {
			t.Errorf("expected 1 record, got %d", count)
		}
	})

	t.Run("without coalescing every caller probes but one row remains", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{started: make(chan struct{}, callers), release: make(chan struct{})}
		svc, db, _ := newTestService(t, collector, WithCoalescing(false))

		results := runConcurrently(t, svc, collector)

		if collector.calls.Load() != callers {
			t.Errorf("expected %d probe runs, got %d", callers, collector.calls.Load())
		}
		for i, r := range results {
			if r.Record.ID != results[0].Record.ID {
				t.Errorf("caller %d got id %d, expected %d", i, r.Record.ID, results[0].Record.ID)
			}
		}
		if count, _ := db.Count(context.Background()); count != 1 {
			t.Errorf("expected 1 record, got %d", count)
		}
	})

	t.Run("abandoned refresh is still stored", func(t *testing.T) {
		t.Parallel()

		collector := &countingCollector{started: make(chan struct{}, 1), release: make(chan struct{})}
		svc, db, _ := newTestService(t, collector)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			_, err := svc.GetOrCreate(ctx, "example.com", false)
			errCh <- err
		}()

		<-collector.started
		cancel()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		close(collector.release)

		deadline := time.Now().Add(5 * time.Second)
		for {
			if _, err := db.GetByAddress(context.Background(), "example.com"); err == nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("expected the detached refresh to store the record")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

// TestList tests listing stored addresses.
func TestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t, &countingCollector{})

	for _, input := range []string{"b.example.com", "a.example.com"} {
		if _, err := svc.GetOrCreate(ctx, input, false); err != nil {
			t.Fatalf("GetOrCreate(%q) failed: %v", input, err)
		}
	}

	addresses, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addresses) != 2 || addresses[0] != "a.example.com" || addresses[1] != "b.example.com" {
		t.Errorf("unexpected addresses %v", addresses)
	}
}
