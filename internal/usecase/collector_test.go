package usecase

import (
	"context"
	"testing"
	"time"

	"HistPull/internal/domain/models"
	"HistPull/internal/service/ratelimit"
	"HistPull/pkg/util"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const barStep = 30 * time.Minute

func barAt(i int) models.Observation {
	return models.Observation{
		Datetime: util.FormatDateTime(base.Add(time.Duration(i) * barStep)),
		Close:    "100",
	}
}

func bars(n int) []models.Observation {
	out := make([]models.Observation, n)
	for i := range out {
		out[i] = barAt(i)
	}
	return out
}

// fakeAdapter serves windows out of a fixed ascending dataset. Its lower
// bound is deliberately sloppy by one step, imitating upstreams that include
// the boundary record on forward pagination.
type fakeAdapter struct {
	name     string
	pageSize int
	data     []models.Observation
	script   []error // error to return on call i, nil to serve
	failFor  map[string]error
	calls    int
}

func (f *fakeAdapter) Name() string        { return f.name }
func (f *fakeAdapter) PageSize() int       { return f.pageSize }
func (f *fakeAdapter) Step() time.Duration { return barStep }

func (f *fakeAdapter) Fetch(_ context.Context, symbol string, win models.Window) ([]models.Observation, bool, error) {
	i := f.calls
	f.calls++
	if i < len(f.script) && f.script[i] != nil {
		return nil, false, f.script[i]
	}
	if err, ok := f.failFor[symbol]; ok {
		return nil, false, err
	}

	var sel []models.Observation
	for _, o := range f.data {
		t := o.Time()
		if !win.From.IsZero() && t.Before(win.From.Add(-barStep)) {
			continue
		}
		if !win.To.IsZero() && t.After(win.To) {
			continue
		}
		sel = append(sel, o)
	}
	if f.pageSize > 0 && len(sel) > f.pageSize {
		if !win.From.IsZero() {
			// Forward pagination serves the oldest records first.
			return sel[:f.pageSize], false, nil
		}
		return sel[len(sel)-f.pageSize:], false, nil
	}
	return sel, len(sel) < f.pageSize || f.pageSize == 0, nil
}

type memStore struct {
	m     map[string][]models.Observation
	saves int
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string][]models.Observation)}
}

func (s *memStore) key(source, symbol string) string { return source + "/" + symbol }

func (s *memStore) Load(_ context.Context, source, symbol string) ([]models.Observation, error) {
	series := s.m[s.key(source, symbol)]
	out := make([]models.Observation, len(series))
	copy(out, series)
	return out, nil
}

func (s *memStore) Save(_ context.Context, source, symbol string, series []models.Observation) error {
	out := make([]models.Observation, len(series))
	copy(out, series)
	s.m[s.key(source, symbol)] = out
	s.saves++
	return nil
}

func newTestCollector(a *fakeAdapter, s *memStore, opts ...CollectorOption) *Collector {
	opts = append([]CollectorOption{
		WithClock(func() time.Time { return base.Add(100 * barStep) }),
		WithRetry(2, time.Millisecond),
	}, opts...)
	return NewCollector(a, s, ratelimit.New(10_000, time.Minute), opts...)
}

func checkSeries(t *testing.T, series []models.Observation, wantLen int) {
	t.Helper()
	if len(series) != wantLen {
		t.Fatalf("expected %d observations, got %d", wantLen, len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i-1].Datetime >= series[i].Datetime {
			t.Fatalf("series not strictly increasing at %d", i)
		}
	}
}

func TestFreshBackfillMultiPage(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 10, data: bars(25)}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	if sum.Failed != 0 {
		t.Fatalf("unexpected failures: %+v", sum.Results)
	}
	res := sum.Results[0]
	if res.Mode != "fresh" {
		t.Fatalf("expected fresh mode, got %q", res.Mode)
	}
	if res.Calls != 3 {
		t.Fatalf("expected 3 calls (10+10+5), got %d", res.Calls)
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 25)
	if stored[0].Datetime != barAt(0).Datetime || stored[24].Datetime != barAt(24).Datetime {
		t.Fatalf("backfill lost range edges: %q .. %q", stored[0].Datetime, stored[24].Datetime)
	}
}

func TestUpdateAppendsOnlyNewer(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(25)}
	s := newMemStore()
	s.m["test/BTC"] = bars(20)
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	res := sum.Results[0]
	if res.Mode != "update" {
		t.Fatalf("expected update mode, got %q", res.Mode)
	}
	if res.Added != 5 {
		t.Fatalf("expected 5 new observations, got %d", res.Added)
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 25)
}

func TestUpdateIdempotent(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(25)}
	s := newMemStore()
	s.m["test/BTC"] = bars(25)
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	res := sum.Results[0]
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Added != 0 {
		t.Fatalf("caught-up series must add nothing, got %d", res.Added)
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 25)
}

func TestUpdateCursorAdvancesAcrossPages(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 10, data: bars(45)}
	s := newMemStore()
	s.m["test/BTC"] = bars(20)
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	res := sum.Results[0]
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Added != 25 {
		t.Fatalf("expected 25 new observations, got %d", res.Added)
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 45)
}

func TestRateLimitedRetryNoLossNoDup(t *testing.T) {
	throttle := &models.FetchError{Source: "test", Kind: models.ErrRateLimited, Msg: "slow down", RetryAfter: time.Millisecond}
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(5), script: []error{throttle}}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	res := sum.Results[0]
	if res.Err != nil {
		t.Fatalf("expected retry to recover: %v", res.Err)
	}
	if res.Calls != 2 {
		t.Fatalf("expected 2 calls (throttled then served), got %d", res.Calls)
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 5)
}

func TestTransientRetryExhaustion(t *testing.T) {
	boom := &models.FetchError{Source: "test", Kind: models.ErrTransient, Msg: "flaky"}
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(5), script: []error{boom, boom, boom, boom}}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	if sum.Failed != 1 {
		t.Fatalf("expected symbol failure after retries, got %+v", sum.Results)
	}
	if _, ok := s.m["test/BTC"]; ok {
		t.Fatalf("nothing should be stored after a failed fresh start")
	}
}

func TestFatalSymbolDoesNotAbortBatch(t *testing.T) {
	bad := &models.FetchError{Source: "test", Kind: models.ErrFatal, Msg: "invalid symbol"}
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(5), failFor: map[string]error{"BAD": bad}}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BAD", "GOOD"})
	if sum.Failed != 1 {
		t.Fatalf("expected exactly one failure, got %d", sum.Failed)
	}
	if sum.Results[0].Err == nil || sum.Results[1].Err != nil {
		t.Fatalf("wrong symbol failed: %+v", sum.Results)
	}
	stored, _ := s.Load(context.Background(), "test", "GOOD")
	checkSeries(t, stored, 5)
}

func TestNoDataIsBenign(t *testing.T) {
	empty := &models.FetchError{Source: "test", Kind: models.ErrNoData, Msg: "nothing there"}
	a := &fakeAdapter{name: "test", pageSize: 100, failFor: map[string]error{"GHOST": empty}}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"GHOST"})
	if sum.Failed != 0 {
		t.Fatalf("no data must not count as failure: %+v", sum.Results)
	}
}

func TestBudgetStopsPagingKeepsPartial(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 10, data: bars(45)}
	s := newMemStore()
	c := newTestCollector(a, s, WithCallBudget(2))

	sum := c.Run(context.Background(), []string{"BTC", "ETH"})
	if sum.Calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", sum.Calls)
	}
	// Only the first symbol ran; its two newest pages were kept.
	if len(sum.Results) != 1 {
		t.Fatalf("budget must stop before the next symbol, got %d results", len(sum.Results))
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 20)
}

func TestFreshPartialKeptOnLateError(t *testing.T) {
	fatal := &models.FetchError{Source: "test", Kind: models.ErrFatal, Msg: "boom"}
	a := &fakeAdapter{name: "test", pageSize: 10, data: bars(25), script: []error{nil, fatal}}
	s := newMemStore()
	c := newTestCollector(a, s)

	sum := c.Run(context.Background(), []string{"BTC"})
	if sum.Failed != 1 {
		t.Fatalf("expected failure recorded")
	}
	stored, _ := s.Load(context.Background(), "test", "BTC")
	checkSeries(t, stored, 10)
	// The kept slice is the newest page.
	if stored[len(stored)-1].Datetime != barAt(24).Datetime {
		t.Fatalf("partial history should keep the newest page, got tail %q", stored[len(stored)-1].Datetime)
	}
}

func TestContextCancellationStopsRun(t *testing.T) {
	a := &fakeAdapter{name: "test", pageSize: 100, data: bars(5)}
	s := newMemStore()
	c := newTestCollector(a, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := c.Run(ctx, []string{"BTC", "ETH"})
	if len(sum.Results) != 0 {
		t.Fatalf("cancelled run should collect nothing, got %+v", sum.Results)
	}
}
