package usecase

import (
	"context"
	"time"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	"HistPull/internal/service/ratelimit"
	applogger "HistPull/pkg/logger"
)

// SymbolResult reports the outcome of collecting one symbol.
type SymbolResult struct {
	Symbol string
	Mode   string // fresh or update
	Calls  int
	Added  int
	Total  int
	Err    error
}

// Summary aggregates one collection run over a source's symbol batch.
type Summary struct {
	Source  string
	Results []SymbolResult
	Calls   int
	Added   int
	Failed  int
	Elapsed time.Duration
}

// Collector drives incremental collection for one source. A symbol with no
// stored series is collected fresh, paging backward from now; a symbol with
// history is updated forward from its last stored timestamp. Each page is
// merged into the stored series and saved, so an interrupted run resumes from
// whatever reached disk.
type Collector struct {
	source  drepo.SourceAdapter
	store   drepo.SeriesStore
	limiter *ratelimit.Limiter
	pub     drepo.Publisher
	metrics drepo.Metrics
	log     *applogger.Logger
	tracker *Tracker

	maxCalls int
	retries  int
	backoff  time.Duration
	now      func() time.Time

	calls int
}

type CollectorOption func(*Collector)

func WithPublisher(p drepo.Publisher) CollectorOption {
	return func(c *Collector) { c.pub = p }
}

func WithMetrics(m drepo.Metrics) CollectorOption {
	return func(c *Collector) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) CollectorOption {
	return func(c *Collector) { c.log = l }
}

func WithTracker(t *Tracker) CollectorOption {
	return func(c *Collector) { c.tracker = t }
}

// WithCallBudget caps upstream calls for one run. Zero means unlimited.
func WithCallBudget(n int) CollectorOption {
	return func(c *Collector) { c.maxCalls = n }
}

func WithRetry(retries int, backoff time.Duration) CollectorOption {
	return func(c *Collector) {
		c.retries = retries
		c.backoff = backoff
	}
}

func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

func NewCollector(source drepo.SourceAdapter, store drepo.SeriesStore, limiter *ratelimit.Limiter, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:  source,
		store:   store,
		limiter: limiter,
		log:     applogger.Nop(),
		retries: 3,
		backoff: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run collects every symbol in order. A failed symbol is recorded and the
// batch continues; only context cancellation or an exhausted call budget
// stops the run early.
func (c *Collector) Run(ctx context.Context, symbols []string) Summary {
	start := c.now()
	c.calls = 0
	sum := Summary{Source: c.source.Name()}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		if c.budgetExhausted() {
			c.log.Warn("call budget exhausted, skipping remaining symbols",
				applogger.String("source", sum.Source),
				applogger.Int("budget", c.maxCalls))
			break
		}

		c.setStatus(symbol, "collecting")
		res := c.collectSymbol(ctx, symbol)
		sum.Results = append(sum.Results, res)
		sum.Calls += res.Calls
		sum.Added += res.Added
		if res.Err != nil {
			sum.Failed++
			c.setStatus(symbol, "failed")
			c.log.Error("symbol failed",
				applogger.String("source", sum.Source),
				applogger.String("symbol", symbol),
				applogger.String("mode", res.Mode),
				applogger.Error(res.Err))
			continue
		}
		c.setStatus(symbol, "done")
		c.log.Info("symbol collected",
			applogger.String("source", sum.Source),
			applogger.String("symbol", symbol),
			applogger.String("mode", res.Mode),
			applogger.Int("calls", res.Calls),
			applogger.Int("added", res.Added),
			applogger.Int("total", res.Total))
	}

	sum.Elapsed = c.now().Sub(start)
	return sum
}

func (c *Collector) collectSymbol(ctx context.Context, symbol string) SymbolResult {
	existing, err := c.store.Load(ctx, c.source.Name(), symbol)
	if err != nil {
		return SymbolResult{Symbol: symbol, Err: err}
	}
	if len(existing) == 0 {
		return c.collectFresh(ctx, symbol)
	}
	return c.collectUpdate(ctx, symbol, existing)
}

// collectFresh pages backward from now until a short page, an empty page or
// the budget ends it, then writes the series once. An error mid-way keeps the
// pages already fetched.
func (c *Collector) collectFresh(ctx context.Context, symbol string) SymbolResult {
	res := SymbolResult{Symbol: symbol, Mode: "fresh"}
	step := c.source.Step()

	var fetched []models.Observation
	win := models.Window{To: c.now()}
	if c.source.PageSize() == 0 {
		win = models.Window{}
	}

	for {
		page, complete, err := c.fetchPage(ctx, symbol, win, &res.Calls)
		if err != nil {
			if models.KindOf(err) == models.ErrNoData && len(fetched) == 0 {
				return res
			}
			res.Err = err
			break
		}
		fetched = append(fetched, page...)
		if len(page) == 0 || complete {
			break
		}
		if c.budgetExhausted() {
			c.log.Warn("call budget exhausted mid symbol, keeping partial history",
				applogger.String("source", c.source.Name()),
				applogger.String("symbol", symbol))
			break
		}
		// Pages are ascending; the next window ends just before the oldest
		// record seen so far.
		win.To = page[0].Time().Add(-step)
	}

	if len(fetched) == 0 {
		return res
	}

	merged := Merge(nil, fetched)
	if err := c.persist(ctx, symbol, merged, merged); err != nil {
		res.Err = err
		return res
	}
	res.Added = len(merged)
	res.Total = len(merged)
	return res
}

// collectUpdate pages forward from the stored cursor. Each accepted page is
// merged and saved before the next call, so the cursor on disk only moves
// forward.
func (c *Collector) collectUpdate(ctx context.Context, symbol string, existing []models.Observation) SymbolResult {
	res := SymbolResult{Symbol: symbol, Mode: "update", Total: len(existing)}
	step := c.source.Step()
	cursor := models.LastTime(existing)

	for {
		page, complete, err := c.fetchPage(ctx, symbol, models.Window{From: cursor.Add(step)}, &res.Calls)
		if err != nil {
			if models.KindOf(err) != models.ErrNoData {
				res.Err = err
			}
			return res
		}

		// Upstreams sometimes include the boundary record; only strictly
		// newer observations advance the series.
		accepted := page[:0:0]
		for _, o := range page {
			if o.Time().After(cursor) {
				accepted = append(accepted, o)
			}
		}
		if len(accepted) == 0 {
			return res
		}

		existing = Merge(existing, accepted)
		if err := c.persist(ctx, symbol, existing, accepted); err != nil {
			res.Err = err
			return res
		}
		res.Added += len(accepted)
		res.Total = len(existing)
		cursor = models.LastTime(existing)

		if complete {
			return res
		}
		if c.budgetExhausted() {
			c.log.Warn("call budget exhausted mid symbol, update resumes next run",
				applogger.String("source", c.source.Name()),
				applogger.String("symbol", symbol))
			return res
		}
	}
}

// fetchPage performs one rate-limited upstream call with bounded retries.
// Rate-limit errors honor the adapter's backoff hint; transient errors use
// the configured backoff. NoData and Fatal return immediately.
func (c *Collector) fetchPage(ctx context.Context, symbol string, win models.Window, calls *int) ([]models.Observation, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, false, err
		}

		start := time.Now()
		page, complete, err := c.source.Fetch(ctx, symbol, win)
		*calls++
		c.calls++
		c.recordCall(time.Since(start))
		if err == nil {
			return page, complete, nil
		}
		lastErr = err

		kind := models.KindOf(err)
		c.recordError(kind)
		switch kind {
		case models.ErrRateLimited:
			wait := models.RetryAfterOf(err)
			if wait <= 0 {
				wait = c.backoff
			}
			c.log.Warn("throttled upstream, backing off",
				applogger.String("source", c.source.Name()),
				applogger.String("symbol", symbol),
				applogger.Duration("wait", wait))
			c.recordThrottle(wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, false, err
			}
		case models.ErrTransient:
			if err := sleepCtx(ctx, c.backoff); err != nil {
				return nil, false, err
			}
		default:
			return nil, false, err
		}
	}
	return nil, false, lastErr
}

// persist writes the full series, then best-effort publishes the new slice.
func (c *Collector) persist(ctx context.Context, symbol string, series, added []models.Observation) error {
	if err := c.store.Save(ctx, c.source.Name(), symbol, series); err != nil {
		return err
	}
	c.recordRecords(symbol, len(added))
	if c.pub != nil && len(added) > 0 {
		if err := c.pub.PublishBatch(ctx, c.source.Name(), symbol, added); err != nil {
			c.log.Warn("publish failed",
				applogger.String("source", c.source.Name()),
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}
	return nil
}

func (c *Collector) budgetExhausted() bool {
	return c.maxCalls > 0 && c.calls >= c.maxCalls
}

func (c *Collector) setStatus(symbol, state string) {
	if c.tracker != nil {
		c.tracker.Set(c.source.Name(), symbol, state)
	}
}

func (c *Collector) recordCall(latency time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordCall(c.source.Name())
		c.metrics.RecordFetchLatency(c.source.Name(), latency.Seconds())
	}
}

func (c *Collector) recordError(kind models.ErrorKind) {
	if c.metrics != nil {
		c.metrics.RecordError(c.source.Name(), kind.String())
	}
}

func (c *Collector) recordThrottle(wait time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordThrottleWait(c.source.Name(), wait.Seconds())
	}
}

func (c *Collector) recordRecords(symbol string, n int) {
	if c.metrics != nil {
		c.metrics.RecordRecords(c.source.Name(), symbol, n)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
