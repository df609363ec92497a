package repository

import (
	"context"
	"time"

	"HistPull/internal/domain/models"
)

// SourceAdapter issues one upstream call and normalizes the response into
// ascending Observations. Adapters never touch storage; failures come back
// as *models.FetchError with a kind tag.
type SourceAdapter interface {
	// Name identifies the source; it keys rate budgets and output paths.
	Name() string
	// PageSize is the upstream's per-call record ceiling. Zero means the
	// source answers a full date range in a single call (no pagination).
	PageSize() int
	// Step is the minimal cursor advance between adjacent windows: 1ms for
	// millisecond-keyed klines, one candle granularity elsewhere.
	Step() time.Duration
	// Fetch returns the observations in win, oldest first, and whether the
	// page is complete (fewer records than PageSize, or an unpaginated
	// source). A full page reports complete=false even when it happens to be
	// the last one; the orchestrator spends one extra call to find out.
	Fetch(ctx context.Context, symbol string, win models.Window) ([]models.Observation, bool, error)
}

// SeriesStore persists the per-symbol observation series. The stored series
// doubles as the resume checkpoint: its last timestamp is the cursor.
type SeriesStore interface {
	// Load returns the stored series, or (nil, nil) when absent. Stored
	// content that fails to parse is corruption: implementations log it,
	// discard the entry and report absent so the symbol is re-collected.
	Load(ctx context.Context, source, symbol string) ([]models.Observation, error)
	// Save atomically replaces the whole series.
	Save(ctx context.Context, source, symbol string, series []models.Observation) error
}

// Publisher forwards newly appended observations to downstream systems
// (Kafka topic, ClickHouse table). Best effort: the file store is the source
// of truth and is always written first.
type Publisher interface {
	PublishBatch(ctx context.Context, source, symbol string, obs []models.Observation) error
	Close() error
}

// Metrics records collection telemetry.
type Metrics interface {
	RecordCall(source string)
	RecordRecords(source, symbol string, n int)
	RecordError(source, kind string)
	RecordThrottleWait(source string, seconds float64)
	RecordFetchLatency(source string, seconds float64)
}
