package usecase

import (
	"math"

	"HistPull/internal/domain/models"
	"HistPull/internal/services/features"
)

// VIXDeltaSymbol is the name under which the derived volatility-change
// series is stored, next to the raw series it came from.
const VIXDeltaSymbol = "VIX_DELTA"

// BuildLogDelta derives a day-over-day log change series: for each adjacent
// pair it emits ln(x_t / x_{t-1}) at the later timestamp. Pairs with a
// missing or non-positive operand are skipped, so the output can be shorter
// than the input.
func BuildLogDelta(series []models.Observation) []models.Observation {
	xs := features.CloseSeries(series)
	rs := features.LogReturns(xs)

	out := make([]models.Observation, 0, len(series))
	for i, r := range rs {
		if math.IsNaN(r) {
			continue
		}
		v := r
		out = append(out, models.Observation{
			Datetime: series[i].Datetime,
			Value:    &v,
		})
	}
	return out
}
