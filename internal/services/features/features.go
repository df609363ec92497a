package features

import (
	"math"
	"strconv"

	"HistPull/internal/domain/models"
)

// CloseSeries extracts close prices as floats. Macro series carry their value
// in Value instead of Close; both are handled. Unparseable entries come back
// as NaN so positions stay aligned with the input series.
func CloseSeries(series []models.Observation) []float64 {
	out := make([]float64, len(series))
	for i, o := range series {
		switch {
		case o.Close != "":
			v, err := strconv.ParseFloat(o.Close, 64)
			if err != nil {
				out[i] = math.NaN()
				continue
			}
			out[i] = v
		case o.Value != nil:
			out[i] = *o.Value
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

// VolumeSeries extracts volumes as floats, NaN where missing.
func VolumeSeries(series []models.Observation) []float64 {
	out := make([]float64, len(series))
	for i, o := range series {
		if o.Volume == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(o.Volume, 64)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

// LogReturns computes r_t = ln(x_t / x_{t-1}), aligned to the input: the
// result has the same length, with NaN at position 0 and wherever either
// operand is missing or non-positive.
func LogReturns(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := 1; i < len(xs); i++ {
		prev, cur := xs[i-1], xs[i]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev <= 0 || cur <= 0 {
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// MovingAverage computes the simple moving average over window bars. The
// first window-1 positions are NaN (warmup), as is any window containing NaN.
func MovingAverage(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(xs) < window {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(xs[j]) {
				ok = false
				break
			}
			sum += xs[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingVolatility computes the rolling sample standard deviation of log
// returns over window bars, aligned like MovingAverage.
func RollingVolatility(logReturns []float64, window int) []float64 {
	out := make([]float64, len(logReturns))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 1 || len(logReturns) < window {
		return out
	}
	for i := window - 1; i < len(logReturns); i++ {
		sum, sum2 := 0.0, 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			r := logReturns[j]
			if math.IsNaN(r) {
				ok = false
				break
			}
			sum += r
			sum2 += r * r
		}
		if !ok {
			continue
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// Calendar covariates for one observation.
type DateFeature struct {
	DayOfWeek  int `json:"day_of_week"`  // 0=Monday .. 6=Sunday
	DayOfMonth int `json:"day_of_month"` // 1-based
	Quarter    int `json:"quarter"`      // 1..4
}

// DateFeatures derives calendar covariates from observation timestamps.
// Entries with malformed datetimes get zero values.
func DateFeatures(series []models.Observation) []DateFeature {
	out := make([]DateFeature, len(series))
	for i, o := range series {
		t := o.Time()
		if t.IsZero() {
			continue
		}
		// time.Weekday starts on Sunday; shift so Monday is 0.
		dow := (int(t.Weekday()) + 6) % 7
		out[i] = DateFeature{
			DayOfWeek:  dow,
			DayOfMonth: t.Day(),
			Quarter:    (int(t.Month())-1)/3 + 1,
		}
	}
	return out
}
