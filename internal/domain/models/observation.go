package models

import (
	"time"

	"HistPull/pkg/util"
)

// Observation is one sampled point of a series. Price sources fill the OHLCV
// fields (kept as decimal strings, exactly as the upstreams send them);
// macroeconomic sources fill Value instead.
type Observation struct {
	Datetime string   `json:"datetime"`
	Open     string   `json:"open,omitempty"`
	High     string   `json:"high,omitempty"`
	Low      string   `json:"low,omitempty"`
	Close    string   `json:"close,omitempty"`
	Volume   string   `json:"volume,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// Time parses the observation timestamp. Datetime strings are UTC wall-clock,
// either "2006-01-02 15:04:05" for intraday sources or "2006-01-02" for
// daily ones. Returns the zero time if the string is malformed.
func (o Observation) Time() time.Time {
	t, _ := util.ParseDatetime(o.Datetime)
	return t
}

// Window bounds one fetch. A zero From or To means unbounded on that side;
// adapters substitute their own defaults (e.g. "now" or a lookback horizon).
type Window struct {
	From time.Time
	To   time.Time
}

// LastTime returns the timestamp of the newest observation in an ascending
// series, or the zero time for an empty one. This is the resume cursor.
func LastTime(series []Observation) time.Time {
	if len(series) == 0 {
		return time.Time{}
	}
	return series[len(series)-1].Time()
}
