package usecase

import (
	"sort"

	"HistPull/internal/domain/models"
)

// Merge combines an existing series with newly fetched observations into one
// ascending series with unique datetimes. When both sides carry the same
// datetime the existing record wins, so a re-fetch can never rewrite history.
// Inputs are not mutated.
func Merge(existing, fetched []models.Observation) []models.Observation {
	if len(fetched) == 0 && len(existing) == 0 {
		return nil
	}

	combined := make([]models.Observation, 0, len(existing)+len(fetched))
	combined = append(combined, existing...)
	combined = append(combined, fetched...)

	// Stable keeps the earlier occurrence first among equal datetimes, which
	// is what makes first-seen-wins fall out of the dedupe below.
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Datetime < combined[j].Datetime
	})

	out := combined[:0:0]
	for _, o := range combined {
		if len(out) > 0 && out[len(out)-1].Datetime == o.Datetime {
			continue
		}
		out = append(out, o)
	}
	return out
}
