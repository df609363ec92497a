package usecase

import (
	"testing"

	"HistPull/internal/domain/models"
)

func obs(dt, close string) models.Observation {
	return models.Observation{Datetime: dt, Close: close}
}

func TestMergeOrdersAndDedupes(t *testing.T) {
	existing := []models.Observation{
		obs("2024-01-01 00:00:00", "10"),
		obs("2024-01-01 00:30:00", "11"),
	}
	fetched := []models.Observation{
		obs("2024-01-01 01:00:00", "12"),
		obs("2024-01-01 00:30:00", "99"), // duplicate datetime, different payload
		obs("2023-12-31 23:30:00", "9"),
	}

	merged := Merge(existing, fetched)
	if len(merged) != 4 {
		t.Fatalf("expected 4 observations, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Datetime >= merged[i].Datetime {
			t.Fatalf("not strictly increasing at %d: %q >= %q", i, merged[i-1].Datetime, merged[i].Datetime)
		}
	}
	// The record already stored wins over the re-fetched one.
	for _, o := range merged {
		if o.Datetime == "2024-01-01 00:30:00" && o.Close != "11" {
			t.Fatalf("existing record overwritten: %+v", o)
		}
	}
}

func TestMergeKeepsAllDistinct(t *testing.T) {
	existing := []models.Observation{obs("2024-01-01", "1"), obs("2024-01-03", "3")}
	fetched := []models.Observation{obs("2024-01-02", "2"), obs("2024-01-04", "4")}

	merged := Merge(existing, fetched)
	want := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	if len(merged) != len(want) {
		t.Fatalf("expected %d observations, got %d", len(want), len(merged))
	}
	for i, dt := range want {
		if merged[i].Datetime != dt {
			t.Fatalf("position %d: expected %q, got %q", i, dt, merged[i].Datetime)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	series := []models.Observation{obs("2024-01-01", "1"), obs("2024-01-02", "2")}
	once := Merge(series, series)
	twice := Merge(once, series)
	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("merge with itself must not grow: %d then %d", len(once), len(twice))
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing := []models.Observation{obs("2024-01-02", "2"), obs("2024-01-01", "1")}
	_ = Merge(existing, []models.Observation{obs("2024-01-03", "3")})
	if existing[0].Datetime != "2024-01-02" {
		t.Fatalf("input slice reordered")
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	merged := Merge(nil, []models.Observation{obs("2024-01-01", "1")})
	if len(merged) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(merged))
	}
}
