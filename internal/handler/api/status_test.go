package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"HistPull/internal/usecase"
)

func TestStatusEndpoint(t *testing.T) {
	tracker := usecase.NewTracker()
	tracker.Set("binance", "BTC", "done")
	tracker.Set("binance", "ETH", "collecting")

	h := NewStatusHandler(tracker)
	h.Record(usecase.Summary{
		Source:  "binance",
		Results: []usecase.SymbolResult{{Symbol: "BTC"}, {Symbol: "ETH"}},
		Calls:   7,
		Added:   1200,
		Failed:  0,
		Elapsed: 3 * time.Second,
	})

	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Symbols []struct {
			Source string `json:"source"`
			Symbol string `json:"symbol"`
			State  string `json:"state"`
		} `json:"symbols"`
		Sources map[string]struct {
			Calls int `json:"calls"`
			Added int `json:"added"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Symbols) != 2 {
		t.Fatalf("expected 2 symbol entries, got %d", len(resp.Symbols))
	}
	// Entries come back sorted by source then symbol.
	if resp.Symbols[0].Symbol != "BTC" || resp.Symbols[1].Symbol != "ETH" {
		t.Fatalf("unexpected order: %+v", resp.Symbols)
	}
	if resp.Sources["binance"].Calls != 7 || resp.Sources["binance"].Added != 1200 {
		t.Fatalf("unexpected summary: %+v", resp.Sources)
	}
}
