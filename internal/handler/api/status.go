package api

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"HistPull/internal/usecase"
)

// StatusHandler exposes live collection progress on the ops server.
type StatusHandler struct {
	tracker *usecase.Tracker
	started time.Time

	mu        sync.RWMutex
	summaries map[string]sourceSummary
}

type sourceSummary struct {
	Symbols int     `json:"symbols"`
	Calls   int     `json:"calls"`
	Added   int     `json:"added"`
	Failed  int     `json:"failed"`
	Seconds float64 `json:"seconds"`
}

type statusResponse struct {
	UptimeSeconds float64                  `json:"uptime_seconds"`
	Symbols       []usecase.SymbolStatus   `json:"symbols"`
	Sources       map[string]sourceSummary `json:"sources"`
}

func NewStatusHandler(tracker *usecase.Tracker) *StatusHandler {
	return &StatusHandler{
		tracker:   tracker,
		started:   time.Now(),
		summaries: make(map[string]sourceSummary),
	}
}

// Record stores a finished run summary for the status view.
func (h *StatusHandler) Record(sum usecase.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries[sum.Source] = sourceSummary{
		Symbols: len(sum.Results),
		Calls:   sum.Calls,
		Added:   sum.Added,
		Failed:  sum.Failed,
		Seconds: sum.Elapsed.Seconds(),
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/status", h.status)
}

func (h *StatusHandler) status(c echo.Context) error {
	symbols := h.tracker.Snapshot()
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Source != symbols[j].Source {
			return symbols[i].Source < symbols[j].Source
		}
		return symbols[i].Symbol < symbols[j].Symbol
	})

	h.mu.RLock()
	sources := make(map[string]sourceSummary, len(h.summaries))
	for k, v := range h.summaries {
		sources[k] = v
	}
	h.mu.RUnlock()

	return c.JSON(http.StatusOK, statusResponse{
		UptimeSeconds: time.Since(h.started).Seconds(),
		Symbols:       symbols,
		Sources:       sources,
	})
}
