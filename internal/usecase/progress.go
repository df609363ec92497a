package usecase

import "sync"

// SymbolStatus is one entry of the live progress view.
type SymbolStatus struct {
	Source string `json:"source"`
	Symbol string `json:"symbol"`
	State  string `json:"state"` // collecting, done, failed
}

// Tracker holds per-symbol collection state for the status endpoint. Safe for
// concurrent use; each source's collector runs in its own goroutine.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]SymbolStatus
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]SymbolStatus)}
}

func (t *Tracker) Set(source, symbol, state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[source+":"+symbol] = SymbolStatus{Source: source, Symbol: symbol, State: state}
}

// Snapshot returns a copy of all entries.
func (t *Tracker) Snapshot() []SymbolStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]SymbolStatus, 0, len(t.states))
	for _, s := range t.states {
		out = append(out, s)
	}
	return out
}
