package pipeline

import (
	"sync"
	"time"

	"github.com/teslashibe/go-sorter/pkg/vote"
)

// Snapshot is a point-in-time copy of the run counters, safe to hand
// to the status server.
type Snapshot struct {
	RunsStarted   uint64    `json:"runs_started"`
	RunsSucceeded uint64    `json:"runs_succeeded"`
	RunsFailed    uint64    `json:"runs_failed"`
	LastLabel     string    `json:"last_label,omitempty"`
	LastMethod    string    `json:"last_method,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
}

// Stats tracks run outcomes across the process lifetime. It is the
// only pipeline state that survives a run.
type Stats struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (s *Stats) started() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunsStarted++
	s.snap.LastRunAt = time.Now()
}

func (s *Stats) succeeded(d vote.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunsSucceeded++
	s.snap.LastLabel = d.Label
	s.snap.LastMethod = string(d.Method)
	s.snap.LastError = ""
}

func (s *Stats) failed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunsFailed++
	s.snap.LastError = err.Error()
}

func (s *Stats) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
