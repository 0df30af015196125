package web

import (
	"sync"
	"time"
)

// maxRuns is how many finished runs the registry remembers.
const maxRuns = 100

// RunStatus is the lifecycle of a server-side run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Run describes one generation request.
type Run struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	Frame      int       `json:"frame"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// registry keeps the most recent runs in insertion order.
type registry struct {
	mu    sync.RWMutex
	limit int
	order []string
	runs  map[string]*Run
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, runs: make(map[string]*Run)}
}

func (r *registry) add(run Run) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = &run
	r.order = append(r.order, run.ID)
	if len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *registry) update(id string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		fn(run)
	}
}

func (r *registry) get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// list returns runs newest first.
func (r *registry) list() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Run, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, *r.runs[r.order[i]])
	}
	return out
}
