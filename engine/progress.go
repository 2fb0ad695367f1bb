package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/pdpscrape/models"
)

// Progress is the live view of a run, read concurrently by the status server.
type Progress struct {
	runID       string
	total       atomic.Int64
	processed   atomic.Int64
	succeeded   atomic.Int64
	failed      atomic.Int64
	checkpoints atomic.Int64
	done        atomic.Bool

	mu        sync.RWMutex
	current   string
	startedAt time.Time
	lastErr   *models.ErrorDetail
}

// Snapshot is a point-in-time copy of Progress.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	Total       int64     `json:"total"`
	Processed   int64     `json:"processed"`
	Succeeded   int64     `json:"succeeded"`
	Failed      int64     `json:"failed"`
	Checkpoints int64     `json:"checkpoints"`
	CurrentURL  string    `json:"current_url,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	Done        bool      `json:"done"`

	// LastError describes the most recent failed row.
	LastError *models.ErrorDetail `json:"last_error,omitempty"`
}

func NewProgress(runID string) *Progress {
	return &Progress{runID: runID}
}

func (p *Progress) RunID() string { return p.runID }

func (p *Progress) start(total int) {
	p.total.Store(int64(total))
	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()
}

func (p *Progress) begin(url string) {
	p.mu.Lock()
	p.current = url
	p.mu.Unlock()
}

func (p *Progress) finishRow(res models.RowResult) {
	p.processed.Add(1)
	if res.OK() {
		p.succeeded.Add(1)
		return
	}
	p.failed.Add(1)
	var se *models.ScrapeError
	if errors.As(res.Err, &se) {
		p.mu.Lock()
		p.lastErr = se.ToDetail()
		p.mu.Unlock()
	}
}

func (p *Progress) setCheckpoints(n int) { p.checkpoints.Store(int64(n)) }

func (p *Progress) finish() {
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
	p.done.Store(true)
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	current, startedAt, lastErr := p.current, p.startedAt, p.lastErr
	p.mu.RUnlock()
	return Snapshot{
		RunID:       p.runID,
		Total:       p.total.Load(),
		Processed:   p.processed.Load(),
		Succeeded:   p.succeeded.Load(),
		Failed:      p.failed.Load(),
		Checkpoints: p.checkpoints.Load(),
		CurrentURL:  current,
		StartedAt:   startedAt,
		Done:        p.done.Load(),
		LastError:   lastErr,
	}
}
