package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pdpscrape/checkpoint"
	"github.com/use-agent/pdpscrape/metrics"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
	"golang.org/x/time/rate"
)

// Opener creates the session a run navigates with.
type Opener func() (scraper.Page, error)

// Runner processes rows strictly one after another over one session.
type Runner struct {
	open     Opener
	proc     *Processor
	agg      *checkpoint.Aggregator
	progress *Progress
	limiter  *rate.Limiter
	options
}

// NewRunner builds a run loop. requestsPerSecond caps navigations; 0 or
// less disables pacing. progress may be nil.
func NewRunner(open Opener, proc *Processor, agg *checkpoint.Aggregator, progress *Progress, requestsPerSecond float64, opts ...Option) *Runner {
	if progress == nil {
		progress = NewProgress("")
	}
	r := &Runner{
		open:     open,
		proc:     proc,
		agg:      agg,
		progress: progress,
		options:  buildOptions(opts),
	}
	if requestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return r
}

// Run opens the session, processes rows in order and finalizes the output.
// The session is closed on every return path.
//
// A session that cannot be opened aborts the run before any row with a
// SESSION_INIT_FAILED error. Row failures never abort the run. When ctx is
// cancelled the loop stops before the next row, the row in flight is left
// unrecorded, and what was collected is still finalized. The returned error
// is then the finalize error, if any.
func (r *Runner) Run(ctx context.Context, rows []models.InputRow) (models.RunSummary, error) {
	start := time.Now()
	summary := models.RunSummary{RunID: r.progress.RunID(), Total: len(rows)}

	page, err := r.open()
	if err != nil {
		if !models.HasCode(err, models.ErrCodeSessionInit) {
			err = models.NewSessionInitFailure("failed to open session", err)
		}
		return summary, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			slog.Warn("session close failed", "error", cerr)
		}
	}()

	r.progress.start(len(rows))
	defer r.progress.finish()

	for i, row := range rows {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				summary.Interrupted = true
				break
			}
		}

		r.progress.begin(row.URL)
		res := r.proc.Process(ctx, page, row)
		if !res.OK() && ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		r.record(i, len(rows), res)

		if err := r.agg.CheckpointIfDue(i); err != nil {
			slog.Error("checkpoint failed", "row", i+1, "error", err)
		}
		r.progress.setCheckpoints(r.agg.Checkpoints())
	}

	if summary.Interrupted {
		slog.Warn("run interrupted, saving collected rows")
	}

	finalErr := r.agg.Finalize()
	r.progress.setCheckpoints(r.agg.Checkpoints())

	summary.Succeeded = len(r.agg.Results())
	summary.Failed = len(r.agg.Failed())
	summary.Checkpoints = r.agg.Checkpoints()
	summary.Duration = time.Since(start)
	return summary, finalErr
}

func (r *Runner) record(i, total int, res models.RowResult) {
	outcome := metrics.OutcomeSucceeded
	if res.OK() {
		r.agg.Accept(*res.Record)
	} else {
		outcome = metrics.OutcomeFailed
		r.agg.Fail(res.Row.URL)
		slog.Error("failed to scrape", "url", res.Row.URL, "error", res.Err)
	}
	r.progress.finishRow(res)
	r.metrics.ObserveRow(outcome, res.Duration)
	slog.Info("row done",
		"index", i+1,
		"total", total,
		"url", res.Row.URL,
		"outcome", outcome,
		"duration_ms", res.Duration.Milliseconds(),
	)
}
