// Package checkpoint accumulates the records of a run and persists them in
// batches, keeping failed URLs apart from the scraped rows.
package checkpoint

import (
	"errors"
	"log/slog"

	"github.com/use-agent/pdpscrape/metrics"
	"github.com/use-agent/pdpscrape/models"
)

// RecordSink persists the full accumulated record set, replacing whatever
// an earlier call wrote.
type RecordSink interface {
	SaveRecords(records []models.OutputRecord) error
}

// FailureSink persists the list of failed URLs.
type FailureSink interface {
	SaveFailures(urls []string) error
}

// Aggregator keeps records and failures in processing order. It is owned by
// the run loop and is not safe for concurrent use.
type Aggregator struct {
	batchSize   int
	records     RecordSink
	failures    FailureSink
	metrics     *metrics.Metrics
	results     []models.OutputRecord
	failed      []string
	checkpoints int
	failSaved   bool
}

// New returns an aggregator that checkpoints every batchSize rows.
// A batchSize below 1 is treated as 1.
func New(batchSize int, records RecordSink, failures FailureSink, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		batchSize: max(1, batchSize),
		records:   records,
		failures:  failures,
		metrics:   m,
	}
}

// Accept appends a successfully scraped record.
func (a *Aggregator) Accept(rec models.OutputRecord) {
	a.results = append(a.results, rec)
}

// Fail appends the URL of a failed row.
func (a *Aggregator) Fail(url string) {
	a.failed = append(a.failed, url)
}

// CheckpointIfDue saves the full record set after every batchSize-th row,
// counting rows from zero and including failed ones.
func (a *Aggregator) CheckpointIfDue(rowIndex int) error {
	if (rowIndex+1)%a.batchSize != 0 {
		return nil
	}
	return a.save()
}

// Finalize saves the record set unconditionally, then the failure list when
// it is not empty. Both writes are attempted even if the first fails.
func (a *Aggregator) Finalize() error {
	var errs []error
	if err := a.save(); err != nil {
		errs = append(errs, err)
	}
	if len(a.failed) > 0 {
		if err := a.failures.SaveFailures(a.Failed()); err != nil {
			errs = append(errs, models.NewScrapeError(models.ErrCodeOutput, "failed to write failure table", err))
		} else {
			a.failSaved = true
			slog.Warn("some URLs failed", "count", len(a.failed))
		}
	}
	return errors.Join(errs...)
}

func (a *Aggregator) save() error {
	if err := a.records.SaveRecords(a.Results()); err != nil {
		a.metrics.IncCheckpoint(false)
		return models.NewScrapeError(models.ErrCodeOutput, "failed to write output table", err)
	}
	a.checkpoints++
	a.metrics.IncCheckpoint(true)
	slog.Info("checkpoint saved", "rows", len(a.results))
	return nil
}

// Results returns a copy of the accepted records.
func (a *Aggregator) Results() []models.OutputRecord {
	return append([]models.OutputRecord(nil), a.results...)
}

// Failed returns a copy of the failed URLs.
func (a *Aggregator) Failed() []string {
	return append([]string(nil), a.failed...)
}

// FailuresSaved reports whether Finalize wrote the failure table.
func (a *Aggregator) FailuresSaved() bool {
	return a.failSaved
}

// Checkpoints is the number of successful record saves so far.
func (a *Aggregator) Checkpoints() int {
	return a.checkpoints
}
