package models

import "time"

// RowResult is the outcome of processing one input row: exactly one of
// Record and Err is set.
type RowResult struct {
	Row      InputRow
	Record   *OutputRecord
	Err      error
	Duration time.Duration
}

// OK reports whether the row produced a record.
func (r RowResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// Succeeded builds a successful RowResult.
func Succeeded(row InputRow, rec OutputRecord) RowResult {
	return RowResult{Row: row, Record: &rec}
}

// Failed builds a failed RowResult. The cause is wrapped as a row failure
// unless it already is one.
func Failed(row InputRow, cause error) RowResult {
	if !HasCode(cause, ErrCodeRowFailed) {
		cause = NewRowFailure(row.URL, cause)
	}
	return RowResult{Row: row, Err: cause}
}

// RunSummary is reported at the end of a run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Checkpoints int           `json:"checkpoints"`
	OutputPath  string        `json:"output_path"`
	FailedPath  string        `json:"failed_path,omitempty"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Duration    time.Duration `json:"duration"`
}
