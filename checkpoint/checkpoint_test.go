package checkpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pdpscrape/models"
)

type recordingSink struct {
	saves    [][]models.OutputRecord
	failures [][]string
	err      error
	failErr  error
}

func (s *recordingSink) SaveRecords(records []models.OutputRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, records)
	return nil
}

func (s *recordingSink) SaveFailures(urls []string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.failures = append(s.failures, urls)
	return nil
}

func record(url string) models.OutputRecord {
	return models.NewOutputRecord(models.InputRow{URL: url})
}

func urls(recs []models.OutputRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.URL
	}
	return out
}

func TestBatchOfTwoThreeRows(t *testing.T) {
	sink := &recordingSink{}
	agg := New(2, sink, sink, nil)

	for i, u := range []string{"a", "b", "c"} {
		agg.Accept(record(u))
		require.NoError(t, agg.CheckpointIfDue(i))
	}
	require.NoError(t, agg.Finalize())

	require.Len(t, sink.saves, 2)
	assert.Equal(t, []string{"a", "b"}, urls(sink.saves[0]))
	assert.Equal(t, []string{"a", "b", "c"}, urls(sink.saves[1]))
	assert.Empty(t, sink.failures, "no failure table without failures")
	assert.Equal(t, 2, agg.Checkpoints())
}

func TestCheckpointCadence(t *testing.T) {
	sink := &recordingSink{}
	agg := New(3, sink, sink, nil)

	var savedAfter []int
	for i := 0; i < 10; i++ {
		agg.Accept(record("u"))
		before := len(sink.saves)
		require.NoError(t, agg.CheckpointIfDue(i))
		if len(sink.saves) > before {
			savedAfter = append(savedAfter, i+1)
		}
	}
	require.NoError(t, agg.Finalize())

	assert.Equal(t, []int{3, 6, 9}, savedAfter)
	assert.Len(t, sink.saves, 4, "final save happens even off a batch boundary")
}

func TestFailedRowsCountTowardsBatch(t *testing.T) {
	sink := &recordingSink{}
	agg := New(2, sink, sink, nil)

	agg.Accept(record("a"))
	require.NoError(t, agg.CheckpointIfDue(0))
	agg.Fail("b")
	require.NoError(t, agg.CheckpointIfDue(1))

	require.Len(t, sink.saves, 1)
	assert.Equal(t, []string{"a"}, urls(sink.saves[0]))

	require.NoError(t, agg.Finalize())
	require.Len(t, sink.failures, 1)
	assert.Equal(t, []string{"b"}, sink.failures[0])
}

func TestSavesAreSnapshots(t *testing.T) {
	sink := &recordingSink{}
	agg := New(1, sink, sink, nil)

	agg.Accept(record("a"))
	require.NoError(t, agg.CheckpointIfDue(0))
	agg.Accept(record("b"))

	assert.Len(t, sink.saves[0], 1, "later accepts must not leak into an earlier save")
}

func TestFinalizeReportsWriteErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	agg := New(5, sink, sink, nil)
	agg.Accept(record("a"))
	agg.Fail("b")

	err := agg.Finalize()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeOutput))
	assert.Len(t, sink.failures, 1, "failure table is still written")
	assert.Equal(t, 0, agg.Checkpoints())
}

func TestFailuresSavedOnlyAfterWrite(t *testing.T) {
	sink := &recordingSink{}
	agg := New(5, sink, sink, nil)
	agg.Fail("a")
	assert.False(t, agg.FailuresSaved())
	require.NoError(t, agg.Finalize())
	assert.True(t, agg.FailuresSaved())

	broken := &recordingSink{failErr: errors.New("read-only")}
	agg = New(5, broken, broken, nil)
	agg.Fail("a")
	err := agg.Finalize()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeOutput))
	assert.False(t, agg.FailuresSaved())

	clean := New(5, sink, sink, nil)
	require.NoError(t, clean.Finalize())
	assert.False(t, clean.FailuresSaved(), "nothing to write without failures")
}

func TestBatchSizeFloor(t *testing.T) {
	sink := &recordingSink{}
	agg := New(0, sink, sink, nil)
	agg.Accept(record("a"))
	require.NoError(t, agg.CheckpointIfDue(0))
	assert.Len(t, sink.saves, 1)
}
