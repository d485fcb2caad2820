package async

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formintake/formintake/internal/document"
	"github.com/formintake/formintake/internal/export"
	"github.com/formintake/formintake/internal/extract"
	"github.com/formintake/formintake/internal/history"
	"github.com/formintake/formintake/internal/pipeline"
	"github.com/formintake/formintake/internal/source"
)

type fixedSource struct {
	err error
}

func (s *fixedSource) Fetch(context.Context, source.Request) (*document.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &document.Result{
		Text: "Name: Jane Doe",
		Pages: []document.Page{{
			Index: 0,
			FormFields: []document.FormField{{
				Name:  document.TextAnchor{Segments: []document.TextSegment{{Start: 0, End: 4}}},
				Value: document.TextAnchor{Segments: []document.TextSegment{{Start: 6, End: 14}}},
			}},
		}},
	}, nil
}

func newQueue(t *testing.T, src source.DocumentSource, opts ...Option) *RunnerQueue {
	t.Helper()
	runner := pipeline.NewRunner(src, extract.NewExtractor(nil), export.NewCSVSink(nil), nil)
	return NewRunnerQueue(runner, nil, opts...)
}

func TestQueueProcessesAllJobs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4 stub"), 0o644))

	q := newQueue(t, &fixedSource{}, WithWorkers(3), WithQueueSize(8))

	const n = 12
	for i := 0; i < n; i++ {
		err := q.Enqueue(context.Background(), Job{
			Path:    input,
			CSVPath: filepath.Join(dir, fmt.Sprintf("out-%d.csv", i)),
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	for i := 0; i < n; i++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("out-%d.csv", i)))
		require.NoError(t, err)
		assert.Contains(t, string(data), "1,Name,Jane Doe")
	}
}

func TestQueueSurvivesFailedJobs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4 stub"), 0o644))

	q := newQueue(t, &fixedSource{err: errors.New("processor unavailable")}, WithWorkers(2))
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{
			Path:    input,
			CSVPath: filepath.Join(dir, fmt.Sprintf("out-%d.csv", i)),
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	entries, err := filepath.Glob(filepath.Join(dir, "out-*.csv"))
	require.NoError(t, err)
	assert.Empty(t, entries, "failed jobs must not leave output behind")
}

func TestQueueJobIDBecomesRunID(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4 stub"), 0o644))

	store, err := history.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runner := pipeline.NewRunner(&fixedSource{}, extract.NewExtractor(nil), export.NewCSVSink(nil), nil,
		pipeline.WithHistory(store))
	q := NewRunnerQueue(runner, nil, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{
		ID:      "job-7",
		Path:    input,
		CSVPath: filepath.Join(dir, "out.csv"),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	runs, err := store.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "job-7", runs[0].ID)
}

func TestQueueShutdownIsIdempotent(t *testing.T) {
	q := newQueue(t, &fixedSource{}, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	dir := t.TempDir()
	q := newQueue(t, &fixedSource{}, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	csvPath := filepath.Join(dir, "late.csv")
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "whatever.pdf", CSVPath: csvPath}))

	_, err := os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))
}
