package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formintake/formintake/internal/common"
)

func waitForPath(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-ch:
			require.True(t, ok, "event channel closed before %s arrived", want)
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	waitForPath(t, evCh, path)
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	wanted := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(wanted, []byte("x"), 0o644))

	// The txt file must never surface; the png proves events flow.
	waitForPath(t, evCh, wanted)
	select {
	case got := <-evCh:
		assert.Equal(t, wanted, got, "only supported files may be emitted")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "already-there.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true})
	require.NoError(t, err)
	waitForPath(t, evCh, existing)
}

func TestWatcherDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, Debounce: 100 * time.Millisecond})
	require.NoError(t, err)

	path := filepath.Join(dir, "scan.pdf")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	}
	waitForPath(t, evCh, path)
}

func TestWatcherClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	evCh, errCh, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	cancel()
	deadline := time.After(5 * time.Second)
	for evCh != nil || errCh != nil {
		select {
		case _, ok := <-evCh:
			if !ok {
				evCh = nil
			}
		case _, ok := <-errCh:
			if !ok {
				errCh = nil
			}
		case <-deadline:
			t.Fatal("channels did not close after cancel")
		}
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestWatcherMissingRoot(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{
		Roots: []string{filepath.Join(t.TempDir(), "nope")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSource)
}
