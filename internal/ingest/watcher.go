package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/formintake/formintake/constants"
	"github.com/formintake/formintake/internal/common"
)

// WatchConfig controls filesystem watching.
type WatchConfig struct {
	Roots []string
	// InitialScan emits files already present under the roots before any
	// filesystem event arrives.
	InitialScan bool
	// Debounce coalesces rapid create/write bursts for the same path.
	Debounce time.Duration
}

// StartWatcher emits supported document paths as they appear under the
// configured roots. Newly created subdirectories are watched as well. Both
// channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, common.ConfigurationFault("no watch roots provided", nil)
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, common.SourceFault("create filesystem watcher", err)
	}

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && isHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && constants.SupportedExt(path) {
				select {
				case evCh <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addRoot(r); err != nil {
			_ = w.Close()
			return nil, nil, common.SourceFault(fmt.Sprintf("watch %s", r), err)
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		var mu sync.Mutex
		var timer *time.Timer
		pending := map[string]struct{}{}

		// flush runs on the timer goroutine too, hence the mutex.
		flush := func() {
			mu.Lock()
			defer mu.Unlock()
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e := <-w.Events:
				if e.Op&fsnotify.Create == fsnotify.Create {
					watchNewDir(w, e.Name)
				}
				if constants.SupportedExt(e.Name) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					mu.Lock()
					pending[e.Name] = struct{}{}
					mu.Unlock()
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, flush)
					} else {
						flush()
					}
				}
			case err := <-w.Errors:
				slog.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchNewDir(w *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || isHidden(path) {
		return
	}
	if err := w.Add(path); err != nil {
		slog.Warn("failed to watch new directory", "path", path, "error", err)
	}
}
