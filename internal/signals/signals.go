// Package signals lets a separate `devcrew stop` process halt a running crew by
// dropping a kill file into <root>/.devcrew/signals.
package signals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

// ErrStopRequested is the cancellation cause of contexts returned by Watch when
// the kill signal arrives.
var ErrStopRequested = errors.New("stop requested")

const killFile = "kill"

// pollInterval is used when fsnotify is unavailable.
var pollInterval = 500 * time.Millisecond

// Dir returns the signals directory under root.
func Dir(root string) string {
	return filepath.Join(root, ".devcrew", "signals")
}

// SendKill creates the kill signal file under root.
func SendKill(root string) error {
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create signals directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, killFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Watcher reports the kill signal for one run.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher

	stopOnce sync.Once
	stopped  chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher prepares the signals directory under root, removes a kill file left
// by an earlier run, and starts watching for a new one.
func NewWatcher(root string) (*Watcher, error) {
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create signals directory: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, killFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("clear stale kill signal: %w", err)
	}

	w := &Watcher{
		dir:     dir,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	logger := xlog.WithComponent("signals")
	fw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fw.Add(dir); err != nil {
			fw.Close()
		} else {
			w.watcher = fw
		}
	}
	if w.watcher == nil {
		logger.Debug().Err(err).Str(xlog.FieldPath, dir).Msg("fsnotify unavailable, polling for stop signal")
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	if w.watcher == nil {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				if w.killFilePresent() {
					w.trigger()
				}
			}
		}
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == killFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.trigger()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) trigger() {
	w.stopOnce.Do(func() { close(w.stopped) })
}

func (w *Watcher) killFilePresent() bool {
	_, err := os.Stat(filepath.Join(w.dir, killFile))
	return err == nil
}

// Stopped is closed once the kill signal has been seen.
func (w *Watcher) Stopped() <-chan struct{} {
	return w.stopped
}

// ShouldStop reports whether the kill signal has arrived, checking the file
// directly in case an event was missed.
func (w *Watcher) ShouldStop() bool {
	if w.killFilePresent() {
		w.trigger()
	}
	select {
	case <-w.stopped:
		return true
	default:
		return false
	}
}

// Watch returns a child of ctx that is cancelled with ErrStopRequested when the
// kill signal arrives. The returned cancel func must be called.
func (w *Watcher) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-w.stopped:
			cancel(ErrStopRequested)
		case <-ctx.Done():
		case <-w.done:
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// Close stops watching, waits for background goroutines and removes the kill file.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
		w.wg.Wait()
		if rmErr := os.Remove(filepath.Join(w.dir, killFile)); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	})
	return err
}
