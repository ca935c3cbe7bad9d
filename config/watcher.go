package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the bursts of filesystem events editors produce
// when saving a file.
const debounceWindow = 100 * time.Millisecond

// Watch monitors path and invokes fn with freshly loaded settings whenever
// the file changes. Reload errors are reported through errFn, which may be
// nil. Watching stops when ctx is done.
//
// The parent directory is watched rather than the file itself, so editors
// that replace files by rename are handled.
func Watch(ctx context.Context, path string, fn func(Settings), errFn func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
					timerC = timer.C
				} else {
					timer.Reset(debounceWindow)
				}

			case <-timerC:
				timer = nil
				timerC = nil
				settings, err := Load(abs)
				if err != nil {
					if errFn != nil {
						errFn(err)
					}
					continue
				}
				fn(settings)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if errFn != nil {
					errFn(err)
				}
			}
		}
	}()

	return nil
}
