package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/narrate/internal/app"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

// watchFile speaks src and speaks it again after every change until ctx
// is done. A new narration cancels the one still playing.
func watchFile(ctx context.Context, a *app.App, src *source, prog *progress) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch file: %w", err)
	}
	defer w.Close() //nolint:errcheck

	// Editors often replace the file, so watch its directory.
	if err := w.Add(filepath.Dir(src.path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", src.path, err)
	}

	replay := func() {
		body, err := src.read()
		if err != nil {
			log.Warn("reading watched file", "err", err)
			return
		}
		go func() {
			if err := speak(ctx, a, body, prog); err != nil {
				prog.println(errorStyle.Render(err.Error()))
			}
		}()
	}

	prog.println(subtle(fmt.Sprintf("Watching %s, press ctrl+c to stop.", filepath.Base(src.path))))
	replay()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			a.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != src.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("watched file changed", "op", ev.Op)
			debounce = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case <-debounce:
			debounce = nil
			replay()
		}
	}
}
