package inbox

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long a file must stay quiet before it is processed.
// Exports copied over the network arrive as a burst of partial writes.
const debounce = 500 * time.Millisecond

// Watch processes CSV files as they land in the inbox until ctx is
// cancelled. Write events for the same file reset its debounce timer, so
// half-written files are never ingested.
func (d *Dir) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(d.root); err != nil {
		return err
	}
	d.logger.Info("inbox: watching", slog.String("root", d.root))

	fire := make(chan string, 16)
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			d.logger.Info("inbox: watcher stopped")
			return nil

		case name := <-fire:
			delete(timers, name)
			d.handle(ctx, name)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isCSV(name) {
				continue
			}
			if t, ok := timers[name]; ok {
				t.Reset(debounce)
				continue
			}
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case fire <- name:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
