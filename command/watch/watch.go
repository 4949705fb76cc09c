package watch

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	ccsv "costlens/connectors/csv"
	"costlens/domain/usage"
)

// Run watches a usage export and rewrites the report CSVs whenever the
// file changes. Every change re-reads and re-aggregates the whole file;
// there is no incremental state to get out of sync.
func Run(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "usage export CSV to watch")
	out := fs.String("out", "data", "directory for report CSVs")
	debounce := fs.Duration("debounce", 200*time.Millisecond, "delay before re-reading after a change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		slog.Error("watch.validation.error", "reason", "missing file")
		return fmt.Errorf("watch: -file is required")
	}

	abs, err := filepath.Abs(*file)
	if err != nil {
		return err
	}

	// Initial pass; the file may not exist yet, in which case the first
	// write event produces the reports.
	if err := refresh(abs, *out); err != nil {
		slog.Warn("watch.initial.error", "file", abs, "error", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors and exporters replace files by
	// rename, which silently drops a watch set on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("watch.start", "file", abs, "out", *out, "debounce", *debounce)

	// Debounce: exporters write in bursts, so coalesce events and only
	// re-read once the file has settled.
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch.stop")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(*debounce)
				timerC = timer.C
			} else {
				timer.Reset(*debounce)
			}
		case <-timerC:
			if err := refresh(abs, *out); err != nil {
				slog.Warn("watch.refresh.error", "error", err)
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch.fsnotify.error", "error", werr)
		}
	}
}

func refresh(file, out string) error {
	records, err := ccsv.ReadUsageFile(file)
	if err != nil {
		return err
	}
	s := usage.Aggregate(records)
	if err := ccsv.WriteReports(out, s); err != nil {
		return err
	}
	slog.Info("watch.refresh.done", "records", len(records), "total_cost", s.TotalCost)
	return nil
}
