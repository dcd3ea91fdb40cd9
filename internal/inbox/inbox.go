// Package inbox feeds CSV exports dropped into a directory through the
// ingest pipeline. Processed files are archived under processed/ so a
// restart never ingests them twice; files that fail stay in place for a
// later retry.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/models"
)

const processedDir = "processed"

// Dir is a watched drop folder for calendar exports.
type Dir struct {
	root   string
	svc    *eventservice.Service
	logger *slog.Logger
}

// New creates an inbox rooted at the given directory.
// The directory must already exist.
func New(root string, svc *eventservice.Service, logger *slog.Logger) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox: root is not a directory: %s", abs)
	}
	return &Dir{root: abs, svc: svc, logger: logger}, nil
}

// Sweep processes every CSV already sitting in the inbox. Subdirectories,
// including the archive, are never descended into.
func (d *Dir) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return fmt.Errorf("inbox: read dir: %w", err)
	}
	files := 0
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		d.handle(ctx, e.Name())
		files++
	}
	d.logger.Info("inbox: sweep complete", slog.Int("files", files))
	return nil
}

// Process ingests one inbox file by name and archives it. A publish
// failure still archives, because the batch is already committed and the
// next publish will cover it. Any other failure leaves the file in place.
func (d *Dir) Process(ctx context.Context, name string) error {
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return fmt.Errorf("inbox: open %s: %w", name, err)
	}
	report, serr := d.svc.Sync(ctx, f, time.Now(), true)
	f.Close()
	if serr != nil && !errors.Is(serr, apperr.ErrPublish) {
		return serr
	}

	if err := d.archive(name); err != nil {
		return err
	}
	if report != nil && report.Ingest != nil {
		d.logger.Info("inbox: ingested",
			slog.String("file", name),
			slog.Int("created", len(report.Ingest.Created)),
			slog.Int("updated", len(report.Ingest.Updated)),
			slog.Int("failed_rows", len(report.Ingest.Failures)))
	}
	return serr
}

// handle runs Process and logs the outcome.
func (d *Dir) handle(ctx context.Context, name string) {
	err := d.Process(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrPublish):
		d.logger.Warn("inbox: publish failed after ingest",
			slog.String("file", name), slog.String("error", err.Error()))
	default:
		d.logger.Warn("inbox: process failed",
			slog.String("file", name), slog.String("error", err.Error()))
	}
}

// archive moves a processed file into processed/ with a timestamp prefix.
func (d *Dir) archive(name string) error {
	dir := filepath.Join(d.root, processedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("inbox: mkdir processed: %w", err)
	}
	stamp := time.Now().UTC().Format(models.StampLayout)
	if err := os.Rename(filepath.Join(d.root, name), filepath.Join(dir, stamp+"-"+name)); err != nil {
		return fmt.Errorf("inbox: archive %s: %w", name, err)
	}
	return nil
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
