package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/ics"
	"github.com/darvall/gistcal/internal/mcpserver"
	"github.com/darvall/gistcal/internal/parser"
	"github.com/darvall/gistcal/internal/publish"
	"github.com/darvall/gistcal/internal/store"
)

// openService wires the event service from configuration. The caller
// owns the returned store and must close it.
func openService(cfg *Config) (*eventservice.Service, *store.DB, error) {
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var pub publish.Publisher
	if cfg.Publish.Enabled() {
		pub = publish.NewGist(publish.GistConfig{
			Token:    cfg.Publish.GithubToken,
			GistID:   cfg.Publish.GistID,
			Filename: cfg.Publish.Filename,
		})
	}

	svc := eventservice.NewService(st, pub, eventservice.Config{
		WindowMonths: cfg.Calendar.WindowMonths,
		CSV: parser.Options{
			DateLayout: cfg.Ingest.DateFormat,
			TimeLayout: cfg.Ingest.TimeFormat,
		},
		ICS: ics.Options{
			ProdID:     cfg.Calendar.ProdID,
			FoldLines:  cfg.Calendar.FoldLines,
			TimezoneID: cfg.Calendar.Timezone,
		},
	})
	return svc, st, nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

// RunSync ingests one CSV file (or stdin when file is "-" or empty)
// and optionally publishes the refreshed calendar. The sync report is
// printed to stdout.
func RunSync(ctx context.Context, cfg *Config, file string, doPublish bool) error {
	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var src io.Reader = os.Stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		src = f
	}

	report, err := svc.Sync(ctx, src, time.Now(), doPublish)
	if report != nil {
		printJSON(report)
	}
	return err
}

// RunPublish renders the upcoming window and pushes it to the
// configured gist, printing the publish report.
func RunPublish(ctx context.Context, cfg *Config) error {
	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := svc.PublishCalendar(ctx, time.Now())
	if err != nil {
		return err
	}
	printJSON(report)
	return nil
}

// RunClear deletes every stored event.
func RunClear(ctx context.Context, cfg *Config) error {
	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := svc.Clear(ctx)
	if err != nil {
		return err
	}
	printJSON(map[string]int64{"deleted": n})
	return nil
}

// RunMCP serves the MCP tool interface on stdin/stdout.
func RunMCP(_ context.Context, cfg *Config) error {
	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return mcpserver.New(svc).ServeStdio()
}
