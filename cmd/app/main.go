package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/darvall/gistcal/internal"
	pkgconfig "github.com/darvall/gistcal/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the config file named by --config. When the flag is
// left at its default and no file exists there, built-in defaults apply
// so the tool works out of the box.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")
	cfg := internal.NewDefaultConfig()

	if !cmd.IsSet("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "gistcal",
		Usage:  "Sync Outlook CSV calendar exports into a deduplicated store and publish them as an ICS feed via GitHub Gist",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "gistcal.yaml",
				Value:       "gistcal.yaml",
				Sources:     cli.EnvVars("GISTCAL_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Ingest one CSV export and publish the refreshed calendar",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "CSV file to ingest (\"-\" or empty reads stdin)",
					},
					&cli.BoolFlag{
						Name:  "no-publish",
						Usage: "Store events without pushing the feed",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunSync(ctx, cfg, cmd.String("file"), !cmd.Bool("no-publish"))
				},
			},
			{
				Name:  "publish",
				Usage: "Push the current window to the configured gist without ingesting anything",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunPublish(ctx, cfg)
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every stored event",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunClear(ctx, cfg)
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve calendar tools over the Model Context Protocol on stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, cfg)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("gistcal exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
