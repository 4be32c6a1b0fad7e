package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/spacesedan/ytindex/config"
	"github.com/spacesedan/ytindex/internal/clients"
	"github.com/spacesedan/ytindex/internal/ingest"
	"github.com/spacesedan/ytindex/internal/logging"
	"github.com/spacesedan/ytindex/internal/monitoring"
)

func main() {
	config.LoadEnv(config.AppEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("[Main] Import failed",
			slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ingest",
		Usage: "Load YouTube API exports into PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Rows written per database round-trip",
				Value: ingest.DefaultWriteBatch,
			},
		},
		Before: func(c *cli.Context) error {
			logging.InitLogger(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			importCommand("channels", "Upsert channels from a JSON export", "/app/data/api_data/channels_data.json",
				(*ingest.Importer).Channels),
			importCommand("videos", "Insert new videos from a JSON export", "/app/data/videos_data.json",
				(*ingest.Importer).Videos),
			importCommand("comments", "Insert new comments from a CSV export", "/app/data/comments_data.csv",
				(*ingest.Importer).Comments),
			importCommand("categories", "Upsert video categories from a JSON export", "/app/data/categories_data.json",
				(*ingest.Importer).Categories),
		},
	}
}

type importFunc func(*ingest.Importer, context.Context, string) (ingest.Stats, error)

func importCommand(name, usage, defaultPath string, run importFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[file]",
		Action: func(c *cli.Context) error {
			path := defaultPath
			if c.Args().Present() {
				path = c.Args().First()
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pg, err := clients.NewPostgresClient(c.Context, cfg.Postgres.DSN())
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := monitoring.WaitUntilHealthy(c.Context, "postgres", pg,
				cfg.Postgres.ConnectRetries, cfg.Postgres.ConnectDelay); err != nil {
				return err
			}

			im := ingest.NewImporter(ingest.NewWriter(pg.DB, c.Int("batch-size")))
			stats, err := run(im, c.Context, path)
			if err != nil {
				return err
			}
			if !stats.OK() {
				return fmt.Errorf("%s import finished with %d errored and %d skipped rows",
					name, stats.Errored, stats.Skipped)
			}
			return nil
		},
	}
}
