package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/ytindex/config"
	"github.com/spacesedan/ytindex/internal/clients"
	"github.com/spacesedan/ytindex/internal/logging"
	"github.com/spacesedan/ytindex/internal/monitoring"
	"github.com/spacesedan/ytindex/internal/pipeline"
	"github.com/spacesedan/ytindex/internal/report"
	"github.com/spacesedan/ytindex/internal/sentiment"
	"github.com/spacesedan/ytindex/internal/source"
)

const sentimentBatchSize = 32

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadEnv(config.AppEnv())
	cfg, err := config.Load()
	logging.InitLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("[Main] Invalid configuration",
			slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	search, err := clients.NewOpensearchClient(ctx, cfg.Opensearch)
	if err != nil {
		slog.Error("[Main] Failed to create OpenSearch client",
			slog.String("error", err.Error()))
		return 1
	}
	if err := monitoring.WaitUntilHealthy(ctx, "opensearch", search,
		cfg.Opensearch.ConnectRetries, cfg.Opensearch.ConnectDelay); err != nil {
		slog.Error("[Main] OpenSearch is not reachable",
			slog.String("error", err.Error()))
		return 1
	}

	pg, err := clients.NewPostgresClient(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("[Main] Failed to create PostgreSQL client",
			slog.String("error", err.Error()))
		return 1
	}
	defer pg.Close()
	if err := monitoring.WaitUntilHealthy(ctx, "postgres", pg,
		cfg.Postgres.ConnectRetries, cfg.Postgres.ConnectDelay); err != nil {
		slog.Error("[Main] PostgreSQL is not reachable",
			slog.String("error", err.Error()))
		return 1
	}

	var analyzer sentiment.BatchAnalyzer
	if cfg.Sentiment.Scorer == "remote" {
		analyzer = clients.NewSentimentServiceClient(cfg.Sentiment.Endpoint, cfg.Sentiment.Timeout)
	}
	scorer, err := sentiment.New(cfg.Sentiment.Scorer, analyzer)
	if err != nil {
		slog.Error("[Main] Failed to create sentiment scorer",
			slog.String("error", err.Error()))
		return 1
	}

	sinks, closeSinks := reportSinks(ctx, cfg.Report)
	defer closeSinks()

	p := pipeline.New(source.NewReader(pg.DB), search, pipeline.Entities(cfg.Sync), pipeline.Options{
		BatchSize:          cfg.Sync.BatchSize,
		BulkTimeout:        cfg.Sync.BulkTimeout,
		Scorer:             scorer,
		SentimentBatchSize: sentimentBatchSize,
		Sinks:              sinks,
	})

	summary, err := p.Run(ctx)
	if err != nil {
		slog.Error("[Main] Sync run aborted",
			slog.String("error", err.Error()))
		return 1
	}
	if !summary.OK() {
		return 1
	}
	return 0
}

// reportSinks builds the optional sinks. A sink whose backend cannot be reached is
// left out; reporting never blocks a sync.
func reportSinks(ctx context.Context, cfg config.ReportConfig) ([]report.Sink, func()) {
	var (
		sinks   []report.Sink
		closers []func()
	)

	if cfg.ValkeyAddress != "" {
		vc, err := clients.NewValkeyClient(ctx, cfg)
		if err != nil {
			slog.Warn("[Main] Valkey report sink disabled",
				slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, report.ValkeySink{Store: vc})
			closers = append(closers, vc.Close)
		}
	}

	if cfg.KafkaBroker != "" {
		kp, err := clients.NewKafkaProducer(cfg.KafkaBroker)
		if err != nil {
			slog.Warn("[Main] Kafka report sink disabled",
				slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, report.KafkaSink{Publisher: kp, Topic: cfg.KafkaTopic})
			closers = append(closers, kp.Close)
		}
	}

	if cfg.PushgatewayURL != "" {
		sinks = append(sinks, report.PushgatewaySink{URL: cfg.PushgatewayURL, Job: report.PushJob})
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
