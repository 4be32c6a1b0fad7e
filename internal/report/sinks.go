package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	LastRunKey     = "ytindex:runs:last"
	RunHistoryKey  = "ytindex:runs"
	RunHistorySize = 50
	PushJob        = "ytindex_sync"
)

// Sink receives the summary of a finished run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, s *Summary) error
}

// Publish hands s to every sink. Sink failures are logged and do not stop the others.
func Publish(ctx context.Context, s *Summary, sinks ...Sink) {
	for _, sink := range sinks {
		if err := sink.Publish(ctx, s); err != nil {
			slog.Warn("[Report] Failed to publish run summary",
				slog.String("sink", sink.Name()),
				slog.String("run_id", s.RunID),
				slog.String("error", err.Error()))
		}
	}
}

type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, s *Summary) error {
	for _, e := range s.Entities {
		attrs := []any{
			slog.String("run_id", s.RunID),
			slog.String("entity", string(e.Entity)),
			slog.String("index", e.Index),
			slog.Int("read", e.Read),
			slog.Int("indexed", e.Indexed),
			slog.Int("errored", e.Errored),
		}
		if n, ok := s.IndexCounts[e.Index]; ok && n != nil {
			attrs = append(attrs, slog.Int64("index_documents", *n))
		}
		if e.Err != nil {
			attrs = append(attrs, slog.String("error", e.Err.Error()))
			slog.Error("[Report] Entity sync failed", attrs...)
			continue
		}
		slog.Info("[Report] Entity synced", attrs...)
	}

	indexed, errored := s.Totals()
	slog.Info("[Report] Sync run finished",
		slog.String("run_id", s.RunID),
		slog.Duration("duration", s.Duration),
		slog.Int("indexed", indexed),
		slog.Int("errored", errored),
		slog.Bool("ok", s.OK()))
	return nil
}

// RunStore keeps the latest run and a bounded run history.
type RunStore interface {
	RecordRun(ctx context.Context, lastKey, historyKey string, payload []byte, keep int64) error
}

type ValkeySink struct {
	Store RunStore
}

func (ValkeySink) Name() string { return "valkey" }

func (v ValkeySink) Publish(ctx context.Context, s *Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return v.Store.RecordRun(ctx, LastRunKey, RunHistoryKey, payload, RunHistorySize)
}

// Publisher sends one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type KafkaSink struct {
	Publisher Publisher
	Topic     string
}

func (KafkaSink) Name() string { return "kafka" }

func (k KafkaSink) Publish(ctx context.Context, s *Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return k.Publisher.Publish(ctx, k.Topic, []byte(s.RunID), payload)
}

// PushgatewaySink pushes the run gauges to a Prometheus Pushgateway.
type PushgatewaySink struct {
	URL string
	Job string
}

func (PushgatewaySink) Name() string { return "pushgateway" }

func (p PushgatewaySink) Publish(ctx context.Context, s *Summary) error {
	job := p.Job
	if job == "" {
		job = PushJob
	}

	reg := prometheus.NewRegistry()

	indexed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytindex_documents_indexed",
		Help: "Documents indexed by the last sync run.",
	}, []string{"entity"})
	errored := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytindex_documents_errored",
		Help: "Documents that failed to index in the last sync run.",
	}, []string{"entity"})
	docs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytindex_index_documents",
		Help: "Document count per index after the last sync run.",
	}, []string{"index"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytindex_last_run_duration_seconds",
		Help: "Wall time of the last sync run.",
	})
	timestamp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytindex_last_run_timestamp_seconds",
		Help: "Start time of the last sync run.",
	})
	reg.MustRegister(indexed, errored, docs, duration, timestamp)

	for _, e := range s.Entities {
		indexed.WithLabelValues(string(e.Entity)).Set(float64(e.Indexed))
		errored.WithLabelValues(string(e.Entity)).Set(float64(e.Errored))
	}
	for index, n := range s.IndexCounts {
		if n != nil {
			docs.WithLabelValues(index).Set(float64(*n))
		}
	}
	duration.Set(s.Duration.Seconds())
	timestamp.Set(float64(s.StartedAt.Unix()))

	if err := push.New(p.URL, job).Gatherer(reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push to %s: %w", p.URL, err)
	}
	return nil
}
