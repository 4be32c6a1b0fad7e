package pipeline

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/spacesedan/ytindex/internal/enrich"
	"github.com/spacesedan/ytindex/internal/indexer"
	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/provision"
	"github.com/spacesedan/ytindex/internal/report"
	"github.com/spacesedan/ytindex/internal/sentiment"
	"github.com/spacesedan/ytindex/internal/source"
)

// RowReader runs a projection query and returns all of its rows.
type RowReader interface {
	ReadAll(ctx context.Context, query string) ([]source.Row, error)
}

// IndexStore is the search engine surface a sync run uses.
type IndexStore interface {
	provision.IndexAdmin
	indexer.BulkWriter
	Refresh(ctx context.Context, indices ...string) error
	Count(ctx context.Context, index string) (int64, error)
}

type Options struct {
	BatchSize   int
	BulkTimeout time.Duration
	// Scorer fills comment sentiment the side data did not provide; nil disables it.
	Scorer             sentiment.Scorer
	SentimentBatchSize int
	Sinks              []report.Sink
}

type Pipeline struct {
	reader   RowReader
	store    IndexStore
	entities []EntitySpec
	opts     Options
	now      func() time.Time
}

func New(reader RowReader, store IndexStore, entities []EntitySpec, opts Options) *Pipeline {
	return &Pipeline{
		reader:   reader,
		store:    store,
		entities: entities,
		opts:     opts,
		now:      time.Now,
	}
}

// Run provisions every index and then syncs each entity in turn. Only a provisioning
// failure is returned as an error; entity failures are recorded in the summary.
func (p *Pipeline) Run(ctx context.Context) (*report.Summary, error) {
	start := p.now()
	summary := report.NewSummary(start)
	slog.Info("[Pipeline] Sync run started",
		slog.String("run_id", summary.RunID),
		slog.Int("entities", len(p.entities)))

	prov := provision.NewProvisioner(p.store)
	for _, e := range p.entities {
		if err := prov.Ensure(ctx, e.Index, e.Mapping); err != nil {
			return summary, err
		}
	}

	ix := indexer.NewIndexer(p.store, p.opts.BatchSize, p.opts.BulkTimeout)
	indices := make([]string, 0, len(p.entities))
	for _, e := range p.entities {
		stats := p.syncEntity(ctx, ix, e)
		summary.Entities = append(summary.Entities, stats)
		indices = append(indices, e.Index)
	}

	if err := p.store.Refresh(ctx, indices...); err != nil {
		slog.Warn("[Pipeline] Failed to refresh indices",
			slog.String("error", err.Error()))
	}
	for _, index := range indices {
		n, err := p.store.Count(ctx, index)
		if err != nil {
			slog.Warn("[Pipeline] Failed to count index documents",
				slog.String("index", index),
				slog.String("error", err.Error()))
			summary.IndexCounts[index] = nil
			continue
		}
		summary.IndexCounts[index] = &n
	}

	summary.Duration = p.now().Sub(start)
	report.Publish(ctx, summary, append([]report.Sink{report.LogSink{}}, p.opts.Sinks...)...)
	return summary, nil
}

func (p *Pipeline) syncEntity(ctx context.Context, ix *indexer.Indexer, e EntitySpec) report.EntityStats {
	stats := report.EntityStats{Entity: e.Entity, Index: e.Index}

	rows, err := p.reader.ReadAll(ctx, e.Query)
	if err != nil {
		stats.Err = fmt.Errorf("read %s: %w", e.Entity, err)
		slog.Error("[Pipeline] Failed to read entity",
			slog.String("entity", string(e.Entity)),
			slog.String("error", err.Error()))
		return stats
	}
	stats.Read = len(rows)
	slog.Info("[Pipeline] Retrieved rows from PostgreSQL",
		slog.String("entity", string(e.Entity)),
		slog.Int("count", len(rows)))

	for _, side := range e.SideData {
		table, err := enrich.LoadSideTable(side.KeyColumn, side.Columns, side.Paths...)
		if err != nil {
			stats.Err = fmt.Errorf("load %s: %w", side.Name, err)
			slog.Error("[Pipeline] Failed to load side data",
				slog.String("entity", string(e.Entity)),
				slog.String("side_data", side.Name),
				slog.String("error", err.Error()))
			return stats
		}
		matched := enrich.Matched(rows, side.KeyColumn, table)
		rows = enrich.LeftJoin(rows, side.KeyColumn, table)
		slog.Info("[Pipeline] Joined side data",
			slog.String("entity", string(e.Entity)),
			slog.String("side_data", side.Name),
			slog.Int("rows", len(rows)),
			slog.Int("matched", matched))
	}

	if e.Sentiment && p.opts.Scorer != nil {
		sentiment.FillMissing(ctx, p.opts.Scorer, rows, p.opts.SentimentBatchSize)
	}

	res := ix.Index(ctx, e.Index, documents(rows, e.Normalize))
	stats.Indexed = res.Indexed
	stats.Errored = res.Errored
	return stats
}

// documents normalizes rows lazily, one document per pull.
func documents(rows []source.Row, normalize func(source.Row) models.Document) iter.Seq[models.Document] {
	return func(yield func(models.Document) bool) {
		for _, r := range rows {
			if !yield(normalize(r)) {
				return
			}
		}
	}
}
