package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/utils"
)

const DefaultWriteBatch = 1000

const (
	upsertChannelSQL = `
        INSERT INTO public.channel (id, name, language, description, suscriber_count, banner, category_link)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            language = EXCLUDED.language,
            description = EXCLUDED.description,
            suscriber_count = EXCLUDED.suscriber_count,
            banner = EXCLUDED.banner,
            category_link = EXCLUDED.category_link
        RETURNING (xmax = 0) AS inserted
    `

	insertVideoSQL = `
        INSERT INTO public.video (
            id, title_raw, title_processed, description, published_at,
            language, duration, view_count, like_count, thumbnails,
            comment_count, topic, id_channel, id_category
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (id) DO NOTHING
        RETURNING id
    `

	insertCommentSQL = `
        INSERT INTO public.comment (id, text, published_at, like_count, is_possitive, id_video)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
        RETURNING id
    `

	upsertCategorySQL = `
        INSERT INTO public.category (id, name) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
        RETURNING (xmax = 0) AS inserted
    `
)

// BatchSender is satisfied by *pgxpool.Pool and *pgx.Conn.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Stats counts what an import did. Skipped rows never reached the database.
type Stats struct {
	Inserted   int
	Updated    int
	Duplicates int
	Skipped    int
	Errored    int
}

func (s Stats) OK() bool { return s.Errored == 0 && s.Skipped == 0 }

func (s Stats) log(entity string) {
	slog.Info("[Ingest] Import finished",
		slog.String("entity", entity),
		slog.Int("inserted", s.Inserted),
		slog.Int("updated", s.Updated),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("skipped", s.Skipped),
		slog.Int("errored", s.Errored))
}

type Writer struct {
	db        BatchSender
	batchSize int
}

func NewWriter(db BatchSender, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultWriteBatch
	}
	return &Writer{db: db, batchSize: batchSize}
}

type statement struct {
	id   string
	sql  string
	args []any
}

// outcome of one statement
type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeDuplicate
	outcomeFailed
)

// scanUpsert reads a RETURNING (xmax = 0) row.
func scanUpsert(row pgx.Row) (outcome, error) {
	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		return outcomeFailed, err
	}
	if inserted {
		return outcomeInserted, nil
	}
	return outcomeUpdated, nil
}

// scanInsert reads a RETURNING id row of an ON CONFLICT DO NOTHING insert.
func scanInsert(row pgx.Row) (outcome, error) {
	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return outcomeDuplicate, nil
	}
	if err != nil {
		return outcomeFailed, err
	}
	return outcomeInserted, nil
}

func (s *Stats) count(o outcome) {
	switch o {
	case outcomeInserted:
		s.Inserted++
	case outcomeUpdated:
		s.Updated++
	case outcomeDuplicate:
		s.Duplicates++
	default:
		s.Errored++
	}
}

func (w *Writer) write(ctx context.Context, entity string, stmts []statement, scan func(pgx.Row) (outcome, error)) Stats {
	var stats Stats
	buffer := utils.NewBatchBuffer[statement](w.batchSize)

	flush := func() {
		pending := buffer.GetAndClear()
		if len(pending) == 0 {
			return
		}

		outcomes, err := w.send(ctx, pending, scan)
		switch {
		case err == nil:
		case len(pending) == 1:
			logRowError(entity, pending[0].id, err)
		default:
			// Nothing in the batch was committed. Replay each statement on its own so
			// one bad row does not take the others with it.
			slog.Warn("[Ingest] Batch rolled back, retrying rows one by one",
				slog.String("entity", entity),
				slog.Int("rows", len(pending)),
				slog.String("error", err.Error()))
			for i, s := range pending {
				single, err := w.send(ctx, pending[i:i+1], scan)
				if err != nil {
					logRowError(entity, s.id, err)
				}
				outcomes[i] = single[0]
			}
		}

		for _, o := range outcomes {
			stats.count(o)
		}
		slog.Info("[Ingest] Batch written",
			slog.String("entity", entity),
			slog.Int("rows", len(pending)),
			slog.Int("processed", stats.Inserted+stats.Updated+stats.Duplicates+stats.Errored))
	}

	for _, s := range stmts {
		if buffer.Add(s) {
			flush()
		}
	}
	if buffer.HasData() {
		flush()
	}
	return stats
}

// send runs stmts as one pgx batch. The batch executes in a single implicit
// transaction, so when any statement fails none of them are committed and every
// outcome is reported as failed.
func (w *Writer) send(ctx context.Context, stmts []statement, scan func(pgx.Row) (outcome, error)) ([]outcome, error) {
	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.sql, s.args...)
	}

	br := w.db.SendBatch(ctx, batch)
	outcomes := make([]outcome, len(stmts))
	var firstErr error
	for i := range stmts {
		o, err := scan(br.QueryRow())
		if err != nil && firstErr == nil {
			firstErr = err
		}
		outcomes[i] = o
	}
	if err := br.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		for i := range outcomes {
			outcomes[i] = outcomeFailed
		}
	}
	return outcomes, firstErr
}

func logRowError(entity, id string, err error) {
	slog.Error("[Ingest] Failed to write row",
		slog.String("entity", entity),
		slog.String("id", id),
		slog.String("error", err.Error()))
}

func (w *Writer) UpsertChannels(ctx context.Context, recs []models.ChannelRecord) Stats {
	stmts := make([]statement, len(recs))
	for i, c := range recs {
		stmts[i] = statement{id: c.ID, sql: upsertChannelSQL, args: []any{
			c.ID, c.Name, c.Language, c.Description, c.SubscriberCount, c.Banner, c.CategoryLink,
		}}
	}
	return w.write(ctx, "channel", stmts, scanUpsert)
}

func (w *Writer) InsertVideos(ctx context.Context, recs []models.VideoRecord) Stats {
	stmts := make([]statement, len(recs))
	for i, v := range recs {
		stmts[i] = statement{id: v.ID, sql: insertVideoSQL, args: []any{
			v.ID, v.TitleRaw, v.TitleProcessed, v.Description, v.PublishedAt,
			v.Language, v.Duration, v.ViewCount, v.LikeCount, v.Thumbnail,
			v.CommentCount, v.Topic, v.ChannelID, v.CategoryID,
		}}
	}
	return w.write(ctx, "video", stmts, scanInsert)
}

func (w *Writer) InsertComments(ctx context.Context, recs []models.CommentRecord) Stats {
	stmts := make([]statement, len(recs))
	for i, c := range recs {
		stmts[i] = statement{id: c.ID, sql: insertCommentSQL, args: []any{
			c.ID, c.Text, c.PublishedAt, c.LikeCount, c.IsPositive, c.VideoID,
		}}
	}
	return w.write(ctx, "comment", stmts, scanInsert)
}

func (w *Writer) UpsertCategories(ctx context.Context, recs []models.CategoryRecord) Stats {
	stmts := make([]statement, len(recs))
	for i, c := range recs {
		stmts[i] = statement{id: c.ID, sql: upsertCategorySQL, args: []any{c.ID, c.Name}}
	}
	return w.write(ctx, "category", stmts, scanUpsert)
}

// Importer wires file parsing to the writer.
type Importer struct {
	writer *Writer
	now    func() time.Time
}

func NewImporter(w *Writer) *Importer {
	return &Importer{writer: w, now: time.Now}
}

func (im *Importer) Channels(ctx context.Context, path string) (Stats, error) {
	f, err := openInput(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	recs, skipped, err := ParseChannels(f)
	if err != nil {
		return Stats{}, err
	}
	slog.Info("[Ingest] Read channels", slog.String("path", path), slog.Int("count", len(recs)+skipped))
	stats := im.writer.UpsertChannels(ctx, recs)
	stats.Skipped = skipped
	stats.log("channel")
	return stats, nil
}

func (im *Importer) Videos(ctx context.Context, path string) (Stats, error) {
	f, err := openInput(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	recs, skipped, err := ParseVideos(f, im.now())
	if err != nil {
		return Stats{}, err
	}
	slog.Info("[Ingest] Read videos", slog.String("path", path), slog.Int("count", len(recs)+skipped))
	stats := im.writer.InsertVideos(ctx, recs)
	stats.Skipped = skipped
	stats.log("video")
	return stats, nil
}

func (im *Importer) Comments(ctx context.Context, path string) (Stats, error) {
	f, err := openInput(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	recs, skipped, err := ParseComments(f, im.now())
	if err != nil {
		return Stats{}, err
	}
	slog.Info("[Ingest] Read comments", slog.String("path", path), slog.Int("count", len(recs)+skipped))
	stats := im.writer.InsertComments(ctx, recs)
	stats.Skipped = skipped
	stats.log("comment")
	return stats, nil
}

func (im *Importer) Categories(ctx context.Context, path string) (Stats, error) {
	f, err := openInput(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	recs, err := ParseCategories(f)
	if err != nil {
		return Stats{}, err
	}
	slog.Info("[Ingest] Read categories", slog.String("path", path), slog.Int("count", len(recs)))
	stats := im.writer.UpsertCategories(ctx, recs)
	stats.log("category")
	return stats, nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}
