package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Fixed projections of the three synced tables.
const (
	ChannelQuery = `
        SELECT id, name, language, description, suscriber_count, banner, category_link
        FROM public.channel
    `

	VideoQuery = `
        SELECT id, title_raw, duration, topic, published_at, view_count, like_count,
               language, description, id_channel
        FROM public.video
    `

	CommentQuery = `
        SELECT id, id_video, published_at, text, like_count, sentiment_score
        FROM public.comment
    `
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Reader struct {
	db Querier
}

func NewReader(db Querier) *Reader {
	return &Reader{db: db}
}

// ReadAll runs query and returns every row in full. Errors are returned as is;
// the caller decides whether a failed entity aborts anything else.
func (r *Reader) ReadAll(ctx context.Context, query string) ([]Row, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", len(out)+1, err)
		}

		fields := make([]Field, len(columns))
		for i, name := range columns {
			var v any
			if i < len(values) {
				v = values[i]
			}
			fields[i] = Field{Name: name, Value: v}
		}
		out = append(out, Row{fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	slog.Debug("[SourceReader] Rows retrieved", slog.Int("count", len(out)))
	return out, nil
}
