package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	DB *pgxpool.Pool
}

// NewPostgresClient creates the pool without touching the network; use IsHealthy to
// wait for the server.
func NewPostgresClient(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgreSQL client: %w", err)
	}
	return &Postgres{DB: pool}, nil
}

func (p *Postgres) IsHealthy(ctx context.Context) bool {
	if err := p.DB.Ping(ctx); err != nil {
		slog.Debug("[PostgresClient] Ping failed",
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		p.DB.Close()
	}
}
