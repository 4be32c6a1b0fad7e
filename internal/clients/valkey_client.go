package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/ytindex/config"
)

type ValkeyClient struct {
	Client valkey.Client
}

func NewValkeyClient(ctx context.Context, cfg config.ReportConfig) (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.ValkeyAddress,
		},
		Password:         cfg.ValkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if cfg.ValkeyTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{Client: client}, nil
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

const (
	valkeyAttempts   = 3
	valkeyRetryDelay = 250 * time.Millisecond
)

// RecordRun stores payload as the latest run and prepends it to a history list capped at keep entries.
// LREM drops a copy left by an earlier attempt, so a retried write leaves one history entry.
func (vc *ValkeyClient) RecordRun(ctx context.Context, lastKey, historyKey string, payload []byte, keep int64) error {
	value := string(payload)
	build := func() []valkey.Completed {
		return []valkey.Completed{
			vc.Client.B().Set().Key(lastKey).Value(value).Build(),
			vc.Client.B().Lrem().Key(historyKey).Count(0).Element(value).Build(),
			vc.Client.B().Lpush().Key(historyKey).Element(value).Build(),
			vc.Client.B().Ltrim().Key(historyKey).Start(0).Stop(keep - 1).Build(),
		}
	}
	exec := func(ctx context.Context, cmds []valkey.Completed) error {
		return firstError(vc.Client.DoMulti(ctx, cmds...))
	}

	if err := doMultiWithRetry(ctx, build, exec, valkeyAttempts, valkeyRetryDelay); err != nil {
		return err
	}

	slog.Info("[ValkeyClient] Recorded run",
		slog.String("key", lastKey))
	return nil
}

// doMultiWithRetry builds a fresh command set for every attempt, since valkey-go recycles
// commands once they are sent. Only connection errors are retried.
func doMultiWithRetry(
	ctx context.Context,
	build func() []valkey.Completed,
	exec func(context.Context, []valkey.Completed) error,
	attempts int,
	delay time.Duration,
) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = exec(ctx, build()); err == nil {
			return nil
		}
		slog.Warn("[ValkeyClient] Do Multi failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		if !isConnectionError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func firstError(results []valkey.ValkeyResult) error {
	for _, r := range results {
		if err := r.Error(); err != nil {
			return err
		}
	}
	return nil
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
