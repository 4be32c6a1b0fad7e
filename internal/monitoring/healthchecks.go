package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrUnhealthy = errors.New("service did not become healthy")

// HealthChecker is anything that can answer a liveness probe.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type HealthCheckFunc func(ctx context.Context) bool

func (f HealthCheckFunc) IsHealthy(ctx context.Context) bool { return f(ctx) }

// WaitUntilHealthy probes up to attempts times with a fixed delay between probes.
func WaitUntilHealthy(ctx context.Context, name string, check HealthChecker, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if check.IsHealthy(ctx) {
			slog.Info("[HealthCheck] Service is healthy",
				slog.String("service", name),
				slog.Int("attempt", attempt))
			return nil
		}

		slog.Warn("[HealthCheck] Service is unhealthy",
			slog.String("service", name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts))

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s after %d attempts: %w", name, attempts, ErrUnhealthy)
}
