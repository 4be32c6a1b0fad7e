package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valkey-io/valkey-go"
)

func TestDoMultiWithRetry_RebuildsCommandsPerAttempt(t *testing.T) {
	var builds, execs int
	build := func() []valkey.Completed {
		builds++
		return nil
	}
	exec := func(context.Context, []valkey.Completed) error {
		execs++
		if execs < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}

	err := doMultiWithRetry(context.Background(), build, exec, 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, execs)
	assert.Equal(t, execs, builds)
}

func TestDoMultiWithRetry_StopsOnCommandError(t *testing.T) {
	var execs int
	exec := func(context.Context, []valkey.Completed) error {
		execs++
		return errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	}

	err := doMultiWithRetry(context.Background(), func() []valkey.Completed { return nil }, exec, 3, time.Millisecond)
	assert.ErrorContains(t, err, "WRONGTYPE")
	assert.Equal(t, 1, execs)
}

func TestDoMultiWithRetry_GivesUpAfterAttempts(t *testing.T) {
	var execs int
	exec := func(context.Context, []valkey.Completed) error {
		execs++
		return errors.New("unexpected EOF")
	}

	err := doMultiWithRetry(context.Background(), func() []valkey.Completed { return nil }, exec, 2, time.Millisecond)
	assert.ErrorContains(t, err, "EOF")
	assert.Equal(t, 2, execs)
}

func TestDoMultiWithRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := func(context.Context, []valkey.Completed) error {
		return errors.New("i/o timeout")
	}

	err := doMultiWithRetry(ctx, func() []valkey.Completed { return nil }, exec, 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
