package sweeper

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls  atomic.Int64
	purged int64
}

func (p *countingPurger) PurgeOlderThan(_ context.Context, _ time.Duration) (int64, error) {
	p.calls.Add(1)
	return p.purged, nil
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	purger := &countingPurger{purged: 2}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(purger, "@every 1s", 5*time.Minute, logger)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return purger.calls.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	purger := &countingPurger{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(purger, "not a schedule", time.Minute, logger)
	assert.Error(t, s.Start())
}
