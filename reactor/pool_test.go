package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoopThreadPool_ZeroWorkersReturnsBaseLoop(t *testing.T) {
	base := newTestLoop(t)
	pool := NewEventLoopThreadPool(base)
	require.NoError(t, pool.Start(0))
	defer pool.Stop()

	assert.Same(t, base, pool.NextLoop())
	assert.Same(t, base, pool.NextLoop())
}

func TestEventLoopThreadPool_RoundRobinsAcrossWorkers(t *testing.T) {
	base := newTestLoop(t)
	pool := NewEventLoopThreadPool(base)
	require.NoError(t, pool.Start(3))
	defer pool.Stop()

	seen := map[*EventLoop]bool{}
	for i := 0; i < 6; i++ {
		seen[pool.NextLoop()] = true
	}
	assert.Len(t, seen, 3)
	assert.Len(t, pool.AllLoops(), 3)
}

func TestEventLoopThreadPool_StartIsIdempotent(t *testing.T) {
	base := newTestLoop(t)
	pool := NewEventLoopThreadPool(base)
	require.NoError(t, pool.Start(2))
	defer pool.Stop()

	require.NoError(t, pool.Start(5))
	assert.Len(t, pool.AllLoops(), 2)
}
