package vkcb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolInitExactlyOnce(t *testing.T) {
	env := newTestEnv()
	pool := NewCommandBufferPool(env.device, env.fences, env.poolSets)

	require.NoError(t, pool.Init(3))
	assert.Error(t, pool.Init(3))
	assert.Equal(t, 1, env.device.poolsCreated)
}

func TestPoolCreatePreservesOrder(t *testing.T) {
	env := newTestEnv()
	pool := env.newPool()

	first, err := pool.Create()
	require.NoError(t, err)
	second, err := pool.Create()
	require.NoError(t, err)

	require.Len(t, pool.CmdBuffers(), 2)
	assert.Same(t, first, pool.CmdBuffers()[0])
	assert.Same(t, second, pool.CmdBuffers()[1])
	assert.Equal(t, 2, env.fences.allocated)
}

func TestPoolRefreshSkipsExcludedBuffer(t *testing.T) {
	env := newTestEnv()
	pool := env.newPool()

	first, err := pool.Create()
	require.NoError(t, err)
	second, err := pool.Create()
	require.NoError(t, err)

	for _, cb := range []*CommandBuffer{first, second} {
		require.NoError(t, cb.Begin())
		require.NoError(t, cb.End())
		cb.markSubmitted()
		signalFence(cb)
	}

	require.NoError(t, pool.RefreshFenceStatus(first))
	assert.Equal(t, Submitted, first.State())
	assert.Equal(t, ReadyForBegin, second.State())
}

func TestPoolDestroyWaitsForSubmittedBuffers(t *testing.T) {
	env := newTestEnv()
	pool := env.newPool()

	idle, err := pool.Create()
	require.NoError(t, err)
	_ = idle

	inFlight, err := pool.Create()
	require.NoError(t, err)
	require.NoError(t, inFlight.Begin())
	require.NoError(t, inFlight.End())
	inFlight.markSubmitted()

	pool.Destroy()

	// The submitted buffer got the bounded wait-and-release, the idle one a
	// plain release.
	require.Len(t, env.fences.waitAndReleases, 1)
	assert.Equal(t, waitForCmdBufferOnDestroy, env.fences.waitAndReleases[0])
	assert.Equal(t, 2, env.fences.released)
	assert.Equal(t, 2, env.device.freed)
	assert.Equal(t, 1, env.device.poolsDestroyed)
	assert.Empty(t, pool.CmdBuffers())
}
