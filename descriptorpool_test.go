package vkcb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRecyclesFreeContainer(t *testing.T) {
	m := &DescriptorPoolsManager{}
	busy := &DescriptorPoolSetContainer{inUse: true}
	free := &DescriptorPoolSetContainer{}
	m.containers = []*DescriptorPoolSetContainer{busy, free}

	c, err := m.AcquirePoolSetContainer()
	require.NoError(t, err)

	// The first free container is reused; no new pool is created.
	assert.Same(t, free, c)
	assert.True(t, c.InUse())
	assert.True(t, busy.InUse())
	assert.Len(t, m.containers, 2)
}

func TestAcquireSkipsContainersStillInFlight(t *testing.T) {
	m := &DescriptorPoolsManager{}
	first := &DescriptorPoolSetContainer{inUse: true}
	second := &DescriptorPoolSetContainer{}
	third := &DescriptorPoolSetContainer{}
	m.containers = []*DescriptorPoolSetContainer{first, second, third}

	c1, err := m.AcquirePoolSetContainer()
	require.NoError(t, err)
	c2, err := m.AcquirePoolSetContainer()
	require.NoError(t, err)

	assert.Same(t, second, c1)
	assert.Same(t, third, c2)
}
