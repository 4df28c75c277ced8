package vkcb

import (
	"time"

	vk "github.com/goki/vulkan"
)

// Fence is a CPU-observable synchronization primitive signaled by the GPU on
// completion of submitted work. Fences are owned and recycled by a
// FenceService; a command buffer holds one for its entire lifetime.
type Fence struct {
	VKFence vk.Fence

	// signaled caches the last observed state so a fence known to be signaled
	// is not queried again before its reset.
	signaled bool
}

// Signaled returns the last observed signal state without querying the
// device.
func (f *Fence) Signaled() bool {
	return f.signaled
}

// FenceService allocates, queries and recycles fences. It is the sole
// authority on fence signal state. A service shared across managers must be
// externally synchronized; the usual arrangement is one per device.
type FenceService interface {
	// AllocateFence returns an unsignaled fence, recycling a released one
	// when available.
	AllocateFence() (*Fence, error)
	// IsFenceSignaled queries whether the fence has signaled.
	IsFenceSignaled(f *Fence) bool
	// ResetFence returns a signaled fence to the unsignaled state.
	ResetFence(f *Fence) error
	// ReleaseFence returns the fence to the service for reuse.
	ReleaseFence(f *Fence)
	// WaitForFence blocks until the fence signals or timeout elapses,
	// reporting whether it signaled.
	WaitForFence(f *Fence, timeout time.Duration) bool
	// WaitAndReleaseFence waits with a bounded timeout and releases the fence
	// regardless of the outcome. Used on teardown paths where a timeout is
	// tolerated.
	WaitAndReleaseFence(f *Fence, timeout time.Duration)
}

// FenceManager is the vulkan-backed FenceService. Released fences go on a
// free list and are handed out again by AllocateFence, so steady-state frame
// loops stop creating fences once the pool has warmed up.
type FenceManager struct {
	Device *Device

	free []*Fence
	used []*Fence
}

// NewFenceManager creates a fence manager for the given device.
func NewFenceManager(device *Device) *FenceManager {
	return &FenceManager{Device: device}
}

func (m *FenceManager) AllocateFence() (*Fence, error) {
	if n := len(m.free); n > 0 {
		fence := m.free[n-1]
		m.free = m.free[:n-1]
		m.used = append(m.used, fence)
		return fence, nil
	}

	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo

	var handle vk.Fence
	err := vk.Error(vk.CreateFence(m.Device.VKDevice, &fenceCreateInfo, nil, &handle))
	if err != nil {
		return nil, err
	}

	fence := &Fence{VKFence: handle}
	m.used = append(m.used, fence)
	return fence, nil
}

func (m *FenceManager) IsFenceSignaled(f *Fence) bool {
	if f.signaled {
		return true
	}
	if vk.GetFenceStatus(m.Device.VKDevice, f.VKFence) == vk.Success {
		f.signaled = true
	}
	return f.signaled
}

func (m *FenceManager) ResetFence(f *Fence) error {
	if !f.signaled {
		return nil
	}
	err := vk.Error(vk.ResetFences(m.Device.VKDevice, 1, []vk.Fence{f.VKFence}))
	if err != nil {
		return err
	}
	f.signaled = false
	return nil
}

func (m *FenceManager) ReleaseFence(f *Fence) {
	if err := m.ResetFence(f); err != nil {
		logger().Warn("fence reset failed on release", "error", err)
	}
	m.removeUsed(f)
	m.free = append(m.free, f)
}

func (m *FenceManager) WaitForFence(f *Fence, timeout time.Duration) bool {
	if f.signaled {
		return true
	}
	ret := vk.WaitForFences(m.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, uint64(timeout.Nanoseconds()))
	if ret == vk.Success {
		f.signaled = true
		return true
	}
	return false
}

func (m *FenceManager) WaitAndReleaseFence(f *Fence, timeout time.Duration) {
	if !m.WaitForFence(f, timeout) {
		logger().Warn("fence wait timed out during teardown, releasing anyway", "timeout", timeout)
	}
	m.ReleaseFence(f)
}

// Destroy destroys every fence the manager ever created. Fences still in use
// indicate a teardown ordering bug in the caller and are logged before being
// destroyed regardless.
func (m *FenceManager) Destroy() {
	if len(m.used) > 0 {
		logger().Warn("destroying fence manager with fences still in use", "count", len(m.used))
	}
	for _, f := range m.used {
		vk.DestroyFence(m.Device.VKDevice, f.VKFence, nil)
	}
	for _, f := range m.free {
		vk.DestroyFence(m.Device.VKDevice, f.VKFence, nil)
	}
	m.used = nil
	m.free = nil
}

func (m *FenceManager) removeUsed(f *Fence) {
	for i, used := range m.used {
		if used == f {
			m.used = append(m.used[:i], m.used[i+1:]...)
			return
		}
	}
}

var _ FenceService = (*FenceManager)(nil)
