package vkcb

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// CommandBufferPool owns a growing list of command buffers bound to one queue
// family. Buffers are scanned for reuse in creation order; the pool is the
// only component that creates or destroys them.
type CommandBufferPool struct {
	device   CommandDevice
	fences   FenceService
	poolSets PoolSetManager

	handle      vk.CommandPool
	initialized bool
	cmdBuffers  []*CommandBuffer
}

// NewCommandBufferPool creates a pool using the given services. poolSets may
// be nil, in which case command buffers never carry descriptor pool sets.
// Init must be called before any buffer is created.
func NewCommandBufferPool(device CommandDevice, fences FenceService, poolSets PoolSetManager) *CommandBufferPool {
	return &CommandBufferPool{
		device:   device,
		fences:   fences,
		poolSets: poolSets,
	}
}

// Init creates the native command pool for the given queue family, with
// individual command buffer reset enabled. Must be called exactly once before
// any buffer allocation.
func (p *CommandBufferPool) Init(queueFamilyIndex uint32) error {
	if p.initialized {
		return fmt.Errorf("command buffer pool already initialized")
	}
	handle, err := p.device.CreateCommandPool(queueFamilyIndex)
	if err != nil {
		return err
	}
	p.handle = handle
	p.initialized = true
	return nil
}

// VK returns the native command pool handle.
func (p *CommandBufferPool) VK() vk.CommandPool {
	return p.handle
}

// CmdBuffers returns the owned command buffers in creation order. The slice
// is owned by the pool; callers must not modify it.
func (p *CommandBufferPool) CmdBuffers() []*CommandBuffer {
	return p.cmdBuffers
}

// Create allocates a new command buffer bound to this pool and appends it to
// the owned collection. The pool retains ownership; the caller gets a
// non-owning reference.
func (p *CommandBufferPool) Create() (*CommandBuffer, error) {
	cmdBuffer, err := newCommandBuffer(p)
	if err != nil {
		return nil, err
	}
	p.cmdBuffers = append(p.cmdBuffers, cmdBuffer)
	logger().Debug("command buffer created", "poolSize", len(p.cmdBuffers))
	return cmdBuffer, nil
}

// RefreshFenceStatus refreshes every owned buffer except skip, reclaiming any
// whose submission has completed. Pass the currently active buffer as skip;
// its fence cannot have a meaningful status yet.
func (p *CommandBufferPool) RefreshFenceStatus(skip *CommandBuffer) error {
	for _, cmdBuffer := range p.cmdBuffers {
		if cmdBuffer == skip {
			continue
		}
		if err := cmdBuffer.RefreshFenceStatus(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy tears down every owned buffer and then the native pool handle.
// Buffers must release their native handles into a still-valid pool, so the
// order here matters.
func (p *CommandBufferPool) Destroy() {
	for _, cmdBuffer := range p.cmdBuffers {
		cmdBuffer.destroy()
	}
	p.cmdBuffers = nil

	if p.initialized {
		p.device.DestroyCommandPool(p.handle)
		p.handle = nil
		p.initialized = false
	}
}
