package vkcb

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
)

// CommandBufferState tracks where a command buffer is in its recording and
// submission lifecycle. Transitions are strictly ordered; see the package
// documentation for the full diagram.
type CommandBufferState int

const (
	// ReadyForBegin means the buffer holds no recorded commands and may be
	// begun. Freshly created and fully recycled buffers are in this state.
	ReadyForBegin CommandBufferState = iota
	// InsideBegin means recording has begun and the buffer is outside any
	// render pass.
	InsideBegin
	// InsideRenderPass means recording has begun and a render pass is open.
	InsideRenderPass
	// HasEnded means recording is closed and the buffer awaits submission.
	HasEnded
	// Submitted means the buffer's commands are in flight on the GPU.
	Submitted
)

func (s CommandBufferState) String() string {
	switch s {
	case ReadyForBegin:
		return "ReadyForBegin"
	case InsideBegin:
		return "InsideBegin"
	case InsideRenderPass:
		return "InsideRenderPass"
	case HasEnded:
		return "HasEnded"
	case Submitted:
		return "Submitted"
	}
	return fmt.Sprintf("CommandBufferState(%d)", int(s))
}

// MaxEventNameLength is the bound applied to profiling marker labels. Longer
// names are truncated rather than allocated for, since markers sit on the hot
// recording path.
const MaxEventNameLength = 100

// waitForCmdBufferOnDestroy caps how long a submitted buffer's fence is
// waited on during teardown. A timeout here is tolerated: resources are
// released anyway rather than hanging teardown indefinitely.
const waitForCmdBufferOnDestroy = 60 * time.Millisecond

// CommandBuffer wraps one recordable vulkan command buffer together with its
// state machine, its fence and the per-buffer state that has to survive until
// the GPU is done with it: wait semaphores, an optionally attached descriptor
// pool set, and the profiling marker nesting depth.
//
// Command buffers are created and destroyed exclusively by their owning
// CommandBufferPool.
type CommandBuffer struct {
	handle vk.CommandBuffer
	state  CommandBufferState
	pool   *CommandBufferPool
	fence  *Fence

	// fenceSignaledCounter increments each time the fence is observed
	// signaled; submittedFenceCounter snapshots it at submission so waiters
	// can detect a completion that happened after their submission of
	// interest.
	fenceSignaledCounter  uint64
	submittedFenceCounter uint64

	// Wait semaphores registered for the next submission. The two slices are
	// always the same length.
	waitFlags      []vk.PipelineStageFlags
	waitSemaphores []*Semaphore

	// Wait semaphores consumed by the last submission, kept alive until the
	// fence confirms the GPU-side wait completed.
	submittedWaitSemaphores []*Semaphore

	poolSet     *DescriptorPoolSetContainer
	eventsBegin int
}

func newCommandBuffer(pool *CommandBufferPool) (*CommandBuffer, error) {
	handle, err := pool.device.AllocateCommandBuffer(pool.handle)
	if err != nil {
		return nil, err
	}
	fence, err := pool.fences.AllocateFence()
	if err != nil {
		pool.device.FreeCommandBuffer(pool.handle, handle)
		return nil, err
	}
	return &CommandBuffer{
		handle: handle,
		state:  ReadyForBegin,
		pool:   pool,
		fence:  fence,
	}, nil
}

// VK returns the native vulkan command buffer, for recording commands this
// package does not wrap.
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.handle
}

// State returns the buffer's current lifecycle state.
func (c *CommandBuffer) State() CommandBufferState {
	return c.state
}

// Fence returns the fence paired with this buffer's submissions.
func (c *CommandBuffer) Fence() *Fence {
	return c.fence
}

// FenceSignaledCounter returns how many times this buffer's fence has been
// observed signaled over the buffer's lifetime.
func (c *CommandBuffer) FenceSignaledCounter() uint64 {
	return c.fenceSignaledCounter
}

// SubmittedFenceCounter returns the value FenceSignaledCounter had at the
// last submission.
func (c *CommandBuffer) SubmittedFenceCounter() uint64 {
	return c.submittedFenceCounter
}

// HasBegun reports whether recording is open, inside or outside a render pass.
func (c *CommandBuffer) HasBegun() bool {
	return c.state == InsideBegin || c.state == InsideRenderPass
}

// IsInsideRenderPass reports whether a render pass is currently open.
func (c *CommandBuffer) IsInsideRenderPass() bool {
	return c.state == InsideRenderPass
}

// IsSubmitted reports whether the buffer's commands are in flight.
func (c *CommandBuffer) IsSubmitted() bool {
	return c.state == Submitted
}

// DescriptorPoolSet returns the pool set container attached to this buffer,
// or nil outside of recording.
func (c *CommandBuffer) DescriptorPoolSet() *DescriptorPoolSetContainer {
	return c.poolSet
}

// WaitSemaphores returns the semaphores the next submission must wait on.
func (c *CommandBuffer) WaitSemaphores() []*Semaphore {
	return c.waitSemaphores
}

// WaitFlags returns the pipeline stages paired with WaitSemaphores.
func (c *CommandBuffer) WaitFlags() []vk.PipelineStageFlags {
	return c.waitFlags
}

// SubmittedWaitSemaphores returns the semaphores consumed by the last
// submission. The list empties once the fence confirms completion.
func (c *CommandBuffer) SubmittedWaitSemaphores() []*Semaphore {
	return c.submittedWaitSemaphores
}

// AddWaitSemaphore registers a semaphore the next submission will wait on at
// the given pipeline stages. Adding the same semaphore twice is a caller bug
// and returns ErrDuplicateWaitSemaphore.
func (c *CommandBuffer) AddWaitSemaphore(waitFlags vk.PipelineStageFlags, waitSemaphore *Semaphore) error {
	for _, s := range c.waitSemaphores {
		if s == waitSemaphore {
			return protocolErr(fmt.Errorf("AddWaitSemaphore: %w", ErrDuplicateWaitSemaphore))
		}
	}
	c.waitFlags = append(c.waitFlags, waitFlags)
	c.waitSemaphores = append(c.waitSemaphores, waitSemaphore)
	return nil
}

// Begin opens the buffer for one-time-submit recording. If a descriptor pool
// set manager is configured and no container is attached yet, one is acquired
// for the duration of this recording.
func (c *CommandBuffer) Begin() error {
	if c.state != ReadyForBegin {
		return protocolErr(fmt.Errorf("Begin in state %s: %w", c.state, ErrInvalidState))
	}

	if err := c.pool.device.BeginCommandBuffer(c.handle); err != nil {
		return err
	}

	if c.poolSet == nil && c.pool.poolSets != nil {
		poolSet, err := c.pool.poolSets.AcquirePoolSetContainer()
		if err != nil {
			return err
		}
		c.poolSet = poolSet
	}

	c.eventsBegin = 0
	c.state = InsideBegin
	return nil
}

// BeginRenderPass opens pass on this buffer with a render area covering the
// framebuffer's full extent, inline subpass contents.
func (c *CommandBuffer) BeginRenderPass(pass *RenderPass, framebuffer *Framebuffer, clearValues []vk.ClearValue) error {
	if c.state != InsideBegin {
		return protocolErr(fmt.Errorf("BeginRenderPass in state %s: %w", c.state, ErrInvalidState))
	}
	c.pool.device.CmdBeginRenderPass(c.handle, pass, framebuffer, clearValues)
	c.state = InsideRenderPass
	return nil
}

// EndRenderPass closes the currently open render pass.
func (c *CommandBuffer) EndRenderPass() error {
	if c.state != InsideRenderPass {
		return protocolErr(fmt.Errorf("EndRenderPass in state %s: %w", c.state, ErrInvalidState))
	}
	c.pool.device.CmdEndRenderPass(c.handle)
	c.state = InsideBegin
	return nil
}

// End closes recording. Any profiling markers still open are closed first so
// no GPU-side debug state leaks across buffer boundaries.
func (c *CommandBuffer) End() error {
	if c.state != InsideBegin {
		return protocolErr(fmt.Errorf("End in state %s: %w", c.state, ErrInvalidState))
	}

	for c.eventsBegin > 0 {
		c.pool.device.CmdEndDebugLabel(c.handle)
		c.eventsBegin--
	}

	if err := c.pool.device.EndCommandBuffer(c.handle); err != nil {
		return err
	}
	c.state = HasEnded
	return nil
}

// BeginEvent opens a nested profiling marker. Names longer than
// MaxEventNameLength are truncated. No-op when the debug-label capability is
// unavailable.
func (c *CommandBuffer) BeginEvent(name string) {
	if len(name) > MaxEventNameLength {
		name = name[:MaxEventNameLength]
	}
	if !c.pool.device.CmdBeginDebugLabel(c.handle, name) {
		return
	}
	c.eventsBegin++
}

// EndEvent closes the innermost profiling marker. No-op when no marker is
// open.
func (c *CommandBuffer) EndEvent() {
	if c.eventsBegin == 0 {
		return
	}
	c.eventsBegin--
	c.pool.device.CmdEndDebugLabel(c.handle)
}

// markSubmitted records a successful queue submission: the pending wait
// semaphores become the submitted set and the fence counter is snapshotted
// for waiters.
func (c *CommandBuffer) markSubmitted() {
	c.state = Submitted
	c.submittedFenceCounter = c.fenceSignaledCounter
	c.submittedWaitSemaphores = c.waitSemaphores
	c.waitSemaphores = nil
	c.waitFlags = nil
}

// RefreshFenceStatus reclaims the buffer if its submission has completed: the
// native buffer is reset with resource release, the fence is reset for reuse,
// the submitted wait semaphores are dropped and any attached descriptor pool
// set is released. On a buffer that was never submitted a signaled fence is a
// protocol violation and returns ErrFenceProtocol.
func (c *CommandBuffer) RefreshFenceStatus() error {
	if c.state != Submitted {
		if c.pool.fences.IsFenceSignaled(c.fence) {
			return protocolErr(fmt.Errorf("RefreshFenceStatus in state %s: %w", c.state, ErrFenceProtocol))
		}
		return nil
	}

	if !c.pool.fences.IsFenceSignaled(c.fence) {
		return nil
	}

	// The GPU-side semaphore waits completed with the submission, so the
	// CPU-side references may be dropped now.
	c.submittedWaitSemaphores = nil

	if err := c.pool.device.ResetCommandBuffer(c.handle); err != nil {
		return err
	}
	if err := c.pool.fences.ResetFence(c.fence); err != nil {
		return err
	}
	c.fenceSignaledCounter++

	if c.poolSet != nil {
		c.pool.poolSets.ReleasePoolSet(c.poolSet)
		c.poolSet = nil
	}

	c.state = ReadyForBegin
	return nil
}

// destroy releases the fence and frees the native handle. A submitted buffer
// gets a bounded fence wait first; the cap keeps teardown from hanging on GPU
// work that never completes.
func (c *CommandBuffer) destroy() {
	if c.state == Submitted {
		c.pool.fences.WaitAndReleaseFence(c.fence, waitForCmdBufferOnDestroy)
	} else {
		c.pool.fences.ReleaseFence(c.fence)
	}
	c.fence = nil

	c.pool.device.FreeCommandBuffer(c.pool.handle, c.handle)
	c.handle = nil
}
