package vkcb

import (
	"fmt"
	"time"
)

// TimerQuery is the pause/resume hook a GPU timer query exposes so its
// begin/end timestamps can straddle a buffer submission boundary. When the
// active buffer is submitted mid-query, the manager interrupts the query on
// the old buffer and resumes it on the next one rather than letting it
// produce an invalid timestamp pair.
type TimerQuery interface {
	// Interrupt pauses the query against the buffer about to be submitted.
	Interrupt(cmdBuffer *CommandBuffer)
	// Resume continues the query against the newly begun buffer.
	Resume(cmdBuffer *CommandBuffer)
}

// CommandBufferManager selects and submits the per-context active command
// buffer. It prefers recycling a buffer whose fence already signaled over
// growing the pool, and keeps in-flight timer queries consistent across
// buffer swaps. One manager per recording thread.
type CommandBufferManager struct {
	device CommandDevice
	pool   CommandBufferPool
	queue  Submitter

	activeCmdBuffer   *CommandBuffer
	queriesInProgress []TimerQuery
}

// NewCommandBufferManager creates a manager submitting to queue, with its own
// command buffer pool bound to the queue's family. poolSets may be nil to
// disable descriptor pool set handling.
func NewCommandBufferManager(device CommandDevice, queue Submitter, fences FenceService, poolSets PoolSetManager) (*CommandBufferManager, error) {
	m := &CommandBufferManager{
		device: device,
		queue:  queue,
	}
	m.pool = *NewCommandBufferPool(device, fences, poolSets)
	if err := m.pool.Init(queue.FamilyIndex()); err != nil {
		return nil, err
	}
	return m, nil
}

// Pool returns the manager's command buffer pool.
func (m *CommandBufferManager) Pool() *CommandBufferPool {
	return &m.pool
}

// ActiveCmdBuffer returns the buffer currently being recorded into, or nil
// when none is active.
func (m *CommandBufferManager) ActiveCmdBuffer() *CommandBuffer {
	return m.activeCmdBuffer
}

// PrepareForNewActiveCommandBuffer selects the next active buffer and begins
// it. The pool is scanned in creation order, refreshing each buffer's fence
// status on the way; the first one found ReadyForBegin is reused. The pool
// only grows when every buffer is still in flight, which means GPU execution
// has not caught up with CPU recording. In-flight timer queries are resumed
// against the new buffer.
func (m *CommandBufferManager) PrepareForNewActiveCommandBuffer() error {
	for _, cmdBuffer := range m.pool.CmdBuffers() {
		if err := cmdBuffer.RefreshFenceStatus(); err != nil {
			return err
		}
		if cmdBuffer.State() == ReadyForBegin {
			return m.activate(cmdBuffer)
		}
		if cmdBuffer.State() != Submitted {
			return protocolErr(fmt.Errorf("pool contains inactive command buffer in state %s: %w", cmdBuffer.State(), ErrInvalidState))
		}
	}

	// All command buffers are still being executed.
	cmdBuffer, err := m.pool.Create()
	if err != nil {
		return err
	}
	logger().Debug("command buffer pool grew under back-pressure", "poolSize", len(m.pool.CmdBuffers()))
	return m.activate(cmdBuffer)
}

func (m *CommandBufferManager) activate(cmdBuffer *CommandBuffer) error {
	if err := cmdBuffer.Begin(); err != nil {
		return err
	}
	m.activeCmdBuffer = cmdBuffer

	// Resume any paused queries on the new command buffer.
	for _, query := range m.queriesInProgress {
		query.Resume(cmdBuffer)
	}
	return nil
}

// SubmitActiveCmdBuffer ends the active buffer and hands it to the queue,
// signaling the given semaphores on completion. An open render pass is closed
// first and in-flight timer queries are interrupted, since the buffer can
// accept no further commands. If the active buffer was already submitted or
// never began recording, only the active reference is cleared. The active
// reference is cleared on every path.
func (m *CommandBufferManager) SubmitActiveCmdBuffer(signalSemaphores ...*Semaphore) error {
	cmdBuffer := m.activeCmdBuffer
	if cmdBuffer == nil {
		return protocolErr(fmt.Errorf("SubmitActiveCmdBuffer with no active command buffer: %w", ErrInvalidState))
	}
	m.activeCmdBuffer = nil

	if cmdBuffer.IsSubmitted() || !cmdBuffer.HasBegun() {
		return nil
	}

	if cmdBuffer.IsInsideRenderPass() {
		if err := cmdBuffer.EndRenderPass(); err != nil {
			return err
		}
	}

	// Pause all active queries; their remaining timestamps land in the next
	// active buffer.
	for _, query := range m.queriesInProgress {
		query.Interrupt(cmdBuffer)
	}

	if err := cmdBuffer.End(); err != nil {
		return err
	}

	if err := m.queue.Submit(cmdBuffer, signalSemaphores...); err != nil {
		return err
	}
	cmdBuffer.markSubmitted()
	return nil
}

// WaitForCmdBuffer blocks until the submitted buffer's fence signals, then
// refreshes it so it is immediately recyclable. The buffer must be in
// Submitted state. A timeout means GPU work that should have completed did
// not and is returned as ErrTimeout (escalated to a panic under Strict).
func (m *CommandBufferManager) WaitForCmdBuffer(cmdBuffer *CommandBuffer, timeout time.Duration) error {
	if !cmdBuffer.IsSubmitted() {
		return protocolErr(fmt.Errorf("WaitForCmdBuffer in state %s: %w", cmdBuffer.State(), ErrInvalidState))
	}
	if !m.pool.fences.WaitForFence(cmdBuffer.Fence(), timeout) {
		return protocolErr(fmt.Errorf("WaitForCmdBuffer after %s: %w", timeout, ErrTimeout))
	}
	return cmdBuffer.RefreshFenceStatus()
}

// OnQueryBegin registers a timer query for interrupt/resume tracking across
// buffer swaps.
func (m *CommandBufferManager) OnQueryBegin(query TimerQuery) {
	m.queriesInProgress = append(m.queriesInProgress, query)
}

// OnQueryEnd removes a timer query from tracking.
func (m *CommandBufferManager) OnQueryEnd(query TimerQuery) {
	for i, q := range m.queriesInProgress {
		if q == query {
			m.queriesInProgress = append(m.queriesInProgress[:i], m.queriesInProgress[i+1:]...)
			return
		}
	}
}

// Destroy tears down the manager's pool and every buffer in it.
func (m *CommandBufferManager) Destroy() {
	m.activeCmdBuffer = nil
	m.pool.Destroy()
}
