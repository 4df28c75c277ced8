/*
Package vkcb manages the lifecycle of Vulkan command buffers: allocation from
pools, the strict recording state machine, fence-based completion tracking and
safe reuse. Vulkan is very explicit about command buffer ownership - a buffer
must not be re-recorded or freed while the GPU may still be executing it - and
getting this wrong tends to produce crashes which are very hard to diagnose.
This package takes care of that bookkeeping so the calling application can
concentrate on recording actual GPU work.

The core loop looks like this: a CommandBufferManager hands out an "active"
command buffer each frame, preferring to recycle a buffer whose fence has
already signaled over allocating a new one. The application records commands
into the active buffer through its Begin/BeginRenderPass/EndRenderPass/End
methods, which enforce the legal ordering of those calls. When the manager
submits the buffer it attaches any wait semaphores which were registered,
closes any render pass or profiling marker still open, and pairs the
submission with a fence. Once the fence signals, the buffer (and any
descriptor pool set it borrowed) is reclaimed automatically on the next
refresh pass.

Every external service the core depends on - the fence service, the submission
queue, the descriptor pool set manager, the native recording entry points - is
injected through a small interface, with the production Vulkan implementation
of each provided here. This keeps the state machine itself testable without a
GPU, and allows multiple independent device contexts in one process.

Recording and submission are single threaded per manager. For multi-threaded
command recording use one manager (and therefore one pool) per thread and
compose the submissions at a higher layer.

Overview of the state machine

	ReadyForBegin -> InsideBegin <-> InsideRenderPass
	InsideBegin -> HasEnded -> Submitted -> (fence signals) -> ReadyForBegin

Calls made from a state not listed as their precondition return an error
wrapping ErrInvalidState; set Strict to true during development to turn those
programmer errors into panics instead.
*/
package vkcb
