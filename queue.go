package vkcb

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Submitter accepts finished command buffers for GPU execution. The manager
// performs the submission-state bookkeeping itself, so any implementation -
// the vulkan Queue here or a test double - only has to hand the work off.
type Submitter interface {
	// Submit submits a buffer in HasEnded state, waiting on the buffer's
	// registered wait semaphores and signaling the given semaphores (and the
	// buffer's fence) on completion.
	Submit(cmdBuffer *CommandBuffer, signalSemaphores ...*Semaphore) error
	// FamilyIndex returns the queue family this queue belongs to.
	FamilyIndex() uint32
}

// Queue wraps a native vulkan queue.
type Queue struct {
	Device      *Device
	VKQueue     vk.Queue
	familyIndex uint32
}

// FamilyIndex returns the queue family index this queue was retrieved from.
func (q *Queue) FamilyIndex() uint32 {
	return q.familyIndex
}

// WaitIdle blocks until the queue drains.
func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// Submit submits the command buffer paired with its fence, so completion is
// observable through the buffer's fence service.
func (q *Queue) Submit(cmdBuffer *CommandBuffer, signalSemaphores ...*Semaphore) error {
	waitSemaphores := cmdBuffer.WaitSemaphores()
	waitFlags := cmdBuffer.WaitFlags()

	var submitInfo = vk.SubmitInfo{}
	submitInfo.SType = vk.StructureTypeSubmitInfo
	submitInfo.CommandBufferCount = 1
	submitInfo.PCommandBuffers = []vk.CommandBuffer{cmdBuffer.VK()}

	if len(waitSemaphores) > 0 {
		waits := make([]vk.Semaphore, len(waitSemaphores))
		for i := range waitSemaphores {
			waits[i] = waitSemaphores[i].VKSemaphore
		}
		submitInfo.WaitSemaphoreCount = uint32(len(waits))
		submitInfo.PWaitSemaphores = waits
		submitInfo.PWaitDstStageMask = waitFlags
	}

	if len(signalSemaphores) > 0 {
		signals := make([]vk.Semaphore, len(signalSemaphores))
		for i := range signalSemaphores {
			signals[i] = signalSemaphores[i].VKSemaphore
		}
		submitInfo.SignalSemaphoreCount = uint32(len(signals))
		submitInfo.PSignalSemaphores = signals
	}

	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, cmdBuffer.Fence().VKFence))
	if err != nil {
		return fmt.Errorf("queue submit: %w", err)
	}
	return nil
}

func (q *Queue) String() string {
	return fmt.Sprintf("{QueueFamily: %d}", q.familyIndex)
}

var _ Submitter = (*Queue)(nil)
