package vkcb

import (
	vk "github.com/goki/vulkan"
)

// CommandDevice is the slice of native device functionality the pool and its
// command buffers record through. *Device implements it against Vulkan; tests
// substitute a recording double so the state machine can be exercised without
// a GPU.
type CommandDevice interface {
	// CreateCommandPool creates a native command pool scoped to the given
	// queue family, with individual command buffer reset enabled.
	CreateCommandPool(queueFamilyIndex uint32) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)

	// AllocateCommandBuffer allocates one primary command buffer from pool.
	AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error)
	FreeCommandBuffer(pool vk.CommandPool, buffer vk.CommandBuffer)

	// BeginCommandBuffer issues a one-time-submit begin on buffer.
	BeginCommandBuffer(buffer vk.CommandBuffer) error
	EndCommandBuffer(buffer vk.CommandBuffer) error
	// ResetCommandBuffer resets buffer and releases its resources back to the
	// pool it was allocated from.
	ResetCommandBuffer(buffer vk.CommandBuffer) error

	// CmdBeginRenderPass begins pass on buffer with a render area covering
	// framebuffer's full extent at offset zero, inline subpass contents.
	CmdBeginRenderPass(buffer vk.CommandBuffer, pass *RenderPass, framebuffer *Framebuffer, clearValues []vk.ClearValue)
	CmdEndRenderPass(buffer vk.CommandBuffer)

	// CmdBeginDebugLabel opens a nested debug label on buffer. It reports
	// false when the debug-label capability is unavailable, in which case no
	// label was opened.
	CmdBeginDebugLabel(buffer vk.CommandBuffer, name string) bool
	CmdEndDebugLabel(buffer vk.CommandBuffer)
}

// Device wraps an existing vulkan logical device. Creating the device (and
// the instance and physical device selection that precede it) is up to the
// calling application.
type Device struct {
	VKDevice vk.Device

	// BeginDebugLabel and EndDebugLabel hook the VK_EXT_debug_utils command
	// label entry points, which the binding does not wrap. Load
	// vkCmdBeginDebugUtilsLabelEXT and vkCmdEndDebugUtilsLabelEXT through
	// vkGetDeviceProcAddr and install them here to enable profiling markers.
	// Left nil, markers are silently disabled. The name passed to
	// BeginDebugLabel is already null-terminated.
	BeginDebugLabel func(buffer vk.CommandBuffer, name string)
	EndDebugLabel   func(buffer vk.CommandBuffer)
}

// NewDevice wraps a native vulkan device handle.
func NewDevice(device vk.Device) *Device {
	return &Device{VKDevice: device}
}

// WaitIdle blocks until the device finishes all outstanding work.
func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.VKDevice))
}

// GetQueue retrieves queue 0 of the given queue family.
func (d *Device) GetQueue(queueFamilyIndex uint32) *Queue {
	var vkq vk.Queue
	vk.GetDeviceQueue(d.VKDevice, queueFamilyIndex, 0, &vkq)

	var queue Queue
	queue.Device = d
	queue.VKQueue = vkq
	queue.familyIndex = queueFamilyIndex
	return &queue
}

func (d *Device) CreateCommandPool(queueFamilyIndex uint32) (vk.CommandPool, error) {
	var poolInfo = vk.CommandPoolCreateInfo{}
	poolInfo.SType = vk.StructureTypeCommandPoolCreateInfo
	poolInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	poolInfo.QueueFamilyIndex = queueFamilyIndex

	var pool vk.CommandPool
	err := vk.Error(vk.CreateCommandPool(d.VKDevice, &poolInfo, nil, &pool))
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (d *Device) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.VKDevice, pool, nil)
}

func (d *Device) AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	var allocInfo = vk.CommandBufferAllocateInfo{}
	allocInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	allocInfo.CommandPool = pool
	allocInfo.Level = vk.CommandBufferLevelPrimary
	allocInfo.CommandBufferCount = 1

	buffers := make([]vk.CommandBuffer, 1)
	err := vk.Error(vk.AllocateCommandBuffers(d.VKDevice, &allocInfo, buffers))
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (d *Device) FreeCommandBuffer(pool vk.CommandPool, buffer vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.VKDevice, pool, 1, []vk.CommandBuffer{buffer})
}

func (d *Device) BeginCommandBuffer(buffer vk.CommandBuffer) error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(buffer, &beginInfo))
}

func (d *Device) EndCommandBuffer(buffer vk.CommandBuffer) error {
	return vk.Error(vk.EndCommandBuffer(buffer))
}

func (d *Device) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(buffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

func (d *Device) CmdBeginRenderPass(buffer vk.CommandBuffer, pass *RenderPass, framebuffer *Framebuffer, clearValues []vk.ClearValue) {
	var info = vk.RenderPassBeginInfo{}
	info.SType = vk.StructureTypeRenderPassBeginInfo
	info.RenderPass = pass.VKRenderPass
	info.Framebuffer = framebuffer.VKFramebuffer
	info.RenderArea.Offset.X = 0
	info.RenderArea.Offset.Y = 0
	info.RenderArea.Extent = framebuffer.Extent
	info.ClearValueCount = uint32(len(clearValues))
	info.PClearValues = clearValues

	vk.CmdBeginRenderPass(buffer, &info, vk.SubpassContentsInline)
}

func (d *Device) CmdEndRenderPass(buffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(buffer)
}

func (d *Device) CmdBeginDebugLabel(buffer vk.CommandBuffer, name string) bool {
	// Both hooks are required so an opened label is guaranteed a close.
	if d.BeginDebugLabel == nil || d.EndDebugLabel == nil {
		return false
	}
	d.BeginDebugLabel(buffer, safeString(name))
	return true
}

func (d *Device) CmdEndDebugLabel(buffer vk.CommandBuffer) {
	if d.EndDebugLabel == nil {
		return
	}
	d.EndDebugLabel(buffer)
}

var _ CommandDevice = (*Device)(nil)
