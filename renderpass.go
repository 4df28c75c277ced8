package vkcb

import (
	vk "github.com/goki/vulkan"
)

// RenderPass wraps a native render pass handle. Constructing the underlying
// object (attachments, subpasses, dependencies) is up to the calling
// application; this package only needs the handle to begin and end the pass.
type RenderPass struct {
	VKRenderPass vk.RenderPass
}

// Framebuffer wraps a native framebuffer handle together with its extent.
// BeginRenderPass uses the extent as the full render area at offset zero.
type Framebuffer struct {
	VKFramebuffer vk.Framebuffer
	Extent        vk.Extent2D
}
