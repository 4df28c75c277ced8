package vkcb

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestDeviceDebugLabelsDisabledWithoutHooks(t *testing.T) {
	d := &Device{}

	assert.False(t, d.CmdBeginDebugLabel(nil, "draw"))
	assert.NotPanics(t, func() { d.CmdEndDebugLabel(nil) })
}

func TestDeviceDebugLabelsRequireBothHooks(t *testing.T) {
	// A begin hook without an end hook would open labels nothing can close.
	d := &Device{
		BeginDebugLabel: func(vk.CommandBuffer, string) {
			t.Fatal("begin hook called without an end hook installed")
		},
	}

	assert.False(t, d.CmdBeginDebugLabel(nil, "draw"))
}

func TestDeviceDebugLabelHooks(t *testing.T) {
	var begun []string
	ended := 0
	d := &Device{
		BeginDebugLabel: func(buffer vk.CommandBuffer, name string) {
			begun = append(begun, name)
		},
		EndDebugLabel: func(buffer vk.CommandBuffer) {
			ended++
		},
	}

	assert.True(t, d.CmdBeginDebugLabel(nil, "draw"))
	d.CmdEndDebugLabel(nil)

	// The hook receives the name already null-terminated for the native call.
	assert.Equal(t, []string{"draw\x00"}, begun)
	assert.Equal(t, 1, ended)
}
