package vkcb

var end = "\x00"
var endChar byte = '\x00'

// safeString null-terminates a string for handoff to the native vulkan API.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}
