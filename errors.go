package vkcb

import (
	"fmt"
)

// Protocol violations are programmer errors, not runtime conditions, so they
// share a small set of sentinel errors suitable for errors.Is. Native Vulkan
// failures are returned as-is from the binding and should be treated as fatal
// by callers; this layer does not retry them.
var (
	// ErrInvalidState is returned when a recording method is called from a
	// state that is not its precondition.
	ErrInvalidState = fmt.Errorf("command buffer is in an invalid state for this operation")

	// ErrDuplicateWaitSemaphore is returned when the same semaphore is added
	// to one buffer's wait list twice before submission.
	ErrDuplicateWaitSemaphore = fmt.Errorf("wait semaphore already registered on this command buffer")

	// ErrFenceProtocol is returned when a fence reports signaled on a buffer
	// that was never submitted, which indicates a protocol violation upstream.
	ErrFenceProtocol = fmt.Errorf("fence signaled on a command buffer that is not submitted")

	// ErrTimeout is returned when a fence wait inside WaitForCmdBuffer does
	// not complete within its deadline. GPU work that should have completed
	// did not, so callers should treat this as fatal.
	ErrTimeout = fmt.Errorf("timed out waiting for command buffer fence")
)

// Strict upgrades protocol violations from returned errors to panics. Useful
// in development builds where an immediate abort at the offending call site
// beats an error value surfacing several frames later. Leave false in
// production and in tests that exercise the error paths.
var Strict = false

// protocolErr routes a protocol violation through the Strict switch.
func protocolErr(err error) error {
	if Strict {
		panic(err)
	}
	return err
}
