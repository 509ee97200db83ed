package render

import (
	"errors"
)

// ErrNoSurfaceFormat means the device reported no format for the surface.
var ErrNoSurfaceFormat = errors.New("render: no compatible surface format")

// ErrNoCompositeAlpha means the surface supports no composite alpha mode.
var ErrNoCompositeAlpha = errors.New("render: no supported composite alpha mode")

// ErrExtentNotSupported means the surface cannot take the requested extent
// right now, typically a minimized window or the middle of a resize drag.
// Recreate turns it into Skipped; at creation it is fatal.
var ErrExtentNotSupported = errors.New("render: surface extent not supported")

// ErrFenceTimeout means a bounded fence wait expired. The loop has no
// device-loss recovery, so this ends it.
var ErrFenceTimeout = errors.New("render: fence wait timed out")

// ErrStaleGeneration means command buffers recorded for one swapchain
// generation were about to be submitted against another.
var ErrStaleGeneration = errors.New("render: command buffers from a stale swapchain generation")

// ErrClosed is returned by operations on a closed Loop.
var ErrClosed = errors.New("render: loop closed")

// ErrUnknown stands in for a failure with no further detail.
var ErrUnknown = errors.New("render: unknown failure")
