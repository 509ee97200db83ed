package render

import (
	"time"
)

// Window is the window provider consumed by the Loop.
// Extent reports the live surface size. Pump runs one cycle of the platform
// event loop: when wait is set it blocks until at least one event arrives,
// otherwise it only drains pending events.
type Window interface {
	Extent() Extent
	Pump(wait bool) Event
}

// Event is what a single Pump observed.
type Event struct {
	// Extent is the surface size after the pumped events were applied.
	Extent Extent
	// Resized is set when at least one resize happened since the previous
	// Pump call.
	Resized bool
	// Close is set once the window asked to be closed.
	Close bool
}

// Device is the device context: one selected GPU, its graphics queue and the
// object constructors the presentation core needs.
type Device interface {
	SurfaceCapabilities() (SurfaceCapabilities, error)
	SurfaceFormats() ([]SurfaceFormat, error)

	// NewSwapchain creates a swapchain described by desc. When old is not
	// nil it is retired in favor of the new one; the caller still owns it
	// and must destroy it. ErrExtentNotSupported means the surface cannot
	// currently take desc.Extent.
	NewSwapchain(desc *SwapchainDesc, old Swapchain) (Swapchain, error)

	// NewRenderPass creates a single-subpass render pass with one color
	// attachment of the given format, cleared on load and stored.
	NewRenderPass(format Format) (RenderPass, error)

	NewFramebuffer(pass RenderPass, img Image, extent Extent) (Framebuffer, error)
	NewCmdBuffer() (CmdBuffer, error)
	Queue() Queue

	// WaitIdle blocks until the device has no pending work.
	WaitIdle() error
}

// PipelineBuilder builds the fixed graphics pipeline for a render pass and
// viewport. Shaders and vertex layout belong to the implementation.
type PipelineBuilder interface {
	NewPipeline(pass RenderPass, vp Viewport) (Pipeline, error)
}

// Destroyer releases memory not managed by the GC.
type Destroyer interface {
	Destroy()
}

// Swapchain is a chain of presentable images valid for one extent and format.
type Swapchain interface {
	Destroyer

	// Images returns one view per swapchain image, in index order.
	Images() []Image
	Format() Format
	Extent() Extent

	// Acquire blocks until an image is available and returns its index with
	// the semaphore signaled once the image may be written.
	// The result is StatusOK, StatusSuboptimal, StatusOutOfDate or
	// StatusFailed; index and acquired are only valid for the first two.
	Acquire() (index int, acquired Semaphore, res Result)
}

// Image is a view of one swapchain image.
type Image interface{}

// Semaphore is a GPU-side signal.
type Semaphore interface{}

// RenderPass is an opaque render pass handle.
type RenderPass interface {
	Destroyer
	Format() Format
}

// Framebuffer binds a render pass to one swapchain image.
type Framebuffer interface {
	Destroyer
}

// Pipeline is an opaque graphics pipeline handle.
type Pipeline interface {
	Destroyer
}

// VertexBuffer is an uploaded vertex buffer.
type VertexBuffer interface {
	// Len returns the number of vertices in the buffer.
	Len() int
}

// CmdUsage is a command buffer usage hint.
type CmdUsage int

const (
	// UsageOneTime buffers are submitted once and then re-recorded.
	UsageOneTime CmdUsage = iota
	// UsageMultipleSubmit buffers may be submitted any number of times.
	UsageMultipleSubmit
)

// CmdBuffer records GPU commands. The order of calls is
// Begin, BeginPass, Set*, Draw, EndPass, End.
type CmdBuffer interface {
	Destroyer

	Begin(usage CmdUsage) error
	BeginPass(pass RenderPass, fb Framebuffer, extent Extent, clear Color)
	SetPipeline(pl Pipeline)
	SetVertexBuf(binding int, vb VertexBuffer)
	Draw(vertCount, instCount, firstVert, firstInst int)
	EndPass()
	End() error
}

// Queue is the single graphics queue of a Device.
type Queue interface {
	// Submit runs s.Cmd once s.After and s.Acquired have signaled, presents
	// image s.Index of s.Swapchain and flushes. The fence signals once the
	// GPU is done with s.Cmd. A nil fence is returned with StatusOutOfDate
	// and StatusFailed.
	Submit(s *Submission) (Fence, Result)
}

// Submission is a single frame's queue work.
type Submission struct {
	// After is the completion point of the previously submitted frame, or
	// Ready when there is none.
	After    Fence
	Acquired Semaphore
	Cmd      CmdBuffer

	Swapchain Swapchain
	Index     int
}

// Fence is a GPU-signaled, CPU-waitable completion point.
type Fence interface {
	// Wait blocks until the fence signals. A negative timeout waits forever.
	Wait(timeout time.Duration) error
	Signaled() bool
	// Release hands the fence back to its owner. It must not be used
	// afterwards.
	Release()
}

// Ready is a fence that is always signaled.
var Ready Fence = readyFence{}

type readyFence struct{}

func (readyFence) Wait(time.Duration) error { return nil }
func (readyFence) Signaled() bool           { return true }
func (readyFence) Release()                 {}
