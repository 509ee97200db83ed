package render

import "fmt"

// Extent is a surface size in pixels.
type Extent struct {
	Width, Height uint32
}

// Empty reports whether e has zero area.
func (e Extent) Empty() bool { return e.Width == 0 || e.Height == 0 }

func (e Extent) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

// Within reports whether e lies in the inclusive range [lo, hi].
func (e Extent) Within(lo, hi Extent) bool {
	return e.Width >= lo.Width && e.Width <= hi.Width &&
		e.Height >= lo.Height && e.Height <= hi.Height
}

// Viewport is the fixed viewport baked into the graphics pipeline.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// ViewportFor returns the full-surface viewport of e.
func ViewportFor(e Extent) Viewport {
	return Viewport{
		Width:    float32(e.Width),
		Height:   float32(e.Height),
		MaxDepth: 1,
	}
}

// Color is a linear RGBA clear color.
type Color [4]float32

// Format is a backend pixel format value. The core never interprets it.
type Format int32

// ColorSpace is a backend color space value.
type ColorSpace int32

// SurfaceFormat is one format/color space pair supported by a surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// CompositeAlpha is a set of composite alpha modes, one bit each.
type CompositeAlpha uint32

// First returns the lowest set mode, or zero if a is empty.
func (a CompositeAlpha) First() CompositeAlpha { return a & -a }

// PresentMode is a backend presentation mode value.
type PresentMode int32

// PresentModeDefault asks the device for its always-available mode.
const PresentModeDefault PresentMode = -1

// SurfaceCapabilities is what the device reports for the window surface.
type SurfaceCapabilities struct {
	MinImageCount uint32
	// MaxImageCount is zero when there is no upper bound.
	MaxImageCount uint32

	CurrentExtent  Extent
	MinImageExtent Extent
	MaxImageExtent Extent

	SupportedCompositeAlpha CompositeAlpha
}

// SwapchainDesc describes a swapchain to create.
type SwapchainDesc struct {
	Extent         Extent
	Format         Format
	ColorSpace     ColorSpace
	MinImageCount  uint32
	CompositeAlpha CompositeAlpha
	PresentMode    PresentMode
}
