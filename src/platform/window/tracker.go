package window

import "github.com/mxplusb/epsilon/src/render"

// tracker folds framebuffer size callbacks into the state one Pump reports.
// The resized flag stays set until taken, however many callbacks fired.
type tracker struct {
	extent  render.Extent
	resized bool
}

func (t *tracker) set(width, height int) {
	t.extent = render.Extent{Width: clamp(width), Height: clamp(height)}
}

func (t *tracker) resize(width, height int) {
	t.set(width, height)
	t.resized = true
}

func (t *tracker) take(close bool) render.Event {
	ev := render.Event{Extent: t.extent, Resized: t.resized, Close: close}
	t.resized = false
	return ev
}

func clamp(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}
