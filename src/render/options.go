package render

import (
	"log/slog"
	"time"
)

// Option configures a SwapchainManager, Recorder or Loop.
// Options a component does not use are ignored by it.
//
// Example:
//
//	loop, err := render.NewLoop(win, dev, sm, rec, pb, vb,
//		render.WithWaitEvents(true),
//		render.WithFenceTimeout(5*time.Second))
type Option func(*options)

type options struct {
	clear        Color
	fenceTimeout time.Duration
	waitEvents   bool
	presentMode  PresentMode
	logger       *slog.Logger
}

// DefaultClearColor is opaque blue.
var DefaultClearColor = Color{0, 0, 1, 1}

func defaultOptions() options {
	return options{
		clear:        DefaultClearColor,
		fenceTimeout: -1,
		presentMode:  PresentModeDefault,
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return Logger()
}

// WithClearColor sets the color every frame is cleared to.
func WithClearColor(c Color) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithFenceTimeout bounds the per-frame fence wait. An expired wait ends
// the loop with ErrFenceTimeout. Zero or negative waits forever, which is
// the default.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = -1
		}
		o.fenceTimeout = d
	}
}

// WithWaitEvents makes the loop block on window events between frames
// instead of redrawing continuously.
func WithWaitEvents(wait bool) Option {
	return func(o *options) {
		o.waitEvents = wait
	}
}

// WithPresentMode sets the swapchain present mode. PresentModeDefault lets
// the device pick, which is FIFO for the Vulkan backend.
func WithPresentMode(m PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithLogger overrides the package logger for one component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
