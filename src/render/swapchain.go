package render

import (
	"errors"
	"fmt"
	"log/slog"
)

// RecreateOutcome tells the caller what a Recreate call did.
type RecreateOutcome int

const (
	// Skipped means the surface cannot take the requested extent right now.
	// Nothing was touched; retry on the next frame.
	Skipped RecreateOutcome = iota
	// Recreated means a new generation is in place. Command buffers
	// recorded against the previous one must be rebuilt.
	Recreated
)

func (o RecreateOutcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Recreated:
		return "recreated"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Targets is the render pass and framebuffer set of one swapchain
// generation, as consumed by a Recorder.
type Targets struct {
	Pass         RenderPass
	Framebuffers []Framebuffer
	Extent       Extent
	Generation   uint64
}

// SwapchainManager owns the presentable images, the render pass and one
// framebuffer per image. These form a generation: they are created and
// replaced together, and nothing outside the manager writes them.
type SwapchainManager struct {
	dev  Device
	opts options

	desc         SwapchainDesc
	swapchain    Swapchain
	images       []Image
	pass         RenderPass
	framebuffers []Framebuffer
	generation   uint64
}

// NewSwapchainManager negotiates a swapchain for extent and builds the
// first generation. It picks the minimum image count, the first supported
// composite alpha mode and the first reported surface format.
// All failures are fatal for the caller.
func NewSwapchainManager(dev Device, extent Extent, opts ...Option) (*SwapchainManager, error) {
	o := newOptions(opts)

	caps, err := dev.SurfaceCapabilities()
	if err != nil {
		return nil, fmt.Errorf("render: query surface capabilities: %w", err)
	}
	formats, err := dev.SurfaceFormats()
	if err != nil {
		return nil, fmt.Errorf("render: query surface formats: %w", err)
	}
	if len(formats) == 0 {
		return nil, ErrNoSurfaceFormat
	}
	alpha := caps.SupportedCompositeAlpha.First()
	if alpha == 0 {
		return nil, ErrNoCompositeAlpha
	}
	if !fits(caps, extent) {
		return nil, fmt.Errorf("%w: %s", ErrExtentNotSupported, extent)
	}

	m := &SwapchainManager{
		dev:  dev,
		opts: o,
		desc: SwapchainDesc{
			Extent:         extent,
			Format:         formats[0].Format,
			ColorSpace:     formats[0].ColorSpace,
			MinImageCount:  caps.MinImageCount,
			CompositeAlpha: alpha,
			PresentMode:    o.presentMode,
		},
	}

	sc, err := dev.NewSwapchain(&m.desc, nil)
	if err != nil {
		return nil, fmt.Errorf("render: create swapchain: %w", err)
	}
	pass, err := dev.NewRenderPass(sc.Format())
	if err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("render: create render pass: %w", err)
	}
	fbs, err := newFramebuffers(dev, pass, sc)
	if err != nil {
		pass.Destroy()
		sc.Destroy()
		return nil, err
	}

	m.commit(sc, pass, fbs)
	m.opts.log().Info("swapchain created",
		slog.String("extent", sc.Extent().String()),
		slog.Int("images", len(m.images)),
		slog.Int("format", int(sc.Format())))
	return m, nil
}

// Recreate rebuilds the swapchain and framebuffers for extent, reusing the
// current create parameters. The render pass is kept unless the new
// swapchain reports a different format.
// Skipped comes with a nil error; any error is fatal and leaves the current
// generation in place.
func (m *SwapchainManager) Recreate(extent Extent) (RecreateOutcome, error) {
	if extent.Empty() {
		return Skipped, nil
	}
	caps, err := m.dev.SurfaceCapabilities()
	if err != nil {
		return Skipped, fmt.Errorf("render: query surface capabilities: %w", err)
	}
	if !fits(caps, extent) {
		return Skipped, nil
	}

	desc := m.desc
	desc.Extent = extent
	sc, err := m.dev.NewSwapchain(&desc, m.swapchain)
	if errors.Is(err, ErrExtentNotSupported) {
		return Skipped, nil
	}
	if err != nil {
		return Skipped, fmt.Errorf("render: recreate swapchain: %w", err)
	}

	pass := m.pass
	if sc.Format() != pass.Format() {
		pass, err = m.dev.NewRenderPass(sc.Format())
		if err != nil {
			sc.Destroy()
			return Skipped, fmt.Errorf("render: recreate render pass: %w", err)
		}
	}
	fbs, err := newFramebuffers(m.dev, pass, sc)
	if err != nil {
		if pass != m.pass {
			pass.Destroy()
		}
		sc.Destroy()
		return Skipped, err
	}

	destroyAll(m.framebuffers)
	if pass != m.pass {
		m.pass.Destroy()
	}
	m.swapchain.Destroy()

	m.desc = desc
	m.desc.Format = sc.Format()
	m.commit(sc, pass, fbs)
	m.opts.log().Info("swapchain recreated",
		slog.String("extent", sc.Extent().String()),
		slog.Int("images", len(m.images)),
		slog.Uint64("generation", m.generation))
	return Recreated, nil
}

func (m *SwapchainManager) commit(sc Swapchain, pass RenderPass, fbs []Framebuffer) {
	m.swapchain = sc
	m.images = sc.Images()
	m.pass = pass
	m.framebuffers = fbs
	m.generation++
}

func (m *SwapchainManager) Swapchain() Swapchain        { return m.swapchain }
func (m *SwapchainManager) Images() []Image             { return m.images }
func (m *SwapchainManager) RenderPass() RenderPass      { return m.pass }
func (m *SwapchainManager) Framebuffers() []Framebuffer { return m.framebuffers }
func (m *SwapchainManager) Extent() Extent              { return m.swapchain.Extent() }
func (m *SwapchainManager) Format() Format              { return m.swapchain.Format() }
func (m *SwapchainManager) Generation() uint64          { return m.generation }
func (m *SwapchainManager) Desc() SwapchainDesc         { return m.desc }
func (m *SwapchainManager) Viewport() Viewport          { return ViewportFor(m.Extent()) }

// Targets returns the current generation's render targets.
func (m *SwapchainManager) Targets() Targets {
	return Targets{
		Pass:         m.pass,
		Framebuffers: m.framebuffers,
		Extent:       m.swapchain.Extent(),
		Generation:   m.generation,
	}
}

// Destroy releases the current generation. The manager must not be used
// afterwards.
func (m *SwapchainManager) Destroy() {
	if m.swapchain == nil {
		return
	}
	destroyAll(m.framebuffers)
	m.pass.Destroy()
	m.swapchain.Destroy()
	m.framebuffers = nil
	m.images = nil
	m.pass = nil
	m.swapchain = nil
}

func fits(caps SurfaceCapabilities, e Extent) bool {
	return !e.Empty() && e.Within(caps.MinImageExtent, caps.MaxImageExtent)
}

func newFramebuffers(dev Device, pass RenderPass, sc Swapchain) ([]Framebuffer, error) {
	imgs := sc.Images()
	fbs := make([]Framebuffer, 0, len(imgs))
	for i, img := range imgs {
		fb, err := dev.NewFramebuffer(pass, img, sc.Extent())
		if err != nil {
			destroyAll(fbs)
			return nil, fmt.Errorf("render: create framebuffer %d: %w", i, err)
		}
		fbs = append(fbs, fb)
	}
	return fbs, nil
}

func destroyAll[T Destroyer](ds []T) {
	for _, d := range ds {
		d.Destroy()
	}
}
