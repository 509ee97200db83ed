package render

import (
	"errors"
	"fmt"
	"time"
)

// fakeDevice is an in-memory Device that records what the core asks of it
// and enforces the per-image fence discipline on submission.
type fakeDevice struct {
	caps    SurfaceCapabilities
	capsErr error
	formats []SurfaceFormat

	// images is the image count of the next swapchain.
	images int
	// format, when set, overrides the format of the next swapchain.
	format *Format
	// unsupported extents make NewSwapchain fail with ErrExtentNotSupported.
	unsupported map[Extent]bool
	// failFramebuffer fails the n-th NewFramebuffer call (1-based).
	failFramebuffer int
	framebufferCalls int
	failCmd          int
	cmdCalls         int

	acquire []Result
	present []Result

	queue *fakeQueue

	swapchains   []*fakeSwapchain
	passes       []*fakePass
	framebuffers []*fakeFramebuffer
	cmds         []*fakeCmd
	waitIdle     int
	ops          []string
}

func newFakeDevice(images int) *fakeDevice {
	d := &fakeDevice{
		caps: SurfaceCapabilities{
			MinImageCount:           uint32(images),
			CurrentExtent:           Extent{800, 600},
			MinImageExtent:          Extent{1, 1},
			MaxImageExtent:          Extent{4096, 4096},
			SupportedCompositeAlpha: 0b1010,
		},
		formats: []SurfaceFormat{
			{Format: 44, ColorSpace: 0},
			{Format: 37, ColorSpace: 0},
		},
		images:      images,
		unsupported: map[Extent]bool{},
	}
	d.queue = &fakeQueue{dev: d}
	return d
}

func (d *fakeDevice) op(format string, args ...any) {
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) SurfaceCapabilities() (SurfaceCapabilities, error) {
	return d.caps, d.capsErr
}

func (d *fakeDevice) SurfaceFormats() ([]SurfaceFormat, error) {
	return d.formats, nil
}

func (d *fakeDevice) NewSwapchain(desc *SwapchainDesc, old Swapchain) (Swapchain, error) {
	if d.unsupported[desc.Extent] {
		return nil, ErrExtentNotSupported
	}
	f := desc.Format
	if d.format != nil {
		f = *d.format
	}
	sc := &fakeSwapchain{dev: d, desc: *desc, format: f, id: len(d.swapchains)}
	if old != nil {
		sc.old = old.(*fakeSwapchain)
	}
	for i := 0; i < d.images; i++ {
		sc.images = append(sc.images, &fakeImage{sc: sc, index: i})
	}
	d.swapchains = append(d.swapchains, sc)
	d.op("swapchain %d %s", sc.id, desc.Extent)
	return sc, nil
}

func (d *fakeDevice) NewRenderPass(format Format) (RenderPass, error) {
	p := &fakePass{format: format}
	d.passes = append(d.passes, p)
	return p, nil
}

func (d *fakeDevice) NewFramebuffer(pass RenderPass, img Image, extent Extent) (Framebuffer, error) {
	d.framebufferCalls++
	if d.failFramebuffer == d.framebufferCalls {
		return nil, errors.New("fake: framebuffer failure")
	}
	fb := &fakeFramebuffer{pass: pass.(*fakePass), img: img.(*fakeImage), extent: extent}
	d.framebuffers = append(d.framebuffers, fb)
	return fb, nil
}

func (d *fakeDevice) NewCmdBuffer() (CmdBuffer, error) {
	d.cmdCalls++
	if d.failCmd == d.cmdCalls {
		return nil, errors.New("fake: command buffer failure")
	}
	cb := &fakeCmd{id: len(d.cmds)}
	d.cmds = append(d.cmds, cb)
	return cb, nil
}

func (d *fakeDevice) Queue() Queue { return d.queue }

func (d *fakeDevice) WaitIdle() error {
	d.waitIdle++
	for _, f := range d.queue.fences {
		if !f.hang {
			f.signaled = true
		}
	}
	return nil
}

func (d *fakeDevice) live() (swapchains, passes, framebuffers, cmds int) {
	for _, s := range d.swapchains {
		if !s.destroyed {
			swapchains++
		}
	}
	for _, p := range d.passes {
		if !p.destroyed {
			passes++
		}
	}
	for _, f := range d.framebuffers {
		if !f.destroyed {
			framebuffers++
		}
	}
	for _, c := range d.cmds {
		if !c.destroyed {
			cmds++
		}
	}
	return
}

type fakeSwapchain struct {
	dev       *fakeDevice
	id        int
	desc      SwapchainDesc
	format    Format
	images    []Image
	old       *fakeSwapchain
	next      int
	destroyed bool
}

func (s *fakeSwapchain) Images() []Image { return s.images }
func (s *fakeSwapchain) Format() Format  { return s.format }
func (s *fakeSwapchain) Extent() Extent  { return s.desc.Extent }
func (s *fakeSwapchain) Destroy()        { s.destroyed = true }

func (s *fakeSwapchain) Acquire() (int, Semaphore, Result) {
	res := OK()
	if len(s.dev.acquire) > 0 {
		res = s.dev.acquire[0]
		s.dev.acquire = s.dev.acquire[1:]
	}
	if !res.Usable() {
		s.dev.op("acquire %s", res.Status)
		return -1, nil, res
	}
	idx := s.next
	s.next = (s.next + 1) % len(s.images)
	s.dev.op("acquire %d", idx)
	return idx, fakeSemaphore{index: idx}, res
}

type fakeImage struct {
	sc    *fakeSwapchain
	index int
}

type fakeSemaphore struct{ index int }

type fakePass struct {
	format    Format
	destroyed bool
}

func (p *fakePass) Format() Format { return p.format }
func (p *fakePass) Destroy()       { p.destroyed = true }

type fakeFramebuffer struct {
	pass      *fakePass
	img       *fakeImage
	extent    Extent
	destroyed bool
}

func (f *fakeFramebuffer) Destroy() { f.destroyed = true }

type fakePipeline struct {
	pass      RenderPass
	viewport  Viewport
	destroyed bool
}

func (p *fakePipeline) Destroy() { p.destroyed = true }

type fakePipelines struct {
	built []*fakePipeline
	err   error
}

func (b *fakePipelines) NewPipeline(pass RenderPass, vp Viewport) (Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := &fakePipeline{pass: pass, viewport: vp}
	b.built = append(b.built, p)
	return p, nil
}

type fakeVertexBuffer struct{ n int }

func (v fakeVertexBuffer) Len() int { return v.n }

type fakeCmd struct {
	id        int
	usage     CmdUsage
	fb        *fakeFramebuffer
	pipeline  Pipeline
	clear     Color
	ops       []string
	endErr    error
	destroyed bool
}

func (c *fakeCmd) Destroy() { c.destroyed = true }

func (c *fakeCmd) Begin(usage CmdUsage) error {
	c.usage = usage
	c.ops = append(c.ops, "begin")
	return nil
}

func (c *fakeCmd) BeginPass(pass RenderPass, fb Framebuffer, extent Extent, clear Color) {
	c.fb = fb.(*fakeFramebuffer)
	c.clear = clear
	c.ops = append(c.ops, "begin pass")
}

func (c *fakeCmd) SetPipeline(pl Pipeline) {
	c.pipeline = pl
	c.ops = append(c.ops, "pipeline")
}

func (c *fakeCmd) SetVertexBuf(binding int, vb VertexBuffer) {
	c.ops = append(c.ops, fmt.Sprintf("vertex buffer %d", binding))
}

func (c *fakeCmd) Draw(vertCount, instCount, firstVert, firstInst int) {
	c.ops = append(c.ops, fmt.Sprintf("draw %d %d %d %d", vertCount, instCount, firstVert, firstInst))
}

func (c *fakeCmd) EndPass() { c.ops = append(c.ops, "end pass") }

func (c *fakeCmd) End() error {
	c.ops = append(c.ops, "end")
	return c.endErr
}

type fakeQueue struct {
	dev         *fakeDevice
	fences      []*fakeFence
	submissions []fakeSubmission
	// hang makes every new fence refuse to signal.
	hang bool
	// violations records submissions made while the same image still had
	// unsignaled work in flight.
	violations []string
}

type fakeSubmission struct {
	index int
	cmd   *fakeCmd
	after Fence
	sc    *fakeSwapchain
}

func (q *fakeQueue) Submit(s *Submission) (Fence, Result) {
	sc := s.Swapchain.(*fakeSwapchain)
	for _, f := range q.fences {
		if f.sc == sc && f.index == s.Index && !f.signaled {
			q.violations = append(q.violations, fmt.Sprintf("image %d resubmitted while in flight", s.Index))
		}
	}
	cmd := s.Cmd.(*fakeCmd)
	if cmd.destroyed {
		q.violations = append(q.violations, fmt.Sprintf("destroyed command buffer %d submitted", cmd.id))
	}
	q.submissions = append(q.submissions, fakeSubmission{index: s.Index, cmd: cmd, after: s.After, sc: sc})
	q.dev.op("submit %d", s.Index)

	res := OK()
	if len(q.dev.present) > 0 {
		res = q.dev.present[0]
		q.dev.present = q.dev.present[1:]
	}
	f := &fakeFence{dev: q.dev, sc: sc, index: s.Index, hang: q.hang}
	q.fences = append(q.fences, f)
	if !res.Usable() {
		// The work still runs; only the fence is withheld.
		f.signaled = true
		return nil, res
	}
	return f, res
}

type fakeFence struct {
	dev      *fakeDevice
	sc       *fakeSwapchain
	index    int
	signaled bool
	hang     bool
	waits    int
	released bool
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.waits++
	f.dev.op("wait %d", f.index)
	if f.hang {
		if timeout < 0 {
			panic("fake: unbounded wait on a fence that never signals")
		}
		return ErrFenceTimeout
	}
	f.signaled = true
	return nil
}

func (f *fakeFence) Signaled() bool { return f.signaled }

func (f *fakeFence) Release() {
	if f.released {
		panic("fake: fence released twice")
	}
	f.released = true
}

// fakeWindow replays a fixed list of events, then asks to close.
type fakeWindow struct {
	extent Extent
	events []Event
	pumps  int
	waits  int
}

func (w *fakeWindow) Extent() Extent { return w.extent }

func (w *fakeWindow) Pump(wait bool) Event {
	w.pumps++
	if wait {
		w.waits++
	}
	if len(w.events) == 0 {
		return Event{Extent: w.extent, Close: true}
	}
	ev := w.events[0]
	w.events = w.events[1:]
	w.extent = ev.Extent
	return ev
}
