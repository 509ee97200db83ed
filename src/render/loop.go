package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Phase is a state of the per-frame state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResizeCheck
	PhaseAcquire
	PhaseFenceWait
	PhaseSubmit
	PhasePresent
)

var phaseNames = [...]string{
	PhaseIdle:        "idle",
	PhaseResizeCheck: "resize check",
	PhaseAcquire:     "acquire",
	PhaseFenceWait:   "fence wait",
	PhaseSubmit:      "submit",
	PhasePresent:     "present",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Stats counts what the loop has done so far.
type Stats struct {
	// Presented counts submissions whose presentation was accepted.
	Presented uint64
	// Skipped counts frames that ended because recreation was skipped.
	Skipped uint64
	// OutOfDate counts frames cut short by an out-of-date swapchain.
	OutOfDate uint64
	// Dropped counts frames whose submission failed for another reason.
	Dropped uint64
	// Generation is the current swapchain generation.
	Generation uint64
}

// frameState is the mutable state carried from one frame to the next.
// One slot per swapchain image; a nil slot has nothing in flight.
type frameState struct {
	stale  bool
	fences []Fence
	// prev is the image index of the last submission, -1 before the first.
	prev int
	// drained is set once all in-flight work has been waited for and
	// cleared by the next submission.
	drained bool
}

func newFrameState(images int) frameState {
	return frameState{fences: make([]Fence, images), prev: -1}
}

// Loop drives acquire, fence wait, submit and present for every frame and
// recreates the swapchain generation when it goes stale. It takes ownership
// of the manager, recorder and vertex buffer users it is built with, and
// must only be used from one goroutine.
type Loop struct {
	win  Window
	dev  Device
	sm   *SwapchainManager
	rec  *Recorder
	pb   PipelineBuilder
	vb   VertexBuffer
	opts options

	pipeline Pipeline
	viewport Viewport
	pass     RenderPass

	state  frameState
	stats  Stats
	closed bool
	// lost is the wait failure that left work on the device unaccounted
	// for. Once set, no fence is waited on or reused again.
	lost error
}

// NewLoop builds the pipeline for the current swapchain viewport and records
// the first command buffers. Every fence slot starts empty.
func NewLoop(win Window, dev Device, sm *SwapchainManager, rec *Recorder, pb PipelineBuilder, vb VertexBuffer, opts ...Option) (*Loop, error) {
	l := &Loop{
		win:  win,
		dev:  dev,
		sm:   sm,
		rec:  rec,
		pb:   pb,
		vb:   vb,
		opts: newOptions(opts),
	}
	vp := sm.Viewport()
	pl, err := pb.NewPipeline(sm.RenderPass(), vp)
	if err != nil {
		return nil, fmt.Errorf("render: build pipeline: %w", err)
	}
	if _, err := rec.Build(pl, sm.Targets(), vb); err != nil {
		pl.Destroy()
		return nil, err
	}
	l.pipeline = pl
	l.viewport = vp
	l.pass = sm.RenderPass()
	l.state = newFrameState(len(sm.Images()))
	return l, nil
}

// Run pumps window events and renders until the window asks to close or
// ctx is done, both of which return nil. Any other return is fatal.
// In-flight work is waited for before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed {
		return ErrClosed
	}
	log := l.opts.log()
	var idle bool
	for {
		if err := ctx.Err(); err != nil {
			log.Info("presentation loop canceled")
			return l.settle()
		}
		ev := l.win.Pump(l.opts.waitEvents || idle)
		if ev.Close {
			log.Info("close requested")
			return l.settle()
		}
		phase, err := l.Frame(ev)
		if err != nil {
			return errors.Join(err, l.settle())
		}
		// Nothing can be drawn until the window changes again.
		idle = phase == PhaseResizeCheck
	}
}

// Frame runs one iteration of the state machine for ev and returns the
// phase the frame ended in. Transient conditions never surface as errors.
func (l *Loop) Frame(ev Event) (Phase, error) {
	if l.closed {
		return PhaseIdle, ErrClosed
	}
	if l.lost != nil {
		return PhaseIdle, l.lost
	}
	return l.step(&l.state, ev)
}

func (l *Loop) step(st *frameState, ev Event) (Phase, error) {
	log := l.opts.log()

	if ev.Resized {
		st.stale = true
	}
	if st.stale {
		ok, err := l.recreate(st, ev.Extent)
		if err != nil {
			return PhaseResizeCheck, err
		}
		if !ok {
			l.stats.Skipped++
			log.Debug("recreation skipped", slog.String("extent", ev.Extent.String()))
			return PhaseResizeCheck, nil
		}
	}

	sc := l.sm.Swapchain()
	idx, acquired, res := sc.Acquire()
	switch res.Status {
	case StatusOK:
	case StatusSuboptimal:
		st.stale = true
	case StatusOutOfDate:
		st.stale = true
		l.stats.OutOfDate++
		log.Debug("acquire: swapchain out of date")
		return PhaseAcquire, nil
	default:
		return PhaseAcquire, fmt.Errorf("render: acquire image: %w", res.Err)
	}
	if idx < 0 || idx >= len(st.fences) {
		return PhaseAcquire, fmt.Errorf("render: acquired image %d out of range [0, %d)", idx, len(st.fences))
	}
	log.Debug("image acquired", slog.Int("image", idx), slog.String("result", res.String()))

	if err := l.waitSlot(st, idx); err != nil {
		return PhaseFenceWait, err
	}

	if l.rec.Generation() != l.sm.Generation() {
		return PhaseSubmit, fmt.Errorf("%w: recorded %d, current %d",
			ErrStaleGeneration, l.rec.Generation(), l.sm.Generation())
	}
	after := Ready
	if st.prev >= 0 && st.fences[st.prev] != nil {
		after = st.fences[st.prev]
	}
	st.drained = false
	fence, res := l.dev.Queue().Submit(&Submission{
		After:     after,
		Acquired:  acquired,
		Cmd:       l.rec.CmdBuffers()[idx],
		Swapchain: sc,
		Index:     idx,
	})
	switch res.Status {
	case StatusOK:
		st.fences[idx] = fence
		l.stats.Presented++
	case StatusSuboptimal:
		st.fences[idx] = fence
		st.stale = true
		l.stats.Presented++
	case StatusOutOfDate:
		release(fence)
		st.stale = true
		l.stats.OutOfDate++
		log.Debug("present: swapchain out of date", slog.Int("image", idx))
	default:
		release(fence)
		l.stats.Dropped++
		log.Warn("frame dropped", slog.Int("image", idx), slog.Any("err", res.Err))
	}
	st.prev = idx
	return PhasePresent, nil
}

// recreate replaces the swapchain generation and everything recorded
// against it. It reports false when recreation was skipped, in which case
// the loop state is left as it was.
func (l *Loop) recreate(st *frameState, extent Extent) (bool, error) {
	if err := l.drain(st); err != nil {
		return false, err
	}
	out, err := l.sm.Recreate(extent)
	if err != nil {
		return false, err
	}
	if out == Skipped {
		return false, nil
	}

	for _, f := range st.fences {
		release(f)
	}
	*st = newFrameState(len(l.sm.Images()))
	st.drained = true

	vp := l.sm.Viewport()
	pass := l.sm.RenderPass()
	pl := l.pipeline
	if vp != l.viewport || pass != l.pass {
		pl, err = l.pb.NewPipeline(pass, vp)
		if err != nil {
			return false, fmt.Errorf("render: rebuild pipeline: %w", err)
		}
	}
	if _, err := l.rec.Rebuild(pl, l.sm.Targets(), l.vb); err != nil {
		if pl != l.pipeline {
			pl.Destroy()
		}
		return false, err
	}
	if pl != l.pipeline {
		l.pipeline.Destroy()
		l.pipeline = pl
	}
	l.viewport = vp
	l.pass = pass
	return true, nil
}

// waitSlot blocks until the work last submitted for image idx is done,
// then empties the slot.
func (l *Loop) waitSlot(st *frameState, idx int) error {
	f := st.fences[idx]
	if f == nil {
		return nil
	}
	if err := f.Wait(l.opts.fenceTimeout); err != nil {
		l.lost = fmt.Errorf("render: wait for image %d: %w", idx, err)
		return l.lost
	}
	f.Release()
	st.fences[idx] = nil
	return nil
}

// drain waits for every slot and for the device to go idle. The fences
// stay in their slots. Nothing is waited for when nothing was submitted
// since the last drain, or after a wait has already failed.
func (l *Loop) drain(st *frameState) error {
	if st.drained || l.lost != nil {
		return nil
	}
	for i, f := range st.fences {
		if f == nil || f.Signaled() {
			continue
		}
		if err := f.Wait(l.opts.fenceTimeout); err != nil {
			l.lost = fmt.Errorf("render: wait for image %d: %w", i, err)
			return l.lost
		}
	}
	if err := l.dev.WaitIdle(); err != nil {
		return fmt.Errorf("render: wait for device idle: %w", err)
	}
	st.drained = true
	return nil
}

// settle waits for all in-flight work and empties every slot. After a
// failed wait, fences the device still holds are dropped without being
// released.
func (l *Loop) settle() error {
	err := l.drain(&l.state)
	for i, f := range l.state.fences {
		if f == nil {
			continue
		}
		if l.lost != nil && !f.Signaled() {
			l.opts.log().Warn("abandoning unsignaled fence", slog.Int("image", i))
		} else {
			f.Release()
		}
		l.state.fences[i] = nil
	}
	return err
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	s := l.stats
	s.Generation = l.sm.Generation()
	return s
}

// Close waits for in-flight work and destroys the command buffers, the
// pipeline and the swapchain generation. After a failed fence wait it does
// not wait on the device again. Calling Close again does nothing.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.settle()
	l.rec.Destroy()
	l.pipeline.Destroy()
	l.sm.Destroy()
	return err
}

func release(f Fence) {
	if f != nil {
		f.Release()
	}
}
