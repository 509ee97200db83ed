package render

import (
	"fmt"
)

// Recorder records one replayable command buffer per framebuffer, each
// drawing the whole vertex buffer once inside a cleared render pass.
// It keeps only the current buffer set; callers decide when rebuilding is
// safe.
type Recorder struct {
	dev  Device
	opts options

	cmds       []CmdBuffer
	generation uint64
}

func NewRecorder(dev Device, opts ...Option) *Recorder {
	return &Recorder{dev: dev, opts: newOptions(opts)}
}

// Build records the command buffers for t and makes them current.
// On failure the current set is left unchanged.
func (r *Recorder) Build(pl Pipeline, t Targets, vb VertexBuffer) ([]CmdBuffer, error) {
	cmds := make([]CmdBuffer, 0, len(t.Framebuffers))
	for i, fb := range t.Framebuffers {
		cb, err := r.record(pl, t.Pass, fb, t.Extent, vb)
		if err != nil {
			destroyAll(cmds)
			return nil, fmt.Errorf("render: record command buffer %d: %w", i, err)
		}
		cmds = append(cmds, cb)
	}

	old := r.cmds
	r.cmds = cmds
	r.generation = t.Generation
	destroyAll(old)
	return cmds, nil
}

// Rebuild is Build after a pipeline or framebuffer change. None of the
// replaced buffers may still be in use by the GPU.
func (r *Recorder) Rebuild(pl Pipeline, t Targets, vb VertexBuffer) ([]CmdBuffer, error) {
	return r.Build(pl, t, vb)
}

func (r *Recorder) record(pl Pipeline, pass RenderPass, fb Framebuffer, extent Extent, vb VertexBuffer) (CmdBuffer, error) {
	cb, err := r.dev.NewCmdBuffer()
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(UsageMultipleSubmit); err != nil {
		cb.Destroy()
		return nil, err
	}
	cb.BeginPass(pass, fb, extent, r.opts.clear)
	cb.SetPipeline(pl)
	cb.SetVertexBuf(0, vb)
	cb.Draw(vb.Len(), 1, 0, 0)
	cb.EndPass()
	if err := cb.End(); err != nil {
		cb.Destroy()
		return nil, err
	}
	return cb, nil
}

// CmdBuffers returns the current set, indexed like the framebuffers it was
// built from.
func (r *Recorder) CmdBuffers() []CmdBuffer { return r.cmds }

// Generation returns the swapchain generation the current set targets.
func (r *Recorder) Generation() uint64 { return r.generation }

// Destroy releases the current set.
func (r *Recorder) Destroy() {
	destroyAll(r.cmds)
	r.cmds = nil
}
