package vulkan

import (
	"fmt"
	"log/slog"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// Queue is the graphics queue. It submits a frame and presents it in one
// call and hands out fences from a pool.
type Queue struct {
	dev  *Device
	q    vk.Queue
	free []vk.Fence
	all  []vk.Fence
}

// Submit waits on the acquire semaphore, runs the command buffer, signals
// the image's render semaphore and presents the image once that is
// signaled. Work on this queue runs in submission order, so s.After only
// needs a host wait when it belongs to another queue.
//
// When presentation reports anything but OK or Suboptimal the submitted
// work is waited for here and no fence is returned. When nothing could be
// submitted the acquired image can never be presented, so the swapchain is
// reported out of date to have it replaced.
func (q *Queue) Submit(s *render.Submission) (render.Fence, render.Result) {
	sc := s.Swapchain.(*Swapchain)
	acquired := s.Acquired.(vk.Semaphore)
	rendered := sc.rendered[s.Index]

	if f, ok := s.After.(*Fence); ok && f.q != q {
		if err := f.Wait(-1); err != nil {
			return nil, unsubmitted(sc, acquired, s.Index, err)
		}
	}
	fence, err := q.fence()
	if err != nil {
		return nil, unsubmitted(sc, acquired, s.Index, err)
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{acquired},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.Cmd.(*CmdBuffer).cb},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{rendered},
	}}
	if err := NewError(vk.QueueSubmit(q.q, 1, submit, fence)); err != nil {
		q.free = append(q.free, fence)
		return nil, unsubmitted(sc, acquired, s.Index, fmt.Errorf("vulkan: queue submit: %w", err))
	}
	sc.retire(s.Index, acquired)

	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{rendered},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.sc},
		PImageIndices:      []uint32{uint32(s.Index)},
	}
	res := result(vk.QueuePresent(q.q, &present))
	f := &Fence{q: q, f: fence}
	if !res.Usable() {
		if err := f.Wait(-1); err != nil {
			Logger().Warn("wait after failed present", slog.Int("image", s.Index), slog.Any("err", err))
		}
		f.Release()
		return nil, res
	}
	return f, res
}

// unsubmitted strands the acquire semaphore of an image whose work never
// reached the queue and asks for the swapchain to be replaced.
func unsubmitted(sc *Swapchain, acquired vk.Semaphore, idx int, err error) render.Result {
	Logger().Warn("frame not submitted, replacing swapchain",
		slog.Int("image", idx), slog.Any("err", err))
	sc.strand(acquired)
	return render.OutOfDate()
}

func (q *Queue) fence() (vk.Fence, error) {
	if n := len(q.free); n > 0 {
		f := q.free[n-1]
		q.free = q.free[:n-1]
		return f, nil
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var f vk.Fence
	if err := NewError(vk.CreateFence(q.dev.dev, &info, nil, &f)); err != nil {
		return f, fmt.Errorf("vulkan: create fence: %w", err)
	}
	q.all = append(q.all, f)
	return f, nil
}

func (q *Queue) destroy() {
	for _, f := range q.all {
		vk.DestroyFence(q.dev.dev, f, nil)
	}
	q.all, q.free = nil, nil
}

// Fence is a pooled fence signaled when one submission completes.
type Fence struct {
	q        *Queue
	f        vk.Fence
	released bool
}

// timeoutNanos converts a wait bound into what vkWaitForFences takes.
// Negative waits forever.
func timeoutNanos(d time.Duration) uint64 {
	if d < 0 {
		return vk.MaxUint64
	}
	return uint64(d)
}

func (f *Fence) Wait(timeout time.Duration) error {
	ret := vk.WaitForFences(f.q.dev.dev, 1, []vk.Fence{f.f}, vk.True, timeoutNanos(timeout))
	if ret == vk.Timeout {
		return fmt.Errorf("%w after %s", render.ErrFenceTimeout, timeout)
	}
	return NewError(ret)
}

func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.q.dev.dev, f.f) == vk.Success
}

// Release resets the fence and returns it to the pool.
func (f *Fence) Release() {
	if f.released {
		return
	}
	f.released = true
	if err := NewError(vk.ResetFences(f.q.dev.dev, 1, []vk.Fence{f.f})); err != nil {
		Logger().Warn("reset fence", slog.Any("err", err))
		return
	}
	f.q.free = append(f.q.free, f.f)
}
