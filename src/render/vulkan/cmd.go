package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// CmdBuffer is a primary command buffer from the device's pool.
type CmdBuffer struct {
	dev *Device
	cb  vk.CommandBuffer
}

func (d *Device) NewCmdBuffer() (render.CmdBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := NewError(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return nil, fmt.Errorf("vulkan: allocate command buffer: %w", err)
	}
	return &CmdBuffer{dev: d, cb: cbs[0]}, nil
}

func usageFlags(u render.CmdUsage) vk.CommandBufferUsageFlags {
	if u == render.UsageOneTime {
		return vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return 0
}

func (c *CmdBuffer) Begin(usage render.CmdUsage) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: usageFlags(usage),
	}
	if err := NewError(vk.BeginCommandBuffer(c.cb, &info)); err != nil {
		return fmt.Errorf("vulkan: begin command buffer: %w", err)
	}
	return nil
}

func (c *CmdBuffer) BeginPass(pass render.RenderPass, fb render.Framebuffer, e render.Extent, clear render.Color) {
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.(*RenderPass).pass,
		Framebuffer: fb.(*Framebuffer).fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent2D(e),
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
	}
	vk.CmdBeginRenderPass(c.cb, &info, vk.SubpassContentsInline)
}

func (c *CmdBuffer) SetPipeline(pl render.Pipeline) {
	vk.CmdBindPipeline(c.cb, vk.PipelineBindPointGraphics, pl.(*Pipeline).pl)
}

func (c *CmdBuffer) SetVertexBuf(binding int, vb render.VertexBuffer) {
	bufs := []vk.Buffer{vb.(*VertexBuffer).buf}
	vk.CmdBindVertexBuffers(c.cb, uint32(binding), 1, bufs, []vk.DeviceSize{0})
}

func (c *CmdBuffer) Draw(vertCount, instCount, firstVert, firstInst int) {
	vk.CmdDraw(c.cb, uint32(vertCount), uint32(instCount), uint32(firstVert), uint32(firstInst))
}

func (c *CmdBuffer) EndPass() { vk.CmdEndRenderPass(c.cb) }

func (c *CmdBuffer) End() error {
	if err := NewError(vk.EndCommandBuffer(c.cb)); err != nil {
		return fmt.Errorf("vulkan: end command buffer: %w", err)
	}
	return nil
}

func (c *CmdBuffer) Destroy() {
	if c.cb == nil {
		return
	}
	vk.FreeCommandBuffers(c.dev.dev, c.dev.pool, 1, []vk.CommandBuffer{c.cb})
	c.cb = nil
}
