package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// RenderPass is a single-subpass pass with one color attachment that is
// cleared on load, stored, and left ready for presentation.
type RenderPass struct {
	dev    vk.Device
	pass   vk.RenderPass
	format render.Format
}

func (d *Device) NewRenderPass(format render.Format) (render.RenderPass, error) {
	attachment := vk.AttachmentDescription{
		Format:         vk.Format(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
	// The layout transition waits for the acquire semaphore, which the
	// submission waits on at this stage.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{attachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	var pass vk.RenderPass
	if err := NewError(vk.CreateRenderPass(d.dev, &info, nil, &pass)); err != nil {
		return nil, fmt.Errorf("vulkan: create render pass: %w", err)
	}
	return &RenderPass{dev: d.dev, pass: pass, format: format}, nil
}

func (p *RenderPass) Format() render.Format { return p.format }

func (p *RenderPass) Destroy() {
	if p.pass == vk.RenderPass(vk.NullHandle) {
		return
	}
	vk.DestroyRenderPass(p.dev, p.pass, nil)
	p.pass = vk.RenderPass(vk.NullHandle)
}

// Framebuffer binds a render pass to one swapchain image view.
type Framebuffer struct {
	dev vk.Device
	fb  vk.Framebuffer
}

func (d *Device) NewFramebuffer(pass render.RenderPass, img render.Image, e render.Extent) (render.Framebuffer, error) {
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.(*RenderPass).pass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{img.(*Image).view},
		Width:           e.Width,
		Height:          e.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := NewError(vk.CreateFramebuffer(d.dev, &info, nil, &fb)); err != nil {
		return nil, fmt.Errorf("vulkan: create framebuffer for image %d: %w", img.(*Image).index, err)
	}
	return &Framebuffer{dev: d.dev, fb: fb}, nil
}

func (f *Framebuffer) Destroy() {
	if f.fb == vk.Framebuffer(vk.NullHandle) {
		return
	}
	vk.DestroyFramebuffer(f.dev, f.fb, nil)
	f.fb = vk.Framebuffer(vk.NullHandle)
}
