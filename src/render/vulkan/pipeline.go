package vulkan

import (
	"encoding/binary"
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// ErrShaderCode means a shader is not a SPIR-V module.
var ErrShaderCode = errors.New("vulkan: not a SPIR-V module")

const spirvMagic = 0x07230203

// words repacks SPIR-V bytes into the 32-bit words the driver expects.
func words(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShaderCode, len(code))
	}
	out := make([]uint32, len(code)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if out[0] != spirvMagic {
		return nil, fmt.Errorf("%w: magic %#08x", ErrShaderCode, out[0])
	}
	return out, nil
}

// PipelineBuilder owns the shader modules and the empty pipeline layout and
// builds the triangle pipeline for a render pass and viewport.
// It implements render.PipelineBuilder.
type PipelineBuilder struct {
	dev    vk.Device
	vert   vk.ShaderModule
	frag   vk.ShaderModule
	layout vk.PipelineLayout
}

// NewPipelineBuilder loads vertex and fragment SPIR-V. Both shaders use the
// entry point main; the vertex shader reads a vec2 position at location 0.
func (d *Device) NewPipelineBuilder(vert, frag []byte) (*PipelineBuilder, error) {
	b := &PipelineBuilder{dev: d.dev}
	var err error
	if b.vert, err = b.shader(vert); err != nil {
		return nil, fmt.Errorf("vulkan: vertex shader: %w", err)
	}
	if b.frag, err = b.shader(frag); err != nil {
		b.Destroy()
		return nil, fmt.Errorf("vulkan: fragment shader: %w", err)
	}
	info := vk.PipelineLayoutCreateInfo{SType: vk.StructureTypePipelineLayoutCreateInfo}
	if err := NewError(vk.CreatePipelineLayout(d.dev, &info, nil, &b.layout)); err != nil {
		b.Destroy()
		return nil, fmt.Errorf("vulkan: create pipeline layout: %w", err)
	}
	return b, nil
}

func (b *PipelineBuilder) shader(code []byte) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	w, err := words(code)
	if err != nil {
		return module, err
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    w,
	}
	return module, NewError(vk.CreateShaderModule(b.dev, &info, nil, &module))
}

func (b *PipelineBuilder) NewPipeline(pass render.RenderPass, vp render.Viewport) (render.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: b.vert,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: b.frag,
			PName:  "main\x00",
		},
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    vertexStride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: 1,
		PVertexAttributeDescriptions: []vk.VertexInputAttributeDescription{{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   0,
		}},
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        vp.X,
			Y:        vp.Y,
			Width:    vp.Width,
			Height:   vp.Height,
			MinDepth: vp.MinDepth,
			MaxDepth: vp.MaxDepth,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: int32(vp.X), Y: int32(vp.Y)},
			Extent: vk.Extent2D{Width: uint32(vp.Width), Height: uint32(vp.Height)},
		}},
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1,
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit |
					vk.ColorComponentBBit | vk.ColorComponentABit,
			),
			BlendEnable: vk.False,
		}},
	}
	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PColorBlendState:    &blend,
		Layout:              b.layout,
		RenderPass:          pass.(*RenderPass).pass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(b.dev, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := NewError(ret); err != nil {
		return nil, fmt.Errorf("vulkan: create graphics pipeline: %w", err)
	}
	return &Pipeline{dev: b.dev, pl: pipelines[0]}, nil
}

// Destroy releases the shader modules and the layout. Pipelines built from
// b stay valid.
func (b *PipelineBuilder) Destroy() {
	if b.vert != vk.ShaderModule(vk.NullHandle) {
		vk.DestroyShaderModule(b.dev, b.vert, nil)
		b.vert = vk.ShaderModule(vk.NullHandle)
	}
	if b.frag != vk.ShaderModule(vk.NullHandle) {
		vk.DestroyShaderModule(b.dev, b.frag, nil)
		b.frag = vk.ShaderModule(vk.NullHandle)
	}
	if b.layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(b.dev, b.layout, nil)
		b.layout = vk.PipelineLayout(vk.NullHandle)
	}
}

// Pipeline is a built graphics pipeline.
type Pipeline struct {
	dev vk.Device
	pl  vk.Pipeline
}

func (p *Pipeline) Destroy() {
	if p.pl == vk.Pipeline(vk.NullHandle) {
		return
	}
	vk.DestroyPipeline(p.dev, p.pl, nil)
	p.pl = vk.Pipeline(vk.NullHandle)
}
