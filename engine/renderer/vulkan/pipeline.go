package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

// VulkanPipeline holds a graphics pipeline and its layout.
type VulkanPipeline struct {
	tracked
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// CreatePipeline builds the graphics pipeline: triangle lists, fill mode,
// back-face culling with counter-clockwise front faces, one sample, no blending
// and dynamic viewport and scissor.
func (b *Backend) CreatePipeline(info renderer.PipelineCreateInfo) (renderer.Pipeline, error) {
	vert, err := b.NewShaderStage(info.VertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vertex shader module")
	}
	defer vert.Destroy(b)
	frag, err := b.NewShaderStage(info.FragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fragment shader module")
	}
	defer frag.Destroy(b)

	stages := []vk.PipelineShaderStageCreateInfo{
		vert.ShaderStageCreateInfo,
		frag.ShaderStageCreateInfo,
	}

	// Viewport and scissor are set at record time.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   info.Binding.Binding,
		Stride:    info.Binding.Stride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(info.Attributes))
	for i, a := range info.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	setLayouts := make([]vk.DescriptorSetLayout, len(info.Layouts))
	for i, l := range info.Layouts {
		setLayouts[i] = l.(*VulkanDescriptorSetLayout).Handle
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	out := &VulkanPipeline{}
	if err := b.locks.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		if err := resultError(vk.CreatePipelineLayout(b.logical(), &pipelineLayoutCreateInfo, nil, &layout), "vkCreatePipelineLayout"); err != nil {
			return err
		}
		out.PipelineLayout = layout
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              out.PipelineLayout,
		RenderPass:          info.RenderPass.(*VulkanRenderPass).Handle,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := b.locks.SafeCall(PipelineManagement, func() error {
		return resultError(vk.CreateGraphicsPipelines(b.logical(), vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines), "vkCreateGraphicsPipelines")
	}); err != nil {
		vk.DestroyPipelineLayout(b.logical(), out.PipelineLayout, nil)
		core.LogError(err.Error())
		return nil, err
	}
	out.Handle = pipelines[0]
	out.tracked = b.track("pipeline")

	core.LogDebug("Graphics pipeline created!")
	return out, nil
}

func (p *VulkanPipeline) Native() interface{} { return p.Handle }

func (p *VulkanPipeline) Destroy() {
	if !p.release() {
		return
	}
	b := p.backend
	b.locks.Locked(PipelineManagement, func() {
		vk.DestroyPipeline(b.logical(), p.Handle, nil)
		vk.DestroyPipelineLayout(b.logical(), p.PipelineLayout, nil)
	})
	p.Handle = nil
	p.PipelineLayout = nil
}
