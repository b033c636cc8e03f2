package renderer

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/assets/loaders"
	"github.com/spaghettifunk/wind/engine/core"
)

const (
	ShaderStageNameVertex   = "vert"
	ShaderStageNameFragment = "frag"
)

// ShaderPath returns <assetDir>/<name>.<stage>.spv.
func ShaderPath(assetDir, name, stage string) string {
	return filepath.Join(assetDir, fmt.Sprintf("%s.%s.spv", name, stage))
}

type ShaderCode struct {
	Vertex   []uint32
	Fragment []uint32
}

func LoadShaders(assetDir, name string) (*ShaderCode, error) {
	vert, err := loaders.LoadSPIRV(ShaderPath(assetDir, name, ShaderStageNameVertex))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vertex shader")
	}
	frag, err := loaders.LoadSPIRV(ShaderPath(assetDir, name, ShaderStageNameFragment))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fragment shader")
	}
	return &ShaderCode{Vertex: vert, Fragment: frag}, nil
}

// UniformLayoutBindings is the single uniform buffer at binding 0 read by the vertex stage.
func UniformLayoutBindings() []DescriptorBinding {
	return []DescriptorBinding{
		{
			Binding: 0,
			Type:    DescriptorTypeUniformBuffer,
			Count:   1,
			Stages:  ShaderStageVertex,
		},
	}
}

// GraphicsPipeline pairs the pipeline with the render pass format it was built for.
type GraphicsPipeline struct {
	Pipeline Pipeline
	Format   Format
}

// CreateGraphicsPipeline builds the pipeline. Viewport and scissor are dynamic so the
// result stays valid across resizes while the format is unchanged.
func CreateGraphicsPipeline(device Device, pass RenderPass, format Format, layout DescriptorSetLayout, shaders *ShaderCode) (*GraphicsPipeline, error) {
	p, err := device.CreatePipeline(PipelineCreateInfo{
		RenderPass:   pass,
		Layouts:      []DescriptorSetLayout{layout},
		VertexCode:   shaders.Vertex,
		FragmentCode: shaders.Fragment,
		Binding:      VertexBindingDescription(),
		Attributes:   VertexAttributeDescriptions(),
	})
	if err != nil {
		err = errors.Wrap(err, "failed to create graphics pipeline")
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("Graphics pipeline created for format %d.", format)
	return &GraphicsPipeline{Pipeline: p, Format: format}, nil
}

func (g *GraphicsPipeline) Destroy() {
	if g.Pipeline != nil {
		g.Pipeline.Destroy()
		g.Pipeline = nil
	}
}
