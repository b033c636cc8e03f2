package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// VulkanShaderStage is a shader module and the stage info that references it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage wraps SPIR-V words in a shader module for stage.
func (b *Backend) NewShaderStage(code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, errors.New("shader code is empty")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var handle vk.ShaderModule
	if err := resultError(vk.CreateShaderModule(b.logical(), &createInfo, nil, &handle), "vkCreateShaderModule"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

// Destroy releases the module. Pipelines built from it stay valid.
func (s *VulkanShaderStage) Destroy(b *Backend) {
	if s.Handle != nil {
		vk.DestroyShaderModule(b.logical(), s.Handle, nil)
		s.Handle = nil
	}
}
