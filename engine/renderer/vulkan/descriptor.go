package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanDescriptorSetLayout struct {
	tracked
	Handle vk.DescriptorSetLayout
}

func (b *Backend) CreateDescriptorSetLayout(bindings []renderer.DescriptorBinding) (renderer.DescriptorSetLayout, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, binding := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         binding.Binding,
			DescriptorType:  vk.DescriptorType(binding.Type),
			DescriptorCount: binding.Count,
			StageFlags:      vk.ShaderStageFlags(binding.Stages),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var handle vk.DescriptorSetLayout
	if err := resultError(vk.CreateDescriptorSetLayout(b.logical(), &layoutInfo, nil, &handle), "vkCreateDescriptorSetLayout"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanDescriptorSetLayout{tracked: b.track("descriptor set layout"), Handle: handle}, nil
}

func (l *VulkanDescriptorSetLayout) Native() interface{} { return l.Handle }

func (l *VulkanDescriptorSetLayout) Destroy() {
	if !l.release() {
		return
	}
	vk.DestroyDescriptorSetLayout(l.backend.logical(), l.Handle, nil)
	l.Handle = nil
}

// VulkanDescriptorPool holds uniform buffer descriptors. Sets are never freed
// individually; they go away with the pool.
type VulkanDescriptorPool struct {
	tracked
	Handle  vk.DescriptorPool
	MaxSets uint32
}

func (b *Backend) CreateDescriptorPool(maxSets, descriptorCount uint32) (renderer.DescriptorPool, error) {
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: descriptorCount,
		}},
	}
	var handle vk.DescriptorPool
	if err := resultError(vk.CreateDescriptorPool(b.logical(), &poolInfo, nil, &handle), "vkCreateDescriptorPool"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanDescriptorPool{
		tracked: b.track("descriptor pool"),
		Handle:  handle,
		MaxSets: maxSets,
	}, nil
}

func (p *VulkanDescriptorPool) Native() interface{} { return p.Handle }

func (p *VulkanDescriptorPool) Destroy() {
	if !p.release() {
		return
	}
	b := p.backend
	b.locks.Locked(DescriptorManagement, func() {
		vk.DestroyDescriptorPool(b.logical(), p.Handle, nil)
	})
	p.Handle = nil
}

// Allocate allocates one set per layout.
func (p *VulkanDescriptorPool) Allocate(layouts []renderer.DescriptorSetLayout) ([]renderer.DescriptorSet, error) {
	if len(layouts) == 0 {
		return nil, nil
	}
	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		handles[i] = l.(*VulkanDescriptorSetLayout).Handle
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(len(handles)),
		PSetLayouts:        handles,
	}
	sets := make([]vk.DescriptorSet, len(handles))
	b := p.backend
	err := b.locks.SafeCall(DescriptorManagement, func() error {
		return resultError(vk.AllocateDescriptorSets(b.logical(), &allocInfo, &sets[0]), "vkAllocateDescriptorSets")
	})
	if err != nil {
		err = errors.Wrapf(err, "failed to allocate %d descriptor sets", len(handles))
		core.LogError(err.Error())
		return nil, err
	}
	out := make([]renderer.DescriptorSet, len(sets))
	for i, s := range sets {
		out[i] = &VulkanDescriptorSet{Handle: s}
	}
	return out, nil
}

type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
}

func (s *VulkanDescriptorSet) Native() interface{} { return s.Handle }

// WriteUniformDescriptor points binding of set at the whole of buffer.
func (b *Backend) WriteUniformDescriptor(set renderer.DescriptorSet, binding uint32, buffer renderer.Buffer) {
	buf := buffer.(*VulkanBuffer)
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buf.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(buf.Size()),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set.(*VulkanDescriptorSet).Handle,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	b.locks.Locked(DescriptorManagement, func() {
		vk.UpdateDescriptorSets(b.logical(), 1, []vk.WriteDescriptorSet{write}, 0, nil)
	})
}
