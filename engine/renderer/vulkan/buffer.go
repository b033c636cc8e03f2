package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanBuffer struct {
	tracked
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	TotalSize  uint64
	Usage      vk.BufferUsageFlags
	Properties vk.MemoryPropertyFlags
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every property in propertyFlags, or -1.
func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		if typeFilter&(1<<i) != 0 && d.Memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// CreateBuffer creates a host visible, coherent buffer.
func (b *Backend) CreateBuffer(size uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	return b.createBuffer(size, vk.BufferUsageFlags(usage),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
}

// UploadBuffer copies data into a new device local buffer through a staging
// buffer and a single use command buffer.
func (b *Backend) UploadBuffer(data []byte, usage renderer.BufferUsage) (renderer.Buffer, error) {
	size := uint64(len(data))
	if size == 0 {
		return nil, errors.New("cannot upload an empty buffer")
	}

	staging, err := b.createBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Write(data); err != nil {
		return nil, err
	}

	dst, err := b.createBuffer(size, vk.BufferUsageFlags(usage)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create device local buffer")
	}

	cb, err := b.AllocateAndBeginSingleUse()
	if err != nil {
		dst.Destroy()
		return nil, err
	}
	vk.CmdCopyBuffer(cb, staging.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
	if err := b.EndSingleUse(cb); err != nil {
		dst.Destroy()
		return nil, err
	}
	return dst, nil
}

func (b *Backend) createBuffer(size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := resultError(vk.CreateBuffer(b.logical(), &bufferInfo, nil, &handle), "vkCreateBuffer"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.logical(), handle, &requirements)
	requirements.Deref()

	memoryIndex := b.device.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if memoryIndex < 0 {
		vk.DestroyBuffer(b.logical(), handle, nil)
		err := errors.New("required memory type not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	err := b.locks.SafeCall(MemoryManagement, func() error {
		return resultError(vk.AllocateMemory(b.logical(), &allocInfo, nil, &memory), "vkAllocateMemory")
	})
	if err != nil {
		vk.DestroyBuffer(b.logical(), handle, nil)
		core.LogError(err.Error())
		return nil, err
	}
	if err := resultError(vk.BindBufferMemory(b.logical(), handle, memory, 0), "vkBindBufferMemory"); err != nil {
		vk.DestroyBuffer(b.logical(), handle, nil)
		vk.FreeMemory(b.logical(), memory, nil)
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanBuffer{
		tracked:    b.track("buffer"),
		Handle:     handle,
		Memory:     memory,
		TotalSize:  size,
		Usage:      usage,
		Properties: properties,
	}, nil
}

func (buf *VulkanBuffer) Native() interface{} { return buf.Handle }

func (buf *VulkanBuffer) Size() uint64 { return buf.TotalSize }

// Write maps the buffer, copies data to its start and unmaps it.
func (buf *VulkanBuffer) Write(data []byte) error {
	if buf.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return errors.New("buffer memory is not host visible")
	}
	if uint64(len(data)) > buf.TotalSize {
		return errors.Errorf("write of %d bytes exceeds buffer size %d", len(data), buf.TotalSize)
	}
	if len(data) == 0 {
		return nil
	}
	device := buf.backend.logical()
	var mapped unsafe.Pointer
	if err := resultError(vk.MapMemory(device, buf.Memory, 0, vk.DeviceSize(len(data)), 0, &mapped), "vkMapMemory"); err != nil {
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(device, buf.Memory)
	return nil
}

func (buf *VulkanBuffer) Destroy() {
	if !buf.release() {
		return
	}
	device := buf.backend.logical()
	vk.DestroyBuffer(device, buf.Handle, nil)
	buf.backend.locks.Locked(MemoryManagement, func() {
		vk.FreeMemory(device, buf.Memory, nil)
	})
	buf.Handle = nil
	buf.Memory = nil
}
