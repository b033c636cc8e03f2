package vulkan

import (
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// VulkanDevice is the selected physical device, the logical device created from
// it and the queues the renderer submits to. Everything but the command pool is
// immutable after DeviceCreate.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
	graphicsFound       bool
	presentFound        bool
}

// DeviceCreate selects a physical device that can render and present to surface
// and creates the logical device, its queues and the graphics command pool.
func DeviceCreate(instance vk.Instance, surface vk.Surface) (*VulkanDevice, error) {
	device, err := SelectPhysicalDevice(instance, surface)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	indices := []uint32{device.GraphicsQueueIndex}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, device.PresentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(device.PhysicalDevice, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, nil, &logical); res != vk.Success {
		err := errors.Errorf("vkCreateDevice failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphics, present vk.Queue
	vk.GetDeviceQueue(logical, device.GraphicsQueueIndex, 0, &graphics)
	vk.GetDeviceQueue(logical, device.PresentQueueIndex, 0, &present)
	device.GraphicsQueue = graphics
	device.PresentQueue = present
	core.LogInfo("Queues obtained.")

	// Command buffers are re-recorded every frame without an explicit reset.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(logical, &poolCreateInfo, nil, &pool); res != vk.Success {
		vk.DestroyDevice(logical, nil)
		err := errors.Errorf("vkCreateCommandPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return device, nil
}

func (d *VulkanDevice) Destroy() {
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	if d.GraphicsCommandPool != nil {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, nil)
		d.GraphicsCommandPool = nil
	}

	if d.LogicalDevice != nil {
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, nil)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
}

// DeviceQuerySwapchainSupport reads the surface capabilities, formats and
// present modes of physicalDevice.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	info := &VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return nil, errors.Errorf("vkGetPhysicalDeviceSurfaceCapabilitiesKHR failed with %s", VulkanResultString(res))
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, errors.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res))
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return nil, errors.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res))
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil); res != vk.Success {
		return nil, errors.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res))
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes); res != vk.Success {
			return nil, errors.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res))
		}
	}
	return info, nil
}

// SelectPhysicalDevice returns the first device meeting the requirements, or
// ErrNoSuitableDevice.
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface) (*VulkanDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, errors.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return nil, core.ErrNoSuitableDevice
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, errors.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()

		queueInfo, ok := PhysicalDeviceMeetsRequirements(physicalDevice, surface, &properties, &requirements)
		if !ok {
			continue
		}

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
		memory.Deref()
		for i := uint32(0); i < memory.MemoryTypeCount; i++ {
			memory.MemoryTypes[i].Deref()
		}
		for i := uint32(0); i < memory.MemoryHeapCount; i++ {
			memory.MemoryHeaps[i].Deref()
		}

		logDeviceInfo(&properties, &memory)

		return &VulkanDevice{
			PhysicalDevice:     physicalDevice,
			GraphicsQueueIndex: queueInfo.GraphicsFamilyIndex,
			PresentQueueIndex:  queueInfo.PresentFamilyIndex,
			Properties:         properties,
			Memory:             memory,
		}, nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return nil, core.ErrNoSuitableDevice
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	driver := vk.Version(properties.DriverVersion)
	api := vk.Version(properties.ApiVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		heap := memory.MemoryHeaps[j]
		sizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
		}
	}
}

// PhysicalDeviceMeetsRequirements reports whether device has graphics and present
// queue families, the required extensions and a usable swapchain for surface.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	name := vk.ToString(properties.DeviceName[:])
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}

	if requirements.DiscreteGPU && runtime.GOOS != "darwin" && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return queueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		index := uint32(i)
		graphics := vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supportsPresent); res != vk.Success {
			core.LogWarn("vkGetPhysicalDeviceSurfaceSupportKHR failed with %s", VulkanResultString(res))
			return queueInfo, false
		}
		present := supportsPresent == vk.True

		// A family that does both wins over separate ones.
		if graphics && present {
			queueInfo.GraphicsFamilyIndex, queueInfo.graphicsFound = index, true
			queueInfo.PresentFamilyIndex, queueInfo.presentFound = index, true
			break
		}
		if graphics && !queueInfo.graphicsFound {
			queueInfo.GraphicsFamilyIndex, queueInfo.graphicsFound = index, true
		}
		if present && !queueInfo.presentFound {
			queueInfo.PresentFamilyIndex, queueInfo.presentFound = index, true
		}
	}

	core.LogInfo("Graphics | Present | Name")
	core.LogInfo("   %5t |   %5t | %s", queueInfo.graphicsFound, queueInfo.presentFound, name)

	if (requirements.Graphics && !queueInfo.graphicsFound) || (requirements.Present && !queueInfo.presentFound) {
		return queueInfo, false
	}
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)

	for _, ext := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, ext) {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return queueInfo, false
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		core.LogWarn("Failed to query swapchain support for '%s': %s", name, err)
		return queueInfo, false
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, false
	}

	core.LogInfo("Device meets requirements.")
	return queueInfo, true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
