package vulkan

import (
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceProvider is the window the backend presents to.
type SurfaceProvider interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

// Backend implements renderer.Device on top of Vulkan.
type Backend struct {
	config renderer.Config

	instance      vk.Instance
	surface       vk.Surface
	debugCallback vk.DebugReportCallback
	device        *VulkanDevice

	locks   *VulkanLockPool
	tracker *core.ResourceTracker
}

var _ renderer.Device = (*Backend)(nil)

// New creates the instance, the surface and the logical device. Validation
// layers are enabled only when the configuration asks for them, and a missing
// layer is fatal.
func New(cfg renderer.Config, window SurfaceProvider) (*Backend, error) {
	procAddr := window.InstanceProcAddr()
	if procAddr == nil {
		err := errors.New("vkGetInstanceProcAddr is not available")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize vulkan")
		core.LogError(err.Error())
		return nil, err
	}

	b := &Backend{
		config:  cfg,
		locks:   NewVulkanLockPool(),
		tracker: core.NewResourceTracker(),
	}

	if err := b.createInstance(window.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}

	if cfg.EnableValidation {
		if err := b.createDebugCallback(); err != nil {
			b.Destroy()
			return nil, err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(b.instance)
	if err != nil {
		b.Destroy()
		err = errors.Wrap(err, "failed to create window surface")
		core.LogError(err.Error())
		return nil, err
	}
	b.surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	device, err := DeviceCreate(b.instance, b.surface)
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "failed to create device")
	}
	b.device = device

	core.LogInfo("Vulkan backend initialized successfully.")
	return b, nil
}

func (b *Backend) createInstance(windowExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(b.config.ApplicationName),
		PEngineName:        VulkanSafeString("Wind Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{"VK_KHR_surface"}, windowExtensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if b.config.EnableValidation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Validation layers enabled. Enumerating...")
		if err := checkValidationLayer(validationLayerName); err != nil {
			return err
		}
		layers = []string{validationLayerName}
	}
	core.LogDebug("Required extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := resultError(vk.CreateInstance(&createInfo, nil, &instance), "vkCreateInstance"); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		core.LogError(err.Error())
		return err
	}
	b.instance = instance
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayer(name string) error {
	var count uint32
	if err := resultError(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := resultError(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	core.LogInfo("Searching for layer: %s...", name)
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].LayerName[:]) == name {
			core.LogInfo("Found.")
			return nil
		}
	}
	err := errors.Wrap(core.ErrValidationLayerMissing, name)
	core.LogError(err.Error())
	return err
}

func (b *Backend) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := resultError(vk.CreateDebugReportCallback(b.instance, &debugCreateInfo, nil, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
		core.LogError(err.Error())
		return err
	}
	b.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Tracker exposes the registry of live objects created through the backend.
func (b *Backend) Tracker() *core.ResourceTracker {
	return b.tracker
}

func (b *Backend) WaitIdle() error {
	if b.device == nil {
		return nil
	}
	return resultError(vk.DeviceWaitIdle(b.device.LogicalDevice), "vkDeviceWaitIdle")
}

// Destroy releases the device, surface and instance. Objects created through the
// backend must have been destroyed already; leftovers are reported.
func (b *Backend) Destroy() {
	if b.device != nil {
		if err := b.WaitIdle(); err != nil {
			core.LogWarn(err.Error())
		}
		if n := b.tracker.Report(); n > 0 {
			core.LogWarn("%d Vulkan object(s) still alive at shutdown", n)
		}
		core.LogDebug("Destroying Vulkan device...")
		b.device.Destroy()
		b.device = nil
	}

	if b.surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(b.instance, b.surface, nil)
		b.surface = vk.NullSurface
	}

	if b.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(b.instance, b.debugCallback, nil)
		b.debugCallback = vk.NullDebugReportCallback
	}

	if b.instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(b.instance, nil)
		b.instance = nil
	}
}

func (b *Backend) logical() vk.Device {
	return b.device.LogicalDevice
}

// tracked ties a wrapper to its entry in the backend's resource tracker.
type tracked struct {
	backend *Backend
	id      uuid.UUID
}

func (b *Backend) track(kind string) tracked {
	return tracked{backend: b, id: b.tracker.Acquire(kind)}
}

// release reports whether the object was still alive.
func (t *tracked) release() bool {
	if t.id == uuid.Nil {
		return false
	}
	t.backend.tracker.Release(t.id)
	t.id = uuid.Nil
	return true
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
