package vkcore

import (
	"log"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// AppInfo describes the client application creating a Context. It plays
// the role of the teacher's Application interface (application.go) but
// as a plain struct: this layer does not need the teacher's VulkanMode
// bitmask dispatch since every vkcore Context always wants graphics,
// compute and present capability.
type AppInfo struct {
	Name               string
	Version            uint32
	APIVersion          uint32
	Debug              bool
	InstanceExtensions []string
	DeviceExtensions   []string
	ValidationLayers   []string
}

// Context owns the VkInstance, physical-device selection and the
// logical VkDevice. It is deliberately thin: everything past device
// creation (frame lifecycle, object pools, caches) belongs to Device,
// mirroring how the teacher's platform.go hands a freshly built
// *context off to application code rather than doing frame work itself.
type Context struct {
	instance      vk.Instance
	gpu           vk.PhysicalDevice
	device        vk.Device
	debugCallback vk.DebugReportCallback

	gpuProperties    vk.PhysicalDeviceProperties
	memoryProperties vk.PhysicalDeviceMemoryProperties

	queueFamilies []vk.QueueFamilyProperties
}

// NewContext creates the instance, selects a physical device and
// creates the logical device with the queue families Queues resolves.
// It does not create a surface or swapchain: makeSurface is accepted
// but never called. Only the surface extension names are used here,
// which is the only piece of glfw the teacher's display.go actually
// needs at this layer.
func NewContext(app AppInfo, surfaceExtensions []string, makeSurface func(vk.Instance) (vk.Surface, error)) (*Context, error) {
	c := &Context{}

	instanceExtensions, err := InstanceExtensions()
	if err != nil {
		return nil, err
	}
	wanted := append(append([]string{}, app.InstanceExtensions...), surfaceExtensions...)
	enabledInstanceExt, missing := negotiateExtensions(instanceExtensions, wanted)
	if missing > 0 {
		log.Printf("vkcore: missing %d requested instance extensions", missing)
	}

	var enabledLayers []string
	if app.Debug {
		available, err := ValidationLayers()
		if err != nil {
			return nil, err
		}
		enabledLayers, missing = negotiateExtensions(available, app.ValidationLayers)
		if missing > 0 {
			log.Printf("vkcore: missing %d requested validation layers", missing)
		}
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         app.APIVersion,
			ApplicationVersion: app.Version,
			PApplicationName:   safeString(app.Name),
			PEngineName:        "vkcore\x00",
		},
		EnabledExtensionCount:   uint32(len(enabledInstanceExt)),
		PpEnabledExtensionNames: enabledInstanceExt,
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     enabledLayers,
	}, nil, &instance)
	if err := newError(ret); err != nil {
		return nil, err
	}
	c.instance = instance
	vk.InitInstance(instance)

	if app.Debug {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &c.debugCallback)
		if err := newError(ret); err != nil {
			return nil, err
		}
	}

	gpu, err := selectPhysicalDevice(instance)
	if err != nil {
		return nil, err
	}
	c.gpu = gpu
	vk.GetPhysicalDeviceProperties(gpu, &c.gpuProperties)
	c.gpuProperties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &c.memoryProperties)
	c.memoryProperties.Deref()

	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
	c.queueFamilies = make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, c.queueFamilies)
	for i := range c.queueFamilies {
		c.queueFamilies[i].Deref()
	}

	deviceExt, err := DeviceExtensions(gpu)
	if err != nil {
		return nil, err
	}
	enabledDeviceExt, missing := negotiateExtensions(deviceExt, app.DeviceExtensions)
	if missing > 0 {
		log.Printf("vkcore: missing %d requested device extensions", missing)
	}

	queues := resolveQueueFamilies(c.queueFamilies)
	queueInfos := queues.createInfos()

	var device vk.Device
	ret = vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabledDeviceExt)),
		PpEnabledExtensionNames: enabledDeviceExt,
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     enabledLayers,
	}, nil, &device)
	if err := newError(ret); err != nil {
		return nil, err
	}
	c.device = device

	return c, nil
}

func (c *Context) Instance() vk.Instance                              { return c.instance }
func (c *Context) Device() vk.Device                                  { return c.device }
func (c *Context) PhysicalDevice() vk.PhysicalDevice                  { return c.gpu }
func (c *Context) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return c.memoryProperties }
func (c *Context) PhysicalDeviceProperties() vk.PhysicalDeviceProperties {
	return c.gpuProperties
}
func (c *Context) QueueFamilies() []vk.QueueFamilyProperties { return c.queueFamilies }

// NewQueues resolves and binds the three logical queue roles against the
// device created by NewContext. Callers outside this package have no
// other way to construct a *Queues, since queuePlan resolution is an
// internal detail of context/device construction.
func (c *Context) NewQueues() *Queues {
	plan := resolveQueueFamilies(c.queueFamilies)
	return NewQueues(c.device, plan)
}

// Destroy tears down the logical device, debug callback and instance,
// in that order. Callers must have waited for device idle first.
func (c *Context) Destroy() {
	if c.device != nil {
		vk.DestroyDevice(c.device, nil)
		c.device = nil
	}
	if c.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(c.instance, c.debugCallback, nil)
	}
	if c.instance != nil {
		vk.DestroyInstance(c.instance, nil)
		c.instance = nil
	}
}

// selectPhysicalDevice prefers a discrete GPU, falling back to the
// first enumerated device. The teacher's platform.go just takes
// gpus[0]; this generalizes that with a one-line preference since
// spec.md's Device is expected to run on multi-GPU machines without
// operator intervention.
func selectPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, error) {
	var count uint32
	if err := newError(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, newErrorf(KindNoSuitableGPU, "no physical devices enumerated")
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := newError(vk.EnumeratePhysicalDevices(instance, &count, gpus)); err != nil {
		return nil, err
	}
	best := gpus[0]
	for _, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			best = gpu
			break
		}
	}
	return best, nil
}

// negotiateExtensions collapses the teacher's triplicated
// BaseInstanceExtensions/BaseDeviceExtensions/BaseLayerExtensions set
// arithmetic (extensions_2.go) into one generic wanted-vs-available
// reduction: returns the subset of wanted present in available, plus a
// count of how many were missing.
func negotiateExtensions(available, wanted []string) (enabled []string, missing int) {
	have := make(map[string]bool, len(available))
	for _, a := range available {
		have[a] = true
	}
	for _, w := range wanted {
		if have[w] {
			enabled = append(enabled, safeString(w))
		} else {
			missing++
		}
	}
	return enabled, missing
}

// InstanceExtensions lists instance extensions available on the
// platform. Grounded on the teacher's extensions.go.
func InstanceExtensions() ([]string, error) {
	var count uint32
	if err := newError(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := newError(vk.EnumerateInstanceExtensionProperties("", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// DeviceExtensions lists extensions available on gpu.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := newError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := newError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// ValidationLayers lists validation layers available on the platform.
func ValidationLayers() ([]string, error) {
	var count uint32
	if err := newError(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	if err := newError(vk.EnumerateInstanceLayerProperties(&count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Printf("vulkan ERROR: [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Printf("vulkan WARNING: [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		log.Printf("vulkan PERF WARNING: [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		log.Printf("vulkan INFO: [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}
