package timekill

import (
	"runtime"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

// PlatformOS is runtime.GOOS, kept in a variable for portability checks.
var PlatformOS = runtime.GOOS

// CoreContext owns the Vulkan instance, debug callback, surface and logical
// device, and the CoreResources table that carries them to the swapchain,
// render pass and pipeline.
type CoreContext struct {
	config    *Configuration
	window    Window
	resources *CoreResources
	profile   DeviceProfile
	layers    []string
}

// NewCoreContext brings up a context on window:
// instance, debug callback, surface, physical device, logical device and
// queues, in that order. On failure everything created so far is destroyed
// and no context is returned.
func NewCoreContext(window Window, config *Configuration) (ctx *CoreContext, err error) {
	if config == nil {
		config = NewConfiguration()
	}
	c := &CoreContext{config: config, window: window}
	c.resources = NewCoreResources(c.destroy)
	defer func() {
		if err != nil {
			c.resources.Release()
		}
	}()

	if !window.VulkanSupported() {
		return nil, newErr(KindUnsupported, "vulkan support", ErrUnsupported)
	}

	if config.ValidationEnabled() {
		available, err := AvailableLayers()
		if err != nil {
			return nil, newErr(KindUnsupported, "enumerate layers", err)
		}
		layers := NewExtensions(ValidationLayers, nil, available)
		if ok, missing := layers.HasRequired(); !ok {
			return nil, newErr(KindUnsupported, "validation layers",
				errors.Wrapf(ErrLayersUnavailable, "missing %v", missing))
		}
		c.layers = layers.GetExtensions()
	}

	if err := c.createInstance(); err != nil {
		return nil, err
	}

	if config.ValidationEnabled() {
		cb, err := createDebugCallback(c.resources.Instance)
		if err != nil {
			return nil, err
		}
		c.resources.DebugCallback = cb
		logging.Info("vulkan: debug report callback enabled")
	}

	surface, err := window.CreateSurface(c.resources.Instance)
	if err != nil {
		return nil, newErr(KindCreation, "create surface", err)
	}
	if surface == vk.NullSurface {
		return nil, newErr(KindCreation, "create surface", ErrNullHandle)
	}
	c.resources.Surface = surface

	gpu, profile, err := SelectPhysicalDevice(c.resources.Instance, c.resources.Surface)
	if err != nil {
		return nil, err
	}
	c.resources.PhysicalDevice = gpu
	c.profile = profile

	if err := c.createDevice(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CoreContext) createInstance() error {
	available, err := InstanceExtensions()
	if err != nil {
		return newErr(KindUnsupported, "enumerate instance extensions", err)
	}
	var wanted []string
	if c.config.ValidationEnabled() {
		wanted = append(wanted, extDebugReport)
	}
	var flags vk.InstanceCreateFlags
	if PlatformOS == "darwin" {
		wanted = append(wanted, extPortabilityEnumeration)
	}
	exts := NewExtensions(c.window.RequiredInstanceExtensions(), wanted, available)
	if ok, missing := exts.HasRequired(); !ok {
		return newErr(KindUnsupported, "instance extensions",
			errors.Wrapf(ErrMissingExtensions, "missing %v", missing))
	}
	if c.config.ValidationEnabled() && !exts.Has(extDebugReport) {
		return newErr(KindUnsupported, "instance extensions",
			errors.Wrapf(ErrDebugEntryPoint, "%s not available", extDebugReport))
	}
	if exts.Has(extPortabilityEnumeration) && PlatformOS == "darwin" {
		flags |= instanceCreateEnumeratePortability
	}
	enabled := exts.GetExtensions()
	logging.Debug("vulkan: enabling %d instance extensions", len(enabled))

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(c.config.AppName),
			PEngineName:        safeString("timekill"),
			EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		},
		Flags:                   flags,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(c.layers)),
		PpEnabledLayerNames:     c.layers,
	}, nil, &instance)
	if err := checkResult(ret, "create instance"); err != nil {
		return err
	}
	if instance == nil {
		return newErr(KindCreation, "create instance", ErrNullHandle)
	}
	c.resources.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return newErr(KindCreation, "load instance functions", err)
	}
	return nil
}

func (c *CoreContext) createDevice() error {
	r := c.resources
	families := findQueueFamilies(r.PhysicalDevice, r.Surface)
	if !families.Complete() {
		return newPathErr(KindUnsupported, "resolve queue families", c.profile.Name, ErrQueueFamilies)
	}
	r.QueueFamilies = families

	available, err := DeviceExtensions(r.PhysicalDevice)
	if err != nil {
		return newPathErr(KindUnsupported, "enumerate device extensions", c.profile.Name, err)
	}
	exts := NewExtensions(RequiredDeviceExtensions, []string{extPortabilitySubset}, available)
	if ok, missing := exts.HasRequired(); !ok {
		return newPathErr(KindUnsupported, "device extensions", c.profile.Name,
			errors.Wrapf(ErrMissingExtensions, "missing %v", missing))
	}
	enabled := exts.GetExtensions()

	queueInfos := queueCreateInfos(families)
	var device vk.Device
	ret := vk.CreateDevice(r.PhysicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(c.layers)),
		PpEnabledLayerNames:     c.layers,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
			GeometryShader:    vk.True,
		}},
	}, nil, &device)
	if err := newError(ret); err != nil {
		return newPathErr(KindCreation, "create logical device", c.profile.Name, err)
	}
	if device == nil {
		return newPathErr(KindCreation, "create logical device", c.profile.Name, ErrNullHandle)
	}
	r.Device = device

	var graphics, present vk.Queue
	vk.GetDeviceQueue(device, *families.Graphics, 0, &graphics)
	vk.GetDeviceQueue(device, *families.Present, 0, &present)
	if graphics == nil || present == nil {
		return newErr(KindCreation, "get device queues", ErrNullHandle)
	}
	r.GraphicsQueue = graphics
	r.PresentQueue = present
	logging.Debug("vulkan: graphics family %d, present family %d", *families.Graphics, *families.Present)
	return nil
}

// Resources returns the shared handle table. Holders that outlive the
// context must Retain it.
func (c *CoreContext) Resources() *CoreResources {
	return c.resources
}

func (c *CoreContext) Window() Window {
	return c.window
}

func (c *CoreContext) Configuration() *Configuration {
	return c.config
}

// Device returns the profile of the selected physical device.
func (c *CoreContext) Device() DeviceProfile {
	return c.profile
}

// QueuesWaitIdle blocks until the graphics and present queues are idle.
func (c *CoreContext) QueuesWaitIdle() error {
	r := c.resources
	if r.GraphicsQueue != nil {
		if err := checkResult(vk.QueueWaitIdle(r.GraphicsQueue), "wait graphics queue"); err != nil {
			return err
		}
	}
	if r.PresentQueue != nil && r.PresentQueue != r.GraphicsQueue {
		if err := checkResult(vk.QueueWaitIdle(r.PresentQueue), "wait present queue"); err != nil {
			return err
		}
	}
	return nil
}

// Destroy drops the context's hold on the resources. The Vulkan objects are
// destroyed once every swapchain, render pass and pipeline built on them has
// been destroyed as well.
func (c *CoreContext) Destroy() {
	c.resources.Release()
}

// destroy tears down what the context created, newest first. Each step is
// skipped when its handle was never set.
func (c *CoreContext) destroy() {
	r := c.resources
	if err := c.QueuesWaitIdle(); err != nil {
		logging.Warn("vulkan: %v", err)
	}
	if r.Device != nil {
		vk.DestroyDevice(r.Device, nil)
		r.Device = nil
		r.GraphicsQueue = nil
		r.PresentQueue = nil
	}
	if r.Surface != vk.NullSurface {
		vk.DestroySurface(r.Instance, r.Surface, nil)
		r.Surface = vk.NullSurface
	}
	if r.DebugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(r.Instance, r.DebugCallback, nil)
		r.DebugCallback = vk.NullDebugReportCallback
	}
	if r.Instance != nil {
		vk.DestroyInstance(r.Instance, nil)
		r.Instance = nil
	}
	r.PhysicalDevice = nil
	logging.Debug("vulkan: context destroyed")
}
