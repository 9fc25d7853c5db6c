package timekill

import (
	vk "github.com/vulkan-go/vulkan"
)

const (
	extSwapchain              = "VK_KHR_swapchain"
	extDebugReport            = "VK_EXT_debug_report"
	extPortabilityEnumeration = "VK_KHR_portability_enumeration"
	extPortabilitySubset      = "VK_KHR_portability_subset"
	extRayTracingPipeline     = "VK_KHR_ray_tracing_pipeline"

	layerKhronosValidation = "VK_LAYER_KHRONOS_validation"

	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortability = vk.InstanceCreateFlags(0x00000001)
)

// ValidationLayers requested when debugging.
var ValidationLayers = []string{layerKhronosValidation}

// RequiredDeviceExtensions must be supported by every candidate GPU.
var RequiredDeviceExtensions = []string{extSwapchain}

// Extensions is a set of required and wanted names checked against what the
// platform actually reports. Layers use the same shape.
type Extensions struct {
	wanted   []string
	required []string
	actual   []string
}

func NewExtensions(required, wanted, actual []string) *Extensions {
	return &Extensions{
		required: trimAll(required),
		wanted:   trimAll(wanted),
		actual:   trimAll(actual),
	}
}

// HasRequired reports whether every required name is available, and which
// ones are missing.
func (e *Extensions) HasRequired() (bool, []string) {
	missing := missingNames(e.actual, e.required)
	return len(missing) == 0, missing
}

// HasWanted reports whether every wanted name is available, and which ones
// are missing.
func (e *Extensions) HasWanted() (bool, []string) {
	missing := missingNames(e.actual, e.wanted)
	return len(missing) == 0, missing
}

// Has reports whether name is available.
func (e *Extensions) Has(name string) bool {
	return len(missingNames(e.actual, []string{name})) == 0
}

// GetExtensions returns the nul-terminated names to enable: every required
// name and the wanted names that are available, without duplicates.
func (e *Extensions) GetExtensions() []string {
	seen := make(map[string]bool, len(e.required)+len(e.wanted))
	var enable []string
	for _, name := range e.required {
		if !seen[name] {
			seen[name] = true
			enable = append(enable, name)
		}
	}
	for _, name := range e.wanted {
		if !seen[name] && e.Has(name) {
			seen[name] = true
			enable = append(enable, name)
		}
	}
	return safeStrings(enable)
}

func missingNames(actual, names []string) []string {
	available := make(map[string]bool, len(actual))
	for _, a := range actual {
		available[a] = true
	}
	var missing []string
	for _, n := range names {
		if !available[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

func trimAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = trimString(s)
	}
	return out
}

// InstanceExtensions gets a list of instance extensions available on the platform.
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
	for _, ext := range list[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
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
	for _, ext := range list[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// AvailableLayers gets a list of validation layers available on the platform.
func AvailableLayers() ([]string, error) {
	var count uint32
	if err := newError(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	if err := newError(vk.EnumerateInstanceLayerProperties(&count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, layer := range list[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}
