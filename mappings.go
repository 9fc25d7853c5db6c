package timekill

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/spirv"
)

var formatNames = map[vk.Format]string{
	vk.FormatUndefined:              "Undefined",
	vk.FormatB8g8r8a8Srgb:           "B8G8R8A8 sRGB",
	vk.FormatB8g8r8a8Unorm:          "B8G8R8A8 UNORM",
	vk.FormatR8g8b8a8Srgb:           "R8G8B8A8 sRGB",
	vk.FormatR8g8b8a8Unorm:          "R8G8B8A8 UNORM",
	vk.FormatA2b10g10r10UnormPack32: "A2B10G10R10 UNORM",
	vk.FormatA2r10g10b10UnormPack32: "A2R10G10B10 UNORM",
	vk.FormatR16g16b16a16Sfloat:     "R16G16B16A16 SFLOAT",
	vk.FormatR32Sfloat:              "R32 SFLOAT",
	vk.FormatR32g32Sfloat:           "R32G32 SFLOAT",
	vk.FormatR32g32b32Sfloat:        "R32G32B32 SFLOAT",
	vk.FormatR32g32b32a32Sfloat:     "R32G32B32A32 SFLOAT",
	vk.FormatR32Sint:                "R32 SINT",
	vk.FormatR32g32Sint:             "R32G32 SINT",
	vk.FormatR32g32b32Sint:          "R32G32B32 SINT",
	vk.FormatR32g32b32a32Sint:       "R32G32B32A32 SINT",
	vk.FormatR32Uint:                "R32 UINT",
	vk.FormatR32g32Uint:             "R32G32 UINT",
	vk.FormatR32g32b32Uint:          "R32G32B32 UINT",
	vk.FormatR32g32b32a32Uint:       "R32G32B32A32 UINT",
	vk.FormatD16Unorm:               "D16 UNORM",
	vk.FormatD16UnormS8Uint:         "D16 UNORM S8 UINT",
	vk.FormatD24UnormS8Uint:         "D24 UNORM S8 UINT",
	vk.FormatD32Sfloat:              "D32 SFLOAT",
	vk.FormatD32SfloatS8Uint:        "D32 SFLOAT S8 UINT",
	vk.FormatS8Uint:                 "S8 UINT",
	vk.FormatX8D24UnormPack32:       "X8 D24 UNORM",
}

// FormatName describes f for logs.
func FormatName(f vk.Format) string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Format (%d)", f)
}

var colorSpaceNames = map[vk.ColorSpace]string{
	vk.ColorSpaceSrgbNonlinear: "sRGB nonlinear",
}

func ColorSpaceName(c vk.ColorSpace) string {
	if name, ok := colorSpaceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Color Space (%d)", c)
}

var presentModeNames = map[vk.PresentMode]string{
	vk.PresentModeImmediate:   "Immediate",
	vk.PresentModeMailbox:     "Mailbox",
	vk.PresentModeFifo:        "FIFO",
	vk.PresentModeFifoRelaxed: "FIFO Relaxed",
}

// PresentModeName describes m for logs.
func PresentModeName(m vk.PresentMode) string {
	if name, ok := presentModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Present Mode (%d)", m)
}

var deviceTypeNames = map[vk.PhysicalDeviceType]string{
	vk.PhysicalDeviceTypeOther:         "other",
	vk.PhysicalDeviceTypeIntegratedGpu: "integrated GPU",
	vk.PhysicalDeviceTypeDiscreteGpu:   "discrete GPU",
	vk.PhysicalDeviceTypeVirtualGpu:    "virtual GPU",
	vk.PhysicalDeviceTypeCpu:           "CPU",
}

func DeviceTypeName(t vk.PhysicalDeviceType) string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Device Type (%d)", t)
}

// attributeFormats maps a 32-bit scalar kind to its 1 to 4 component formats.
var attributeFormats = map[spirv.ScalarKind][4]vk.Format{
	spirv.KindFloat: {vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat},
	spirv.KindSint:  {vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint},
	spirv.KindUint:  {vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint},
}

// attributeFormat picks the vertex format of a reflected input type. ok is
// false for anything but 32-bit scalars and vectors.
func attributeFormat(t spirv.Type) (vk.Format, bool) {
	formats, ok := attributeFormats[t.Kind]
	if !ok || t.Width != 32 || t.Components < 1 || t.Components > 4 {
		return vk.FormatUndefined, false
	}
	return formats[t.Components-1], true
}
