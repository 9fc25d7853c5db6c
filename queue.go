package timekill

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueFamilyIndices records the queue families picked for a physical
// device. A nil field means no family was found.
type QueueFamilyIndices struct {
	Graphics *uint32
	Present  *uint32
}

// Complete is true once both a graphics and a present family are known.
func (q QueueFamilyIndices) Complete() bool {
	return q.Graphics != nil && q.Present != nil
}

// Unique lists the distinct family indices, graphics first. Graphics and
// present may share a family.
func (q QueueFamilyIndices) Unique() []uint32 {
	var out []uint32
	if q.Graphics != nil {
		out = append(out, *q.Graphics)
	}
	if q.Present != nil && (q.Graphics == nil || *q.Present != *q.Graphics) {
		out = append(out, *q.Present)
	}
	return out
}

// resolveQueueFamilies walks the families in order and keeps the first
// graphics capable and the first present capable family, stopping once both
// are found.
func resolveQueueFamilies(flags []vk.QueueFlags, canPresent func(index uint32) bool) QueueFamilyIndices {
	var q QueueFamilyIndices
	for i, f := range flags {
		index := uint32(i)
		if q.Graphics == nil && f&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			q.Graphics = &index
		}
		if q.Present == nil && canPresent(index) {
			q.Present = &index
		}
		if q.Complete() {
			break
		}
	}
	return q
}

// findQueueFamilies queries gpu for queue families able to render and to
// present to surface.
func findQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) QueueFamilyIndices {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	flags := make([]vk.QueueFlags, len(props))
	for i := range props {
		props[i].Deref()
		flags[i] = props[i].QueueFlags
	}
	return resolveQueueFamilies(flags, func(index uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, index, surface, &supported)
		return supported.B()
	})
}

// queueCreateInfos requests one queue at priority 1.0 per unique family.
func queueCreateInfos(q QueueFamilyIndices) []vk.DeviceQueueCreateInfo {
	families := q.Unique()
	infos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}
