package timekill

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

// Score bonuses applied by ScoreDevice.
const (
	scoreDiscrete      = 1000
	scoreTessellation  = 500
	scoreAnisotropy    = 500
	scoreMultiViewport = 500
	scoreRayTracing    = 1000
	bytesPerMebibyte   = 1024 * 1024
)

// DeviceProfile is a read-only snapshot of what a physical device offers,
// taken once per candidate during selection.
type DeviceProfile struct {
	Name                string
	Type                vk.PhysicalDeviceType
	MaxImageDimension2D uint32
	DeviceLocalBytes    uint64

	GeometryShader     bool
	TessellationShader bool
	SamplerAnisotropy  bool
	MultiViewport      bool
	RayTracingPipeline bool

	QueueFamilies     QueueFamilyIndices
	MissingExtensions []string
	SurfaceFormats    int
	PresentModes      int
}

// Suitable reports whether the device passes every hard filter.
func (p DeviceProfile) Suitable() bool {
	return p.GeometryShader &&
		p.QueueFamilies.Complete() &&
		len(p.MissingExtensions) == 0 &&
		p.SurfaceFormats > 0 && p.PresentModes > 0
}

// ScoreDevice rates a candidate. Devices failing a hard filter score 0.
func ScoreDevice(p DeviceProfile) uint64 {
	if !p.Suitable() {
		return 0
	}
	var score uint64
	if p.Type == vk.PhysicalDeviceTypeDiscreteGpu {
		score += scoreDiscrete
	}
	score += uint64(p.MaxImageDimension2D)
	score += p.DeviceLocalBytes / bytesPerMebibyte
	if p.TessellationShader {
		score += scoreTessellation
	}
	if p.SamplerAnisotropy {
		score += scoreAnisotropy
	}
	if p.MultiViewport {
		score += scoreMultiViewport
	}
	if p.RayTracingPipeline {
		score += scoreRayTracing
	}
	return score
}

// selectBest returns the index of the highest score, preferring the earliest
// on ties. ok is false when every score is 0.
func selectBest(scores []uint64) (best int, ok bool) {
	best = -1
	var top uint64
	for i, s := range scores {
		if s > top {
			top = s
			best = i
		}
	}
	return best, best >= 0
}

// queryDeviceProfile reads properties, features, memory heaps, queue
// families, extensions and surface support of gpu.
func queryDeviceProfile(gpu vk.PhysicalDevice, surface vk.Surface) (DeviceProfile, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memory)
	memory.Deref()

	p := DeviceProfile{
		Name:                deviceName(props),
		Type:                props.DeviceType,
		MaxImageDimension2D: props.Limits.MaxImageDimension2D,
		GeometryShader:      features.GeometryShader.B(),
		TessellationShader:  features.TessellationShader.B(),
		SamplerAnisotropy:   features.SamplerAnisotropy.B(),
		MultiViewport:       features.MultiViewport.B(),
	}
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		heap := memory.MemoryHeaps[i]
		heap.Deref()
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			p.DeviceLocalBytes += uint64(heap.Size)
		}
	}

	p.QueueFamilies = findQueueFamilies(gpu, surface)

	available, err := DeviceExtensions(gpu)
	if err != nil {
		return p, errors.Wrapf(err, "enumerate extensions of %s", p.Name)
	}
	exts := NewExtensions(RequiredDeviceExtensions, nil, available)
	_, p.MissingExtensions = exts.HasRequired()
	p.RayTracingPipeline = exts.Has(extRayTracingPipeline)

	// Surface support is only meaningful once the swapchain extension exists.
	if len(p.MissingExtensions) == 0 {
		support, err := querySwapchainSupport(gpu, surface)
		if err != nil {
			return p, errors.Wrapf(err, "query surface support of %s", p.Name)
		}
		p.SurfaceFormats = len(support.Formats)
		p.PresentModes = len(support.PresentModes)
	}
	return p, nil
}

// SelectPhysicalDevice enumerates the GPUs visible to instance and returns
// the highest scoring one.
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface) (vk.PhysicalDevice, DeviceProfile, error) {
	var count uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(instance, &count, nil), "enumerate physical devices"); err != nil {
		return nil, DeviceProfile{}, err
	}
	if count == 0 {
		return nil, DeviceProfile{}, newErr(KindUnsupported, "select physical device", ErrNoSuitableGPU)
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := checkResult(vk.EnumeratePhysicalDevices(instance, &count, gpus), "enumerate physical devices"); err != nil {
		return nil, DeviceProfile{}, err
	}
	gpus = gpus[:count]

	profiles := make([]DeviceProfile, len(gpus))
	scores := make([]uint64, len(gpus))
	for i, gpu := range gpus {
		p, err := queryDeviceProfile(gpu, surface)
		if err != nil {
			logging.Warn("device: skipping %s: %v", p.Name, err)
			continue
		}
		profiles[i] = p
		scores[i] = ScoreDevice(p)
		logging.Debug("device: %s (%s) score %d", p.Name, DeviceTypeName(p.Type), scores[i])
		if scores[i] == 0 && logging.IsTraceEnabled() {
			logging.Trace("device: %s rejected: geometry=%v queues=%v missing=%v formats=%d modes=%d",
				p.Name, p.GeometryShader, p.QueueFamilies.Complete(), p.MissingExtensions,
				p.SurfaceFormats, p.PresentModes)
		}
	}

	best, ok := selectBest(scores)
	if !ok {
		return nil, DeviceProfile{}, newErr(KindUnsupported, "select physical device", ErrNoSuitableGPU)
	}
	logging.Info("device: selected %s", profiles[best].Name)
	return gpus[best], profiles[best], nil
}
