package timekill

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func suitableProfile() DeviceProfile {
	return DeviceProfile{
		Name:           "test gpu",
		Type:           vk.PhysicalDeviceTypeIntegratedGpu,
		GeometryShader: true,
		QueueFamilies:  QueueFamilyIndices{Graphics: u32(0), Present: u32(0)},
		SurfaceFormats: 2,
		PresentModes:   1,
	}
}

func TestScoreDevice(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DeviceProfile)
		want   uint64
	}{
		{"baseline", func(p *DeviceProfile) {}, 0},
		{"discrete", func(p *DeviceProfile) { p.Type = vk.PhysicalDeviceTypeDiscreteGpu }, scoreDiscrete},
		{"image dimension", func(p *DeviceProfile) { p.MaxImageDimension2D = 16384 }, 16384},
		{"device memory", func(p *DeviceProfile) { p.DeviceLocalBytes = 8 << 30 }, 8192},
		{"tessellation", func(p *DeviceProfile) { p.TessellationShader = true }, scoreTessellation},
		{"anisotropy", func(p *DeviceProfile) { p.SamplerAnisotropy = true }, scoreAnisotropy},
		{"multi viewport", func(p *DeviceProfile) { p.MultiViewport = true }, scoreMultiViewport},
		{"ray tracing", func(p *DeviceProfile) { p.RayTracingPipeline = true }, scoreRayTracing},
		{"no geometry shader", func(p *DeviceProfile) {
			p.GeometryShader = false
			p.Type = vk.PhysicalDeviceTypeDiscreteGpu
		}, 0},
		{"no present family", func(p *DeviceProfile) {
			p.QueueFamilies.Present = nil
			p.MaxImageDimension2D = 4096
		}, 0},
		{"missing swapchain", func(p *DeviceProfile) {
			p.MissingExtensions = []string{extSwapchain}
			p.MaxImageDimension2D = 4096
		}, 0},
		{"no surface formats", func(p *DeviceProfile) {
			p.SurfaceFormats = 0
			p.MaxImageDimension2D = 4096
		}, 0},
		{"no present modes", func(p *DeviceProfile) {
			p.PresentModes = 0
			p.MaxImageDimension2D = 4096
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := suitableProfile()
			tt.modify(&p)
			if got := ScoreDevice(p); got != tt.want {
				t.Errorf("ScoreDevice = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreDeviceCombined(t *testing.T) {
	p := suitableProfile()
	p.Type = vk.PhysicalDeviceTypeDiscreteGpu
	p.MaxImageDimension2D = 32768
	p.DeviceLocalBytes = 12 * bytesPerMebibyte * 1024
	p.TessellationShader = true
	p.SamplerAnisotropy = true
	p.MultiViewport = true

	want := uint64(1000 + 32768 + 12288 + 500 + 500 + 500)
	if got := ScoreDevice(p); got != want {
		t.Errorf("ScoreDevice = %d, want %d", got, want)
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name   string
		scores []uint64
		want   int
		ok     bool
	}{
		{"empty", nil, -1, false},
		{"all rejected", []uint64{0, 0, 0}, -1, false},
		{"single", []uint64{10}, 0, true},
		{"highest wins", []uint64{10, 3000, 200}, 1, true},
		{"tie keeps first", []uint64{0, 500, 500}, 1, true},
		{"rejected first", []uint64{0, 1}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectBest(tt.scores)
			if got != tt.want || ok != tt.ok {
				t.Errorf("selectBest(%v) = %d, %v; want %d, %v", tt.scores, got, ok, tt.want, tt.ok)
			}
		})
	}
}
