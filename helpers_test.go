package timekill

import (
	vk "github.com/vulkan-go/vulkan"
)

// fakeWindow stands in for a glfw window in tests that never reach the
// driver.
type fakeWindow struct {
	width, height int
	supported     bool
	extensions    []string
	surfaceCalls  int
}

func (w *fakeWindow) FramebufferSize() (int, int) { return w.width, w.height }

func (w *fakeWindow) RequiredInstanceExtensions() []string { return w.extensions }

func (w *fakeWindow) CreateSurface(vk.Instance) (vk.Surface, error) {
	w.surfaceCalls++
	return vk.NullSurface, nil
}

func (w *fakeWindow) VulkanSupported() bool { return w.supported }

func u32(v uint32) *uint32 { return &v }
