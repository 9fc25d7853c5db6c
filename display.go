package timekill

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Window is the windowing collaborator. The core reads the framebuffer size
// and asks it for a presentation surface; the native handle never leaves
// the implementation.
type Window interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
	// RequiredInstanceExtensions lists the instance extensions needed to
	// present to this window.
	RequiredInstanceExtensions() []string
	// CreateSurface creates a presentation surface for instance.
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// VulkanSupported reports whether a Vulkan loader and ICD are present.
	VulkanSupported() bool
}

// CoreDisplay adapts a glfw window to Window.
type CoreDisplay struct {
	window *glfw.Window
}

func NewCoreDisplay(window *glfw.Window) *CoreDisplay {
	return &CoreDisplay{window: window}
}

func (d *CoreDisplay) GLFWWindow() *glfw.Window {
	return d.window
}

func (d *CoreDisplay) FramebufferSize() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *CoreDisplay) RequiredInstanceExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

func (d *CoreDisplay) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *CoreDisplay) VulkanSupported() bool {
	return glfw.VulkanSupported()
}
