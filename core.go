package timekill

import (
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

// CoreResources is the table of Vulkan handles shared by the context,
// swapchain, render pass and pipeline. Each field is written by exactly one
// component; the others only read it. The table holds no cleanup logic of
// its own: the owner that creates it registers a release hook, which runs
// once the last holder calls Release.
type CoreResources struct {
	Instance       vk.Instance
	DebugCallback  vk.DebugReportCallback
	Surface        vk.Surface
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	QueueFamilies QueueFamilyIndices

	Swapchain            vk.Swapchain
	SwapchainImageFormat vk.Format
	SwapchainColorSpace  vk.ColorSpace
	SwapchainExtent      vk.Extent2D
	SwapchainImages      []vk.Image
	SwapchainImageViews  []vk.ImageView
	DepthFormat          vk.Format

	RenderPass     vk.RenderPass
	Pipeline       vk.Pipeline
	PipelineLayout vk.PipelineLayout

	refs          atomic.Int32
	onLastRelease func()
}

// NewCoreResources returns an empty table holding one reference. onRelease
// runs when the reference count drops to zero.
func NewCoreResources(onRelease func()) *CoreResources {
	r := &CoreResources{
		Surface:              vk.NullSurface,
		DebugCallback:        vk.NullDebugReportCallback,
		Swapchain:            vk.NullSwapchain,
		RenderPass:           nullRenderPass,
		Pipeline:             vk.NullPipeline,
		PipelineLayout:       vk.NullPipelineLayout,
		SwapchainImageFormat: vk.FormatUndefined,
		DepthFormat:          vk.FormatUndefined,
		onLastRelease:        onRelease,
	}
	r.refs.Store(1)
	return r
}

// Retain adds a holder. It fails once the table has been released.
func (r *CoreResources) Retain() error {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return newErr(KindState, "retain resources", ErrResourcesReleased)
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops a holder. The last release runs the registered hook.
// Releasing a table that is already released is a no-op.
func (r *CoreResources) Release() {
	for {
		n := r.refs.Load()
		if n <= 0 {
			logging.Debug("resources: release after final release ignored")
			return
		}
		if r.refs.CompareAndSwap(n, n-1) {
			if n == 1 && r.onLastRelease != nil {
				r.onLastRelease()
			}
			return
		}
	}
}

// Refs reports the number of live holders.
func (r *CoreResources) Refs() int {
	return int(r.refs.Load())
}

// resetSwapchain clears every swapchain-derived field so a destroyed
// swapchain leaves no format, extent or depth format behind.
func (r *CoreResources) resetSwapchain() {
	r.Swapchain = vk.NullSwapchain
	r.SwapchainImageFormat = vk.FormatUndefined
	r.SwapchainColorSpace = vk.ColorSpaceSrgbNonlinear
	r.SwapchainExtent = vk.Extent2D{}
	r.SwapchainImages = nil
	r.SwapchainImageViews = nil
	r.DepthFormat = vk.FormatUndefined
}

// HasDevice reports whether the logical device is live.
func (r *CoreResources) HasDevice() bool {
	return r.Device != nil
}

// SeparatePresentQueue is true when presentation uses its own family.
func (r *CoreResources) SeparatePresentQueue() bool {
	return r.QueueFamilies.Complete() && *r.QueueFamilies.Graphics != *r.QueueFamilies.Present
}
