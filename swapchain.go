package timekill

import (
	"math"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

// DepthFormatCandidates are probed in order; the first supported as an
// optimal-tiling depth/stencil attachment wins.
var DepthFormatCandidates = []vk.Format{
	vk.FormatD16Unorm,
	vk.FormatD16UnormS8Uint,
	vk.FormatD24UnormS8Uint,
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatS8Uint,
}

// SwapchainSupportDetails is what a surface offers on one physical device.
type SwapchainSupportDetails struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(gpu vk.PhysicalDevice, surface vk.Surface) (SwapchainSupportDetails, error) {
	var details SwapchainSupportDetails

	var caps vk.SurfaceCapabilities
	if err := newError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return details, errors.Wrap(err, "surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	details.Capabilities = caps

	var formatCount uint32
	if err := newError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)); err != nil {
		return details, errors.Wrap(err, "surface formats")
	}
	if formatCount > 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := newError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)); err != nil {
			return details, errors.Wrap(err, "surface formats")
		}
		for _, f := range formats[:formatCount] {
			f.Deref()
			details.Formats = append(details.Formats, f)
		}
	}

	var modeCount uint32
	if err := newError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)); err != nil {
		return details, errors.Wrap(err, "present modes")
	}
	if modeCount > 0 {
		modes := make([]vk.PresentMode, modeCount)
		if err := newError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, modes)); err != nil {
			return details, errors.Wrap(err, "present modes")
		}
		details.PresentModes = modes[:modeCount]
	}
	return details, nil
}

// chooseSurfaceFormat prefers B8G8R8A8 sRGB with a nonlinear sRGB color
// space and otherwise keeps the first format the driver listed.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent when it is defined and
// otherwise clamps the framebuffer size into the supported range.
func chooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(uint32(max(width, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(max(height, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum, bounded by the
// maximum when the surface has one.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// findDepthFormat returns the first candidate accepted by supported.
func findDepthFormat(candidates []vk.Format, supported func(vk.Format) bool) (vk.Format, error) {
	for _, f := range candidates {
		if supported(f) {
			return f, nil
		}
	}
	return vk.FormatUndefined, newErr(KindUnsupported, "find depth format", ErrNoDepthFormat)
}

// createImageViews builds one view per image. If any view fails the views
// already built are destroyed before returning the error.
func createImageViews(images []vk.Image, create func(vk.Image) (vk.ImageView, error), destroy func(vk.ImageView)) ([]vk.ImageView, error) {
	views := make([]vk.ImageView, 0, len(images))
	for i, img := range images {
		view, err := create(img)
		if err != nil {
			for _, v := range views {
				destroy(v)
			}
			return nil, errors.Wrapf(err, "image view %d of %d", i, len(images))
		}
		views = append(views, view)
	}
	return views, nil
}

// CoreSwapchain negotiates and owns the swapchain and its image views. It
// writes the image format, extent, images, views and depth format into the
// shared resources.
type CoreSwapchain struct {
	resources   *CoreResources
	window      Window
	presentMode vk.PresentMode
	active      bool
	released    bool
}

// NewCoreSwapchain takes a hold on resources. Call Create to build the
// swapchain and Release when done with it.
func NewCoreSwapchain(resources *CoreResources, window Window) (*CoreSwapchain, error) {
	if err := resources.Retain(); err != nil {
		return nil, err
	}
	return &CoreSwapchain{resources: resources, window: window}, nil
}

// Active reports whether a swapchain currently exists.
func (s *CoreSwapchain) Active() bool {
	return s.active
}

func (s *CoreSwapchain) PresentMode() vk.PresentMode {
	return s.presentMode
}

// Create builds the swapchain, its image views and picks a depth format.
// An active swapchain is destroyed first.
func (s *CoreSwapchain) Create() error {
	r := s.resources
	if r.PhysicalDevice == nil || r.Surface == vk.NullSurface || r.Device == nil {
		return newErr(KindState, "create swapchain", ErrMissingHandle)
	}
	if s.active {
		if err := s.Destroy(); err != nil {
			return err
		}
	}

	support, err := querySwapchainSupport(r.PhysicalDevice, r.Surface)
	if err != nil {
		return newErr(KindCreation, "query swapchain support", err)
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return newErr(KindUnsupported, "query swapchain support", ErrNoSurfaceFormats)
	}
	if logging.IsTraceEnabled() {
		for _, f := range support.Formats {
			logging.Trace("swapchain: surface format %s / %s", FormatName(f.Format), ColorSpaceName(f.ColorSpace))
		}
		for _, m := range support.PresentModes {
			logging.Trace("swapchain: present mode %s", PresentModeName(m))
		}
	}

	caps := support.Capabilities
	format := chooseSurfaceFormat(support.Formats)
	mode := choosePresentMode(support.PresentModes)
	width, height := s.window.FramebufferSize()
	extent := chooseExtent(caps, width, height)
	imageCount := chooseImageCount(caps)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          r.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if r.SeparatePresentQueue() {
		families := r.QueueFamilies.Unique()
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	var swapchain vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(r.Device, &info, nil, &swapchain), "create swapchain"); err != nil {
		return err
	}
	if swapchain == vk.NullSwapchain {
		return newErr(KindCreation, "create swapchain", ErrNullHandle)
	}

	var count uint32
	ret := vk.GetSwapchainImages(r.Device, swapchain, &count, nil)
	images := make([]vk.Image, count)
	if ret == vk.Success {
		ret = vk.GetSwapchainImages(r.Device, swapchain, &count, images)
	}
	if err := checkResult(ret, "get swapchain images"); err != nil {
		vk.DestroySwapchain(r.Device, swapchain, nil)
		return err
	}
	images = images[:count]

	views, err := createImageViews(images,
		func(img vk.Image) (vk.ImageView, error) { return s.createImageView(img, format.Format) },
		func(v vk.ImageView) { vk.DestroyImageView(r.Device, v, nil) })
	if err != nil {
		vk.DestroySwapchain(r.Device, swapchain, nil)
		return newErr(KindCreation, "create image views", err)
	}

	depth, err := findDepthFormat(DepthFormatCandidates, func(f vk.Format) bool {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(r.PhysicalDevice, f, &props)
		props.Deref()
		feature := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
		return props.OptimalTilingFeatures&feature == feature
	})
	if err != nil {
		for _, v := range views {
			vk.DestroyImageView(r.Device, v, nil)
		}
		vk.DestroySwapchain(r.Device, swapchain, nil)
		return err
	}

	r.Swapchain = swapchain
	r.SwapchainImageFormat = format.Format
	r.SwapchainColorSpace = format.ColorSpace
	r.SwapchainExtent = extent
	r.SwapchainImages = images
	r.SwapchainImageViews = views
	r.DepthFormat = depth
	s.presentMode = mode
	s.active = true

	logging.Debug("swapchain: %dx%d, %d images, format %s, present mode %s, depth %s",
		extent.Width, extent.Height, len(images), FormatName(format.Format),
		PresentModeName(mode), FormatName(depth))
	return nil
}

func (s *CoreSwapchain) createImageView(img vk.Image, format vk.Format) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(s.resources.Device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil, &view)
	if err := newError(ret); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// Recreate rebuilds the swapchain, for example after a resize.
func (s *CoreSwapchain) Recreate() error {
	return s.Create()
}

// Destroy waits for the device to go idle, then destroys the image views and
// the swapchain. Calling it without an active swapchain is a no-op.
func (s *CoreSwapchain) Destroy() error {
	r := s.resources
	if r.Device == nil {
		logging.Warn("swapchain: destroy skipped, no logical device")
		return nil
	}
	if !s.active {
		logging.Debug("swapchain: destroy skipped, nothing to destroy")
		return nil
	}
	if err := checkResult(vk.DeviceWaitIdle(r.Device), "wait device idle"); err != nil {
		return err
	}
	for _, v := range r.SwapchainImageViews {
		vk.DestroyImageView(r.Device, v, nil)
	}
	if r.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(r.Device, r.Swapchain, nil)
	}
	r.resetSwapchain()
	s.active = false
	return nil
}

// Release destroys the swapchain and drops the hold on the resources.
func (s *CoreSwapchain) Release() error {
	if s.released {
		return nil
	}
	err := s.Destroy()
	s.released = true
	s.resources.Release()
	return err
}
