package timekill

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

var nullRenderPass = vk.RenderPass(vk.NullHandle)

// CoreRenderPass declares a single subpass rendering into the swapchain
// color image (attachment 0) and a depth buffer (attachment 1).
type CoreRenderPass struct {
	resources *CoreResources
	released  bool
}

// NewCoreRenderPass takes a hold on resources. Create reads the swapchain
// image format and depth format from them.
func NewCoreRenderPass(resources *CoreResources) (*CoreRenderPass, error) {
	if err := resources.Retain(); err != nil {
		return nil, err
	}
	return &CoreRenderPass{resources: resources}, nil
}

// renderPassAttachments describes the color and depth attachments.
func renderPassAttachments(colorFormat, depthFormat vk.Format) []vk.AttachmentDescription {
	return []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
}

// renderPassSubpass binds attachment 0 as color and 1 as depth/stencil.
func renderPassSubpass() vk.SubpassDescription {
	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	return vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: &depthRef,
	}
}

// Create builds the render pass and stores it in the shared resources.
// An existing render pass is destroyed first.
func (c *CoreRenderPass) Create() error {
	r := c.resources
	if r.Device == nil {
		return newErr(KindState, "create render pass", ErrMissingHandle)
	}
	if r.SwapchainImageFormat == vk.FormatUndefined || r.DepthFormat == vk.FormatUndefined {
		return newErr(KindState, "create render pass", ErrSwapchainNotActive)
	}
	c.Destroy()

	attachments := renderPassAttachments(r.SwapchainImageFormat, r.DepthFormat)
	subpasses := []vk.SubpassDescription{renderPassSubpass()}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.MaxUint32,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}}

	var renderPass vk.RenderPass
	ret := vk.CreateRenderPass(r.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &renderPass)
	if err := checkResult(ret, "create render pass"); err != nil {
		return err
	}
	r.RenderPass = renderPass
	logging.Debug("render pass: color %s, depth %s", FormatName(r.SwapchainImageFormat), FormatName(r.DepthFormat))
	return nil
}

// Handle returns the render pass, or a null handle before Create.
func (c *CoreRenderPass) Handle() vk.RenderPass {
	return c.resources.RenderPass
}

// Destroy removes the render pass. It is a no-op when none exists.
func (c *CoreRenderPass) Destroy() {
	r := c.resources
	if r.RenderPass == nullRenderPass {
		return
	}
	if r.Device == nil {
		logging.Warn("render pass: destroy skipped, no logical device")
		return
	}
	vk.DestroyRenderPass(r.Device, r.RenderPass, nil)
	r.RenderPass = nullRenderPass
}

// Release destroys the render pass and drops the hold on the resources.
func (c *CoreRenderPass) Release() {
	if c.released {
		return
	}
	c.Destroy()
	c.released = true
	c.resources.Release()
}
