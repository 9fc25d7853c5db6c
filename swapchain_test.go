package timekill

import (
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"preferred listed later", []vk.SurfaceFormat{unorm, rgba, srgb}, srgb},
		{"fallback to first", []vk.SurfaceFormat{rgba, unorm}, rgba},
		{"single", []vk.SurfaceFormat{srgb}, srgb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseSurfaceFormat(tt.formats); got != tt.want {
				t.Errorf("chooseSurfaceFormat = %s, want %s", FormatName(got.Format), FormatName(tt.want.Format))
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes []vk.PresentMode
		want  vk.PresentMode
	}{
		{[]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{[]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeFifo},
		{[]vk.PresentMode{vk.PresentModeImmediate}, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := choosePresentMode(tt.modes); got != tt.want {
			t.Errorf("choosePresentMode(%v) = %s, want %s", tt.modes, PresentModeName(got), PresentModeName(tt.want))
		}
	}
}

func TestChooseExtent(t *testing.T) {
	undefined := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 1280, Height: 1280},
	}
	fixed := undefined
	fixed.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}

	tests := []struct {
		name          string
		caps          vk.SurfaceCapabilities
		width, height int
		want          vk.Extent2D
	}{
		{"surface defines extent", fixed, 1024, 768, vk.Extent2D{Width: 800, Height: 600}},
		{"within range", undefined, 1024, 768, vk.Extent2D{Width: 1024, Height: 768}},
		{"clamped to maximum", undefined, 1920, 1080, vk.Extent2D{Width: 1280, Height: 1080}},
		{"clamped to minimum", undefined, 0, -5, vk.Extent2D{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseExtent(tt.caps, tt.width, tt.height); got != tt.want {
				t.Errorf("chooseExtent = %dx%d, want %dx%d", got.Width, got.Height, tt.want.Width, tt.want.Height)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{2, 8, 3},
		{2, 0, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		caps := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := chooseImageCount(caps); got != tt.want {
			t.Errorf("chooseImageCount(min %d, max %d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestFindDepthFormat(t *testing.T) {
	only := func(formats ...vk.Format) func(vk.Format) bool {
		return func(f vk.Format) bool {
			for _, s := range formats {
				if f == s {
					return true
				}
			}
			return false
		}
	}

	got, err := findDepthFormat(DepthFormatCandidates, only(vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint))
	if err != nil {
		t.Fatalf("findDepthFormat: %v", err)
	}
	if got != vk.FormatD24UnormS8Uint {
		t.Errorf("findDepthFormat = %s, want the first supported candidate D24 UNORM S8 UINT", FormatName(got))
	}

	_, err = findDepthFormat(DepthFormatCandidates, only())
	if !errors.Is(err, ErrNoDepthFormat) || KindOf(err) != KindUnsupported {
		t.Errorf("err = %v, want unsupported ErrNoDepthFormat", err)
	}
}

func TestCreateImageViewsRollsBack(t *testing.T) {
	images := make([]vk.Image, 4)
	var created, destroyed []vk.ImageView
	n := 0
	create := func(vk.Image) (vk.ImageView, error) {
		if n == 2 {
			return vk.NullImageView, errors.New("out of memory")
		}
		n++
		var v vk.ImageView
		created = append(created, v)
		return v, nil
	}
	destroy := func(v vk.ImageView) { destroyed = append(destroyed, v) }

	views, err := createImageViews(images, create, destroy)
	if err == nil {
		t.Fatal("expected an error from the third view")
	}
	if views != nil {
		t.Errorf("got %d views after failure", len(views))
	}
	if !reflect.DeepEqual(created, destroyed) || len(destroyed) != 2 {
		t.Errorf("destroyed %d of %d created views", len(destroyed), len(created))
	}
}

func TestCreateImageViews(t *testing.T) {
	images := make([]vk.Image, 3)
	views, err := createImageViews(images,
		func(vk.Image) (vk.ImageView, error) { return vk.NullImageView, nil },
		func(vk.ImageView) { t.Error("destroy called on success") })
	if err != nil {
		t.Fatalf("createImageViews: %v", err)
	}
	if len(views) != len(images) {
		t.Errorf("got %d views, want %d", len(views), len(images))
	}
}

func TestSwapchainWithoutDevice(t *testing.T) {
	r := NewCoreResources(nil)
	sc, err := NewCoreSwapchain(r, &fakeWindow{width: 640, height: 480})
	if err != nil {
		t.Fatalf("NewCoreSwapchain: %v", err)
	}
	if r.Refs() != 2 {
		t.Errorf("Refs() = %d, want 2 while the swapchain holds the table", r.Refs())
	}

	if err := sc.Create(); KindOf(err) != KindState || !errors.Is(err, ErrMissingHandle) {
		t.Errorf("Create without handles = %v, want state ErrMissingHandle", err)
	}
	for i := 0; i < 2; i++ {
		if err := sc.Destroy(); err != nil {
			t.Errorf("Destroy #%d = %v, want nil", i+1, err)
		}
	}
	if sc.Active() {
		t.Error("swapchain active without a device")
	}

	if err := sc.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if err := sc.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if r.Refs() != 1 {
		t.Errorf("Refs() = %d after release, want 1", r.Refs())
	}
}

func TestResetSwapchainClearsDerivedState(t *testing.T) {
	r := NewCoreResources(nil)
	r.SwapchainImageFormat = vk.FormatB8g8r8a8Srgb
	r.SwapchainExtent = vk.Extent2D{Width: 800, Height: 600}
	r.SwapchainImages = make([]vk.Image, 3)
	r.SwapchainImageViews = make([]vk.ImageView, 3)
	r.DepthFormat = vk.FormatD32Sfloat

	r.resetSwapchain()

	if r.SwapchainImageFormat != vk.FormatUndefined || r.DepthFormat != vk.FormatUndefined {
		t.Errorf("formats left as %s / %s", FormatName(r.SwapchainImageFormat), FormatName(r.DepthFormat))
	}
	if r.SwapchainExtent.Width != 0 || r.SwapchainExtent.Height != 0 {
		t.Errorf("extent left as %dx%d", r.SwapchainExtent.Width, r.SwapchainExtent.Height)
	}
	if r.SwapchainImages != nil || r.SwapchainImageViews != nil || r.Swapchain != vk.NullSwapchain {
		t.Error("swapchain handles left behind")
	}
}
