package timekill

import (
	"reflect"
	"testing"
)

func TestExtensions(t *testing.T) {
	actual := []string{"VK_KHR_surface", "VK_KHR_xcb_surface\x00", extDebugReport}
	exts := NewExtensions(
		[]string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface"},
		[]string{extDebugReport, extPortabilityEnumeration, "VK_KHR_surface"},
		actual)

	if ok, missing := exts.HasRequired(); !ok || len(missing) != 0 {
		t.Errorf("HasRequired() = %v, %v", ok, missing)
	}
	ok, missing := exts.HasWanted()
	if ok || !reflect.DeepEqual(missing, []string{extPortabilityEnumeration}) {
		t.Errorf("HasWanted() = %v, %v", ok, missing)
	}
	if !exts.Has(extDebugReport) || exts.Has(extSwapchain) {
		t.Error("Has reports the wrong availability")
	}

	want := []string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface\x00", extDebugReport + "\x00"}
	if got := exts.GetExtensions(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetExtensions() = %q, want %q", got, want)
	}
}

func TestExtensionsMissingRequired(t *testing.T) {
	exts := NewExtensions(RequiredDeviceExtensions, nil, []string{"VK_KHR_maintenance1"})
	ok, missing := exts.HasRequired()
	if ok || !reflect.DeepEqual(missing, []string{extSwapchain}) {
		t.Errorf("HasRequired() = %v, %v", ok, missing)
	}
}
