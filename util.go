package timekill

import (
	"cmp"
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// safeString returns s with a trailing nul, as the C side of the binding
// expects.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// trimString drops the trailing nul added by safeString.
func trimString(s string) string {
	return strings.TrimRight(s, "\x00")
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

func deviceName(props vk.PhysicalDeviceProperties) string {
	return vk.ToString(props.DeviceName[:])
}
