package timekill

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/logging"
)

// debugReportFlags enables errors, warnings and the verbose categories.
var debugReportFlags = vk.DebugReportFlags(vk.DebugReportErrorBit |
	vk.DebugReportWarningBit |
	vk.DebugReportPerformanceWarningBit |
	vk.DebugReportInformationBit |
	vk.DebugReportDebugBit)

// debugSeverity names the most severe flag set in flags.
func debugSeverity(flags vk.DebugReportFlags) string {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return "error"
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return "warning"
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return "performance"
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return "debug"
	}
	return "info"
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch debugSeverity(flags) {
	case "error":
		logging.Error("validation: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case "warning":
		logging.Warn("validation: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case "performance":
		logging.Warn("validation (performance): [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case "debug":
		logging.Trace("validation: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		logging.Debug("validation: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

// debugCallbackResult maps the result of vkCreateDebugReportCallbackEXT. The
// binding resolves the entry point itself and reports vk.NotReady when the
// instance does not expose it.
func debugCallbackResult(ret vk.Result) error {
	if ret == vk.NotReady {
		return newErr(KindUnsupported, "create debug callback", ErrDebugEntryPoint)
	}
	return checkResult(ret, "create debug callback")
}

// createDebugCallback registers dbgCallbackFunc on instance.
func createDebugCallback(instance vk.Instance) (vk.DebugReportCallback, error) {
	var cb vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       debugReportFlags,
		PfnCallback: dbgCallbackFunc,
	}, nil, &cb)
	if err := debugCallbackResult(ret); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return cb, nil
}
