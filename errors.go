package timekill

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/timekill/spirv"
)

// ErrorKind groups failures by how a caller can react to them.
type ErrorKind int

const (
	// KindUnsupported means the platform, driver or hardware lacks a required capability.
	KindUnsupported ErrorKind = iota + 1
	// KindCreation means the driver rejected an object creation call.
	KindCreation
	// KindValidation means input data (shader files, binaries) is structurally invalid.
	KindValidation
	// KindState means an operation ran without a handle it depends on.
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindCreation:
		return "creation"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	}
	return "unknown"
}

var (
	ErrUnsupported        = errors.New("vulkan is not supported on this platform")
	ErrLayersUnavailable  = errors.New("requested validation layers are not available")
	ErrDebugEntryPoint    = errors.New("debug report entry point could not be resolved")
	ErrNoSuitableGPU      = errors.New("no suitable GPU")
	ErrQueueFamilies      = errors.New("required queue families not found")
	ErrNoSurfaceFormats   = errors.New("surface reports no formats or present modes")
	ErrNoDepthFormat      = errors.New("no suitable depth format")
	ErrNullHandle         = errors.New("driver returned a null handle")
	ErrMissingHandle      = errors.New("required handle is not set")
	ErrUnknownShaderType  = errors.New("unknown shader type")
	ErrDuplicateStage     = errors.New("duplicate shader stage")
	ErrInvalidSpirvSize   = spirv.ErrUnalignedByteCount
	ErrDuplicateLocation  = spirv.ErrDuplicateLocation
	ErrUnsupportedAttrib  = errors.New("unsupported vertex attribute type")
	ErrNoShaderBinaries   = errors.New("no shader binaries")
	ErrResourcesReleased  = errors.New("resources already released")
	ErrMissingExtensions  = errors.New("required extensions are not available")
	ErrSwapchainNotActive = errors.New("swapchain is not active")
)

// Error carries the kind of failure, the operation that failed and, when
// relevant, the object or file involved.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newPathErr(kind ErrorKind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf reports the ErrorKind of err, or 0 when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// vkError is a non-success driver result.
type vkError struct {
	ret vk.Result
}

func (e vkError) Error() string {
	return fmt.Sprintf("vulkan error: %s (%d)", vk.Error(e.ret).Error(), e.ret)
}

// Result extracts the driver result from err, if one is wrapped.
func Result(err error) (vk.Result, bool) {
	var e vkError
	if errors.As(err, &e) {
		return e.ret, true
	}
	return vk.Success, false
}

// newError converts a driver result into a stack-annotated error. It
// returns nil for vk.Success.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.WithStack(vkError{ret: ret})
}

// checkResult wraps a failed driver result as a creation error for op.
func checkResult(ret vk.Result, op string) error {
	if err := newError(ret); err != nil {
		return newErr(KindCreation, op, err)
	}
	return nil
}
