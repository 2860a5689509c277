package vkcore

import (
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Kind enumerates the error taxonomy from the core's error-handling
// design: resource-creation APIs fail fast with one of these, never
// partial state.
type Kind int

const (
	KindNone Kind = iota
	KindInitializationFailed
	KindOutOfHostMemory
	KindOutOfDeviceMemory
	KindDeviceLost
	KindSurfaceLost
	KindSwapchainOutOfDate
	KindSwapchainSuboptimal
	KindGraphInvalid
	KindGraphIsCyclic
	KindGraphBakeFailed
	KindResourceNotFound
	KindIncompatibleState
	KindInstanceCreationFailed
	KindNoSuitableGPU
	KindRequiredExtensionMissing
	KindQueueUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInitializationFailed:
		return "InitializationFailed"
	case KindOutOfHostMemory:
		return "OutOfHostMemory"
	case KindOutOfDeviceMemory:
		return "OutOfDeviceMemory"
	case KindDeviceLost:
		return "DeviceLost"
	case KindSurfaceLost:
		return "SurfaceLost"
	case KindSwapchainOutOfDate:
		return "SwapchainOutOfDate"
	case KindSwapchainSuboptimal:
		return "SwapchainSuboptimal"
	case KindGraphInvalid:
		return "GraphInvalid"
	case KindGraphIsCyclic:
		return "GraphIsCyclic"
	case KindGraphBakeFailed:
		return "GraphBakeFailed"
	case KindResourceNotFound:
		return "ResourceNotFound"
	case KindIncompatibleState:
		return "IncompatibleState"
	case KindInstanceCreationFailed:
		return "InstanceCreationFailed"
	case KindNoSuitableGPU:
		return "NoSuitableGPU"
	case KindRequiredExtensionMissing:
		return "RequiredExtensionMissing"
	case KindQueueUnavailable:
		return "QueueUnavailable"
	default:
		return "None"
	}
}

// Error is the typed error every fallible boundary in vkcore returns.
// It carries the originating vk.Result when one exists so callers can
// distinguish recoverable swapchain conditions from fatal ones.
type Error struct {
	Kind   Kind
	Result vk.Result
	Reason string
	frame  string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("vkcore: %s: %s", e.Kind, e.Reason)
	}
	if e.Result != vk.Success {
		return fmt.Sprintf("vkcore: %s: vk.Result=%d at %s", e.Kind, e.Result, e.frame)
	}
	return fmt.Sprintf("vkcore: %s", e.Kind)
}

func newErrorFrame(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

// kindFromResult classifies a raw vk.Result into the error taxonomy.
func kindFromResult(ret vk.Result) Kind {
	switch ret {
	case vk.ErrorOutOfHostMemory:
		return KindOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return KindOutOfDeviceMemory
	case vk.ErrorDeviceLost:
		return KindDeviceLost
	case vk.ErrorSurfaceLost:
		return KindSurfaceLost
	case vk.ErrorOutOfDate:
		return KindSwapchainOutOfDate
	case vk.Suboptimal:
		return KindSwapchainSuboptimal
	default:
		return KindInitializationFailed
	}
}

// newError builds an *Error from a raw vulkan-go result code, or nil
// when the call succeeded. Mirrors the teacher's isError/newError pair
// in errors.go, generalized to carry a typed Kind instead of a bare
// fmt.Errorf string.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return &Error{Kind: kindFromResult(ret), Result: ret, frame: newErrorFrame(2)}
}

func newErrorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// WrapResult exposes newError to sibling packages (descriptor, rpcache,
// rendergraph) so every fallible vk call across the module raises the
// same typed *Error instead of each package growing its own classifier.
func WrapResult(ret vk.Result) error {
	return newError(ret)
}

// NewErrorf exposes newErrorf for sibling packages.
func NewErrorf(kind Kind, format string, args ...interface{}) error {
	return newErrorf(kind, format, args...)
}

// IsRecoverable reports whether err is a swapchain condition the caller
// is expected to handle by rebuilding the swapchain rather than treating
// the frame as failed.
func IsRecoverable(err error) bool {
	var e *Error
	if x, ok := err.(*Error); ok {
		e = x
	} else {
		return false
	}
	return e.Kind == KindSwapchainOutOfDate || e.Kind == KindSwapchainSuboptimal
}

// orPanic runs finalizers and panics with err when err is non-nil;
// checkErr recovers such a panic into *err. Mirrors the teacher's
// orPanic/checkErr in errors.go. Nothing in this module calls either
// one; CommandBuffer recording methods do not check preconditions.
func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
		} else {
			*err = fmt.Errorf("%+v", v)
		}
	}
}
