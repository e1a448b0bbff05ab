package micmon

import (
	"errors"
	"fmt"
	"strings"

	ole "github.com/go-ole/go-ole"
)

// Access-denied HRESULTs surfaced by the property store when the process
// lacks elevation. E_ACCESSDENIED comes from the device API itself,
// STG_E_ACCESSDENIED from the storage layer underneath it.
const (
	hresultAccessDenied    = 0x80070005
	hresultStgAccessDenied = 0x80030005
)

// EnumerationError means the OS audio subsystem could not be reached at all
// (service down, COM failure, unsupported platform). Always fatal, never
// retried.
type EnumerationError struct {
	Reason string
	Err    error
}

func (e *EnumerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio subsystem unreachable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio subsystem unreachable: %s", e.Reason)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// DeviceNotFoundError means no active endpoint carries the requested friendly
// name. Matching is exact and case-sensitive, so the message points the user
// at the listing output they can copy verbatim.
type DeviceNotFoundError struct {
	Name string
	Kind EndpointKind
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("%s device not found: %q (run list-devices and copy the exact name)", e.Kind, e.Name)
}

// AmbiguousDeviceError means more than one active endpoint carries the
// requested friendly name. The OS does not guarantee name uniqueness, and
// silently picking one would risk a property write on the wrong device.
type AmbiguousDeviceError struct {
	Name string
	Kind EndpointKind
	IDs  []string
}

func (e *AmbiguousDeviceError) Error() string {
	return fmt.Sprintf("%s device name %q matches %d endpoints: %s",
		e.Kind, e.Name, len(e.IDs), strings.Join(e.IDs, ", "))
}

// PropertyReadError wraps a failure to open or decode an endpoint's property
// store in read mode.
type PropertyReadError struct {
	Device string
	Err    error
}

func (e *PropertyReadError) Error() string {
	return fmt.Sprintf("read listen properties of %q: %v", e.Device, e.Err)
}

func (e *PropertyReadError) Unwrap() error { return e.Err }

// PropertyWriteError wraps a failure to mutate an endpoint's property store.
// The raw OS code is preserved so the caller can distinguish an access denial
// (missing elevation) from other failures.
type PropertyWriteError struct {
	Device string
	Err    error
}

func (e *PropertyWriteError) Error() string {
	return fmt.Sprintf("write listen properties of %q: %v", e.Device, e.Err)
}

func (e *PropertyWriteError) Unwrap() error { return e.Err }

// IsAccessDenied reports whether the wrapped OS code indicates the process
// lacks the privilege to write device properties.
func (e *PropertyWriteError) IsAccessDenied() bool {
	return isAccessDenied(e.Err)
}

func isAccessDenied(err error) bool {
	var oleErr *ole.OleError
	if !errors.As(err, &oleErr) {
		return false
	}

	code := uint32(oleErr.Code())
	return code == hresultAccessDenied || code == hresultStgAccessDenied
}

// MissingMicrophoneError means neither the config file nor the invocation's
// overrides named a microphone.
type MissingMicrophoneError struct{}

func (e *MissingMicrophoneError) Error() string {
	return "no microphone configured: pass --microphone or run set-microphone first"
}
