package micmon

import (
	"errors"
	"fmt"
	"testing"

	ole "github.com/go-ole/go-ole"
	"github.com/stretchr/testify/require"
)

var errFakeDenied = errors.New("access denied")

func TestPropertyWriteErrorDetectsAccessDenied(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		denied bool
	}{
		{name: "E_ACCESSDENIED", err: ole.NewError(0x80070005), denied: true},
		{name: "STG_E_ACCESSDENIED", err: ole.NewError(0x80030005), denied: true},
		{name: "wrapped denial", err: fmt.Errorf("open store: %w", ole.NewError(0x80070005)), denied: true},
		{name: "unrelated hresult", err: ole.NewError(0x80070002), denied: false},
		{name: "plain error", err: errFakeDenied, denied: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			writeErr := &PropertyWriteError{Device: "Mic", Err: tc.err}
			require.Equal(t, tc.denied, writeErr.IsAccessDenied())
		})
	}
}

func TestPropertyWriteErrorPreservesRawCode(t *testing.T) {
	writeErr := &PropertyWriteError{Device: "Mic", Err: ole.NewError(0x80070005)}

	var oleErr *ole.OleError
	require.ErrorAs(t, writeErr, &oleErr)
	require.Equal(t, uintptr(0x80070005), oleErr.Code())
	require.Contains(t, writeErr.Error(), "Mic")
}

func TestErrorMessagesNameTheDevice(t *testing.T) {
	notFound := &DeviceNotFoundError{Name: "Ghost Mic", Kind: CaptureEndpoint}
	require.Contains(t, notFound.Error(), `"Ghost Mic"`)
	require.Contains(t, notFound.Error(), "recording")

	ambig := &AmbiguousDeviceError{Name: "Speakers", Kind: RenderEndpoint, IDs: []string{"a", "b"}}
	require.Contains(t, ambig.Error(), "playback")
	require.Contains(t, ambig.Error(), "2 endpoints")

	readErr := &PropertyReadError{Device: "Mic", Err: errFakeDenied}
	require.Contains(t, readErr.Error(), `"Mic"`)
	require.ErrorIs(t, readErr, errFakeDenied)
}

func TestEnumerationErrorWrapsCause(t *testing.T) {
	cause := errors.New("service down")
	enumErr := &EnumerationError{Reason: "enumerate recording endpoints", Err: cause}

	require.ErrorIs(t, enumErr, cause)
	require.Contains(t, enumErr.Error(), "audio subsystem unreachable")
}
