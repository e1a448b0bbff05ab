//go:build !windows

package micmon

import (
	"errors"

	"go.uber.org/zap"
)

var errUnsupportedPlatform = errors.New("listen properties are only available on Windows")

// coreAudio stub for non-Windows builds. The listen-property pair is a
// Windows audio stack feature; every call reports the subsystem as
// unreachable so the pure logic layers stay buildable and testable anywhere.
type coreAudio struct {
	logger *zap.SugaredLogger
}

func newCoreAudio(logger *zap.SugaredLogger) (*coreAudio, error) {
	logger = logger.Named("coreaudio")
	logger.Warn("Audio endpoints are only available on Windows")

	return &coreAudio{logger: logger}, nil
}

func (c *coreAudio) Release() error {
	return nil
}

func (c *coreAudio) Endpoints(kind EndpointKind) ([]AudioEndpoint, error) {
	return nil, &EnumerationError{Reason: "unsupported platform", Err: errUnsupportedPlatform}
}

func (c *coreAudio) ReadState(endpoint AudioEndpoint) (ListenState, error) {
	return ListenState{}, &PropertyReadError{Device: endpoint.FriendlyName, Err: errUnsupportedPlatform}
}

func (c *coreAudio) WriteState(endpoint AudioEndpoint, write StateWrite) error {
	return &PropertyWriteError{Device: endpoint.FriendlyName, Err: errUnsupportedPlatform}
}
