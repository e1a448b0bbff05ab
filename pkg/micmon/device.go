package micmon

// EndpointKind distinguishes capture (recording) from render (playback)
// endpoints.
type EndpointKind int

const (
	CaptureEndpoint EndpointKind = iota
	RenderEndpoint
)

func (k EndpointKind) String() string {
	if k == RenderEndpoint {
		return "playback"
	}
	return "recording"
}

// EndpointID is the OS-assigned stable identifier of an audio endpoint.
// IDs are only ever obtained from a DeviceCatalog; they are never built from
// user input, so a resolved ID always refers to a device that existed at
// enumeration time.
type EndpointID string

// AudioEndpoint is one audio device as reported by the OS. Instances are
// snapshots: they are built fresh on every enumeration and never cached across
// invocations, because devices can appear and disappear between runs.
type AudioEndpoint struct {
	ID           EndpointID
	FriendlyName string
	Kind         EndpointKind
	Active       bool
}

// DeviceCatalog enumerates the active audio endpoints known to the OS.
type DeviceCatalog interface {
	// Endpoints returns the currently active endpoints of the requested kind,
	// freshly queried on every call.
	Endpoints(kind EndpointKind) ([]AudioEndpoint, error)

	Release() error
}
