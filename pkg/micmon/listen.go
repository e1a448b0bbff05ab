package micmon

// TargetMode selects what a WriteState call does with the stored playback
// target.
type TargetMode int

const (
	// TargetKeep leaves whatever target the OS currently stores. Used when the
	// caller didn't ask for a playback change, so a previously configured
	// target is never clobbered as a side effect.
	TargetKeep TargetMode = iota

	// TargetSet stores the given render endpoint as the playback target.
	TargetSet

	// TargetDefault clears the stored target so the OS routes the listened
	// audio to the default playback device.
	TargetDefault
)

func (m TargetMode) String() string {
	switch m {
	case TargetSet:
		return "set"
	case TargetDefault:
		return "default"
	default:
		return "keep"
	}
}

// ListenState mirrors the two OS properties read and written as a unit: the
// "Listen to this device" checkbox and the "Playback through this device"
// target. PlaybackTarget is empty when no explicit target is stored. The OS
// keeps the two properties independent: a stored target survives disabling
// listen, and the engine never assumes otherwise.
type ListenState struct {
	Enabled        bool
	PlaybackTarget EndpointID
}

// StateWrite describes one listen-property mutation. Target is only
// meaningful when TargetMode is TargetSet.
type StateWrite struct {
	Enabled    bool
	TargetMode TargetMode
	Target     EndpointID
}

// ListenAccessor reads and writes the listen properties on a capture
// endpoint's property store. Writes mutate persistent OS-level device
// configuration that survives process exit and reboot.
type ListenAccessor interface {
	ReadState(endpoint AudioEndpoint) (ListenState, error)
	WriteState(endpoint AudioEndpoint, write StateWrite) error
}
