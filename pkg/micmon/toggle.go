package micmon

import (
	"go.uber.org/zap"
)

// Action is the requested listen-state transition.
type Action int

const (
	ActionOn Action = iota
	ActionOff
	ActionToggle
)

func (a Action) String() string {
	switch a {
	case ActionOn:
		return "on"
	case ActionOff:
		return "off"
	default:
		return "toggle"
	}
}

// toggleEngine turns an Action into a single listen-property write.
type toggleEngine struct {
	logger   *zap.SugaredLogger
	accessor ListenAccessor
}

func newToggleEngine(logger *zap.SugaredLogger, accessor ListenAccessor) *toggleEngine {
	return &toggleEngine{
		logger:   logger.Named("toggle"),
		accessor: accessor,
	}
}

// Apply reads mic's current listen state, computes the transition and commits
// it, returning the state as re-read after the write.
//
// playback may be nil and useDefault forces the system default playback
// device. A playback request only takes effect when the transition enables
// listening; disabling never touches the stored target, matching how the OS
// keeps the two properties independent. Repeating the same action with the
// same playback request is idempotent.
func (t *toggleEngine) Apply(action Action, mic AudioEndpoint, playback *AudioEndpoint, useDefault bool) (ListenState, error) {
	current, err := t.accessor.ReadState(mic)
	if err != nil {
		return ListenState{}, err
	}

	var enable bool
	switch action {
	case ActionOn:
		enable = true
	case ActionOff:
		enable = false
	case ActionToggle:
		enable = !current.Enabled
	}

	write := StateWrite{Enabled: enable, TargetMode: TargetKeep}
	if enable {
		switch {
		case useDefault:
			write.TargetMode = TargetDefault
		case playback != nil:
			write.TargetMode = TargetSet
			write.Target = playback.ID
		}
	}

	t.logger.Debugw("Applying listen state",
		"device", mic.FriendlyName,
		"action", action,
		"wasEnabled", current.Enabled,
		"enable", enable,
		"targetMode", write.TargetMode)

	if err := t.accessor.WriteState(mic, write); err != nil {
		return ListenState{}, err
	}

	committed, err := t.accessor.ReadState(mic)
	if err != nil {
		return ListenState{}, err
	}

	return committed, nil
}
