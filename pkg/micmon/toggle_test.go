package micmon

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testMic      = AudioEndpoint{ID: "mic-1", FriendlyName: "Mic", Kind: CaptureEndpoint, Active: true}
	testPlayback = AudioEndpoint{ID: "render-1", FriendlyName: "Speakers", Kind: RenderEndpoint, Active: true}
)

func newTestEngine(accessor ListenAccessor) *toggleEngine {
	return newToggleEngine(zap.NewNop().Sugar(), accessor)
}

func TestApplyOnWithPlaybackSetsTarget(t *testing.T) {
	accessor := newFakeAccessor()
	engine := newTestEngine(accessor)

	state, err := engine.Apply(ActionOn, testMic, &testPlayback, false)
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-1"), state.PlaybackTarget)

	require.Len(t, accessor.writes, 1)
	require.Equal(t, TargetSet, accessor.writes[0].TargetMode)
}

func TestApplyOnWithoutPlaybackKeepsTarget(t *testing.T) {
	accessor := newFakeAccessor()
	accessor.states[testMic.ID] = ListenState{Enabled: false, PlaybackTarget: "render-9"}
	engine := newTestEngine(accessor)

	state, err := engine.Apply(ActionOn, testMic, nil, false)
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-9"), state.PlaybackTarget)
	require.Equal(t, TargetKeep, accessor.writes[0].TargetMode)
}

func TestApplyOnWithDefaultPlaybackClearsTarget(t *testing.T) {
	accessor := newFakeAccessor()
	accessor.states[testMic.ID] = ListenState{Enabled: false, PlaybackTarget: "render-9"}
	engine := newTestEngine(accessor)

	state, err := engine.Apply(ActionOn, testMic, nil, true)
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Empty(t, state.PlaybackTarget)
	require.Equal(t, TargetDefault, accessor.writes[0].TargetMode)
}

func TestApplyOffNeverTouchesTarget(t *testing.T) {
	accessor := newFakeAccessor()
	accessor.states[testMic.ID] = ListenState{Enabled: true, PlaybackTarget: "render-9"}
	engine := newTestEngine(accessor)

	// even with a playback request, a disable must not rewrite the target
	state, err := engine.Apply(ActionOff, testMic, &testPlayback, false)
	require.NoError(t, err)
	require.False(t, state.Enabled)
	require.Equal(t, EndpointID("render-9"), state.PlaybackTarget)
	require.Equal(t, TargetKeep, accessor.writes[0].TargetMode)
}

func TestApplyToggleFlipsEnabled(t *testing.T) {
	accessor := newFakeAccessor()
	engine := newTestEngine(accessor)

	state, err := engine.Apply(ActionToggle, testMic, nil, false)
	require.NoError(t, err)
	require.True(t, state.Enabled)

	state, err = engine.Apply(ActionToggle, testMic, nil, false)
	require.NoError(t, err)
	require.False(t, state.Enabled)
}

func TestApplyToggleOnUsesPlaybackRequest(t *testing.T) {
	accessor := newFakeAccessor()
	engine := newTestEngine(accessor)

	state, err := engine.Apply(ActionToggle, testMic, &testPlayback, false)
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-1"), state.PlaybackTarget)
}

func TestApplyIsIdempotent(t *testing.T) {
	accessor := newFakeAccessor()
	engine := newTestEngine(accessor)

	first, err := engine.Apply(ActionOn, testMic, &testPlayback, false)
	require.NoError(t, err)

	second, err := engine.Apply(ActionOn, testMic, &testPlayback, false)
	require.NoError(t, err)
	require.Equal(t, first, second)

	offFirst, err := engine.Apply(ActionOff, testMic, nil, false)
	require.NoError(t, err)

	offSecond, err := engine.Apply(ActionOff, testMic, nil, false)
	require.NoError(t, err)
	require.Equal(t, offFirst, offSecond)
}

func TestApplyDoubleToggleRestoresEnabled(t *testing.T) {
	accessor := newFakeAccessor()
	accessor.states[testMic.ID] = ListenState{Enabled: true, PlaybackTarget: "render-9"}
	engine := newTestEngine(accessor)

	_, err := engine.Apply(ActionToggle, testMic, nil, false)
	require.NoError(t, err)

	state, err := engine.Apply(ActionToggle, testMic, nil, false)
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-9"), state.PlaybackTarget)
}

func TestApplyPropagatesReadFailure(t *testing.T) {
	accessor := newFakeAccessor()
	accessor.readErr = &PropertyReadError{Device: "Mic", Err: errFakeDenied}
	engine := newTestEngine(accessor)

	_, err := engine.Apply(ActionOn, testMic, nil, false)

	var readErr *PropertyReadError
	require.ErrorAs(t, err, &readErr)
	require.Empty(t, accessor.writes, "no write may happen when the current state is unreadable")
}
