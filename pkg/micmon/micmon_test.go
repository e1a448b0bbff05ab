package micmon

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCatalog serves a fixed endpoint set, filtered by kind like the real
// enumeration.
type fakeCatalog struct {
	endpoints []AudioEndpoint
	err       error
	released  bool
}

func (f *fakeCatalog) Endpoints(kind EndpointKind) ([]AudioEndpoint, error) {
	if f.err != nil {
		return nil, f.err
	}

	var out []AudioEndpoint
	for _, ep := range f.endpoints {
		if ep.Kind == kind {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Release() error {
	f.released = true
	return nil
}

// fakeAccessor simulates the per-endpoint property pair and records every
// write in order.
type fakeAccessor struct {
	states   map[EndpointID]ListenState
	writes   []StateWrite
	readErr  error
	writeErr error
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{states: map[EndpointID]ListenState{}}
}

func (f *fakeAccessor) ReadState(ep AudioEndpoint) (ListenState, error) {
	if f.readErr != nil {
		return ListenState{}, f.readErr
	}
	return f.states[ep.ID], nil
}

func (f *fakeAccessor) WriteState(ep AudioEndpoint, w StateWrite) error {
	if f.writeErr != nil {
		return f.writeErr
	}

	f.writes = append(f.writes, w)

	st := f.states[ep.ID]
	st.Enabled = w.Enabled
	switch w.TargetMode {
	case TargetSet:
		st.PlaybackTarget = w.Target
	case TargetDefault:
		st.PlaybackTarget = ""
	}
	f.states[ep.ID] = st

	return nil
}

func newTestMicmon(t *testing.T, catalog DeviceCatalog, accessor ListenAccessor) *Micmon {
	t.Helper()

	logger := zap.NewNop().Sugar()
	m := &Micmon{
		logger:   logger,
		notifier: noopNotifier{},
		config:   NewConfig(logger, t.TempDir()+"/micmon.yaml"),
		catalog:  catalog,
		accessor: accessor,
	}
	m.engine = newToggleEngine(logger, accessor)

	return m
}

func TestApplyOnUsesPersistedMicrophoneAndKeepsStoredTarget(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Microphone (HyperX)", Kind: CaptureEndpoint, Active: true},
	}}
	accessor := newFakeAccessor()
	accessor.states["mic-1"] = ListenState{Enabled: false, PlaybackTarget: "render-7"}

	m := newTestMicmon(t, catalog, accessor)
	m.config.MicrophoneName = "Microphone (HyperX)"

	state, err := m.Apply(ActionOn, Overrides{})
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-7"), state.PlaybackTarget, "prior OS-side target must survive an On without a playback request")
}

func TestApplyResolvesPlaybackOverride(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Mic", Kind: CaptureEndpoint, Active: true},
		{ID: "render-1", FriendlyName: "Speakers", Kind: RenderEndpoint, Active: true},
	}}
	accessor := newFakeAccessor()

	m := newTestMicmon(t, catalog, accessor)

	state, err := m.Apply(ActionOn, Overrides{MicrophoneName: "Mic", PlaybackDevice: "Speakers"})
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, EndpointID("render-1"), state.PlaybackTarget)
}

func TestApplyFailsWithoutMicrophone(t *testing.T) {
	m := newTestMicmon(t, &fakeCatalog{}, newFakeAccessor())

	_, err := m.Apply(ActionOn, Overrides{})

	var missing *MissingMicrophoneError
	require.ErrorAs(t, err, &missing)
}

func TestApplyPropagatesAmbiguousPlaybackName(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Mic", Kind: CaptureEndpoint, Active: true},
		{ID: "render-1", FriendlyName: "Speakers", Kind: RenderEndpoint, Active: true},
		{ID: "render-2", FriendlyName: "Speakers", Kind: RenderEndpoint, Active: true},
	}}

	m := newTestMicmon(t, catalog, newFakeAccessor())

	_, err := m.Apply(ActionOn, Overrides{MicrophoneName: "Mic", PlaybackDevice: "Speakers"})

	var ambig *AmbiguousDeviceError
	require.ErrorAs(t, err, &ambig)
	require.ElementsMatch(t, []string{"render-1", "render-2"}, ambig.IDs)
}

func TestApplySurfacesWriteError(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Mic", Kind: CaptureEndpoint, Active: true},
	}}
	accessor := newFakeAccessor()
	accessor.writeErr = &PropertyWriteError{Device: "Mic", Err: errFakeDenied}

	m := newTestMicmon(t, catalog, accessor)

	_, err := m.Apply(ActionOn, Overrides{MicrophoneName: "Mic"})

	var writeErr *PropertyWriteError
	require.ErrorAs(t, err, &writeErr)
}

func TestListDevicesPrintsExactNamesBySection(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Microphone (HyperX)", Kind: CaptureEndpoint, Active: true},
		{ID: "render-1", FriendlyName: "Speakers (Realtek)", Kind: RenderEndpoint, Active: true},
	}}

	m := newTestMicmon(t, catalog, newFakeAccessor())

	var buf bytes.Buffer
	require.NoError(t, m.ListDevices(&buf))

	out := buf.String()
	require.Contains(t, out, "Input devices (recording):\n  - Microphone (HyperX)\n")
	require.Contains(t, out, "Output devices (playback):\n  - Speakers (Realtek)\n")
}

func TestListDevicesReportsEmptySections(t *testing.T) {
	m := newTestMicmon(t, &fakeCatalog{}, newFakeAccessor())

	var buf bytes.Buffer
	require.NoError(t, m.ListDevices(&buf))
	require.Contains(t, buf.String(), "(none)")
}

func TestListDevicesFailsWhenSubsystemUnreachable(t *testing.T) {
	catalog := &fakeCatalog{err: &EnumerationError{Reason: "service down"}}
	m := newTestMicmon(t, catalog, newFakeAccessor())

	var buf bytes.Buffer
	err := m.ListDevices(&buf)

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
}

func TestValidateDeviceNameHonorsKind(t *testing.T) {
	catalog := &fakeCatalog{endpoints: []AudioEndpoint{
		{ID: "mic-1", FriendlyName: "Mic", Kind: CaptureEndpoint, Active: true},
	}}
	m := newTestMicmon(t, catalog, newFakeAccessor())

	require.NoError(t, m.ValidateDeviceName("Mic", CaptureEndpoint))

	var notFound *DeviceNotFoundError
	require.ErrorAs(t, m.ValidateDeviceName("Mic", RenderEndpoint), &notFound)
}
