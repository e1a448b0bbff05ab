// Package micmon toggles the Windows "Listen to this device" feature for a
// chosen microphone, optionally routing the listened audio through a specific
// playback device. It is built for one-shot invocations bound to hotkeys:
// each run performs a single enumerate, resolve, read, compute, write
// sequence and exits.
package micmon

import (
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap"

	"github.com/stalexteam/micmon/pkg/micmon/util"
)

// Micmon is the main entity wiring the device catalog, the listen-property
// accessor and the configuration together for a single invocation.
type Micmon struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig
	catalog  DeviceCatalog
	accessor ListenAccessor
	engine   *toggleEngine
}

// NewMicmon creates a Micmon instance and loads its configuration.
// configPath may be empty to use the default location. The returned instance
// holds OS audio resources; callers must Release it on every exit path.
func NewMicmon(logger *zap.SugaredLogger, configPath string, quiet bool) (*Micmon, error) {
	logger = logger.Named("micmon")

	core, err := newCoreAudio(logger)
	if err != nil {
		logger.Errorw("Failed to create core audio bindings", "error", err)
		return nil, fmt.Errorf("create core audio bindings: %w", err)
	}

	m := &Micmon{
		logger:   logger,
		notifier: NewNotifier(logger, quiet),
		config:   NewConfig(logger, configPath),
		catalog:  core,
		accessor: core,
	}
	m.engine = newToggleEngine(logger, m.accessor)

	if err := m.config.Load(); err != nil {
		m.Release()
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.Debug("Created micmon instance")

	return m, nil
}

// Config exposes the persisted configuration layer for the setup commands.
func (m *Micmon) Config() *CanonicalConfig {
	return m.config
}

// Release frees the OS audio resources. Call exactly once when done.
func (m *Micmon) Release() {
	if err := m.catalog.Release(); err != nil {
		m.logger.Warnw("Failed to release audio resources", "error", err)
	}
}

// ListDevices prints the active recording and playback endpoints to w, one
// exact friendly name per line. These names are the required input to every
// name-based operation.
func (m *Micmon) ListDevices(w io.Writer) error {
	captures, err := m.catalog.Endpoints(CaptureEndpoint)
	if err != nil {
		return err
	}

	renders, err := m.catalog.Endpoints(RenderEndpoint)
	if err != nil {
		return err
	}

	printSection(w, "Input devices (recording):", captures)
	fmt.Fprintln(w)
	printSection(w, "Output devices (playback):", renders)

	return nil
}

func printSection(w io.Writer, header string, endpoints []AudioEndpoint) {
	fmt.Fprintln(w, header)

	if len(endpoints) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}

	for _, ep := range endpoints {
		fmt.Fprintf(w, "  - %s\n", ep.FriendlyName)
	}
}

// ValidateDeviceName checks that name exactly matches one active endpoint of
// the given kind. The setup commands call this before persisting, so a typo
// fails once at setup instead of on every later run.
func (m *Micmon) ValidateDeviceName(name string, kind EndpointKind) error {
	_, err := resolveEndpoint(m.catalog, name, kind)
	return err
}

// Apply performs one complete run: merge config with overrides, resolve the
// named devices, and commit the requested transition. Returns the listen
// state as committed.
func (m *Micmon) Apply(action Action, overrides Overrides) (ListenState, error) {
	eff, err := m.config.Resolve(action, overrides)
	if err != nil {
		return ListenState{}, err
	}

	if runtime.GOOS == "windows" && !util.Elevated() {
		m.logger.Warnw("Process is not elevated, property writes will likely be denied",
			"device", eff.MicrophoneName)
	}

	mic, err := resolveEndpoint(m.catalog, eff.MicrophoneName, CaptureEndpoint)
	if err != nil {
		return ListenState{}, err
	}

	var playback *AudioEndpoint
	if eff.PlaybackDeviceName != "" {
		ep, err := resolveEndpoint(m.catalog, eff.PlaybackDeviceName, RenderEndpoint)
		if err != nil {
			return ListenState{}, err
		}
		playback = &ep
	}

	state, err := m.engine.Apply(eff.Action, mic, playback, eff.UseDefaultPlayback)
	if err != nil {
		return ListenState{}, err
	}

	m.notifyResult(eff, state)

	return state, nil
}

func (m *Micmon) notifyResult(eff EffectiveConfig, state ListenState) {
	if !state.Enabled {
		m.notifier.Notify("Listen to this device: OFF", eff.MicrophoneName)
		return
	}

	target := "current playback target"
	switch {
	case eff.UseDefaultPlayback:
		target = "default playback device"
	case eff.PlaybackDeviceName != "":
		target = eff.PlaybackDeviceName
	}

	m.notifier.Notify("Listen to this device: ON",
		fmt.Sprintf("%s through %s", eff.MicrophoneName, target))
}
