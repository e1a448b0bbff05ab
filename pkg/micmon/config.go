package micmon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stalexteam/micmon/pkg/micmon/util"
)

const (
	defaultConfigFilepath = "micmon.yaml"

	configType = "yaml"

	configKey_MicrophoneName     = "microphone_name"
	configKey_PlaybackDevice     = "playback_device"
	configKey_UseDefaultPlayback = "use_default_playback"
)

// configTemplate is what init-config writes. Kept as raw text rather than
// going through viper so the comments survive.
const configTemplate = `# micmon configuration
#
# Device names must match the list-devices output exactly (case-sensitive).

# Recording device whose "Listen to this device" flag is toggled.
microphone_name: "YOUR MICROPHONE NAME"

# Playback device the listened audio is routed through. Leave empty to keep
# whatever target the OS currently stores.
playback_device: ""

# Route through the default playback device instead of a named one.
use_default_playback: false
`

// CanonicalConfig provides access to micmon's persisted configuration file
// and merges it with per-invocation overrides.
type CanonicalConfig struct {
	MicrophoneName     string
	PlaybackDevice     string
	UseDefaultPlayback bool

	logger *zap.SugaredLogger
	path   string
	store  *viper.Viper
}

// Overrides carries one invocation's flag values. Zero values mean "not
// provided"; a present override always beats the persisted field.
type Overrides struct {
	MicrophoneName  string
	PlaybackDevice  string
	DefaultPlayback bool
}

// EffectiveConfig is the single request produced by merging the persisted
// config with one invocation's overrides. At most one of PlaybackDeviceName
// and UseDefaultPlayback is set; both unset means the stored playback target
// is left untouched.
type EffectiveConfig struct {
	Action             Action
	MicrophoneName     string
	PlaybackDeviceName string
	UseDefaultPlayback bool
}

// NewConfig creates a config instance backed by the file at path, or by
// micmon.yaml in the working directory when path is empty.
func NewConfig(logger *zap.SugaredLogger, path string) *CanonicalConfig {
	logger = logger.Named("config")

	if path == "" {
		path = defaultConfigFilepath
	}

	store := viper.New()
	store.SetConfigFile(path)
	store.SetConfigType(configType)

	store.SetDefault(configKey_MicrophoneName, "")
	store.SetDefault(configKey_PlaybackDevice, "")
	store.SetDefault(configKey_UseDefaultPlayback, false)

	cc := &CanonicalConfig{
		logger: logger,
		path:   path,
		store:  store,
	}

	logger.Debugw("Created config instance", "path", path)

	return cc
}

// Path returns the config file location in use.
func (cc *CanonicalConfig) Path() string {
	return cc.path
}

// Load reads the config file if it exists. A missing file is not an error:
// every field can still arrive as an override.
func (cc *CanonicalConfig) Load() error {
	if !util.FileExists(cc.path) {
		cc.logger.Debugw("Config file not found, relying on overrides", "path", cc.path)
		return nil
	}

	if err := cc.store.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read config", "path", cc.path, "error", err)
		return fmt.Errorf("read config: %w", err)
	}

	cc.MicrophoneName = cc.store.GetString(configKey_MicrophoneName)
	cc.PlaybackDevice = cc.store.GetString(configKey_PlaybackDevice)
	cc.UseDefaultPlayback = cc.store.GetBool(configKey_UseDefaultPlayback)

	cc.logger.Debugw("Loaded config",
		"path", cc.path,
		"microphoneName", cc.MicrophoneName,
		"playbackDevice", cc.PlaybackDevice,
		"useDefaultPlayback", cc.UseDefaultPlayback)

	return nil
}

// InitTemplate writes a starter config file, refusing to overwrite an
// existing one. Returns whether a file was created.
func (cc *CanonicalConfig) InitTemplate() (bool, error) {
	if util.FileExists(cc.path) {
		cc.logger.Debugw("Config already exists, leaving it alone", "path", cc.path)
		return false, nil
	}

	if dir := filepath.Dir(cc.path); dir != "." {
		if err := util.EnsureDirExists(dir); err != nil {
			return false, err
		}
	}

	if err := os.WriteFile(cc.path, []byte(configTemplate), 0o644); err != nil {
		return false, fmt.Errorf("write config template: %w", err)
	}

	cc.logger.Infow("Wrote config template", "path", cc.path)

	return true, nil
}

// Show returns the config file contents verbatim.
func (cc *CanonicalConfig) Show() (string, error) {
	raw, err := os.ReadFile(cc.path)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}

	return string(raw), nil
}

// SetMicrophone persists name as the configured recording device.
func (cc *CanonicalConfig) SetMicrophone(name string) error {
	cc.MicrophoneName = name
	return cc.persist(configKey_MicrophoneName, name)
}

// SetPlayback persists name as the configured playback device and clears the
// default-playback flag, which it supersedes.
func (cc *CanonicalConfig) SetPlayback(name string) error {
	cc.PlaybackDevice = name
	cc.UseDefaultPlayback = false
	cc.store.Set(configKey_UseDefaultPlayback, false)

	return cc.persist(configKey_PlaybackDevice, name)
}

// SetDefaultPlayback persists routing through the default playback device,
// clearing any configured device name.
func (cc *CanonicalConfig) SetDefaultPlayback() error {
	cc.PlaybackDevice = ""
	cc.UseDefaultPlayback = true
	cc.store.Set(configKey_PlaybackDevice, "")

	return cc.persist(configKey_UseDefaultPlayback, true)
}

func (cc *CanonicalConfig) persist(key string, value interface{}) error {
	cc.store.Set(key, value)

	if err := cc.store.WriteConfigAs(cc.path); err != nil {
		cc.logger.Warnw("Failed to write config", "path", cc.path, "error", err)
		return fmt.Errorf("write config: %w", err)
	}

	cc.logger.Infow("Updated config", "path", cc.path, "key", key)

	return nil
}

// Resolve merges the loaded config with one invocation's overrides into a
// single effective request. Field-by-field, a present override wins.
//
// Playback precedence, strongest first: the override default-playback flag,
// the override device name, the persisted device name, the persisted
// default-playback flag. When none is present, playback redirection is
// omitted entirely and the stored OS-side target stays untouched.
func (cc *CanonicalConfig) Resolve(action Action, overrides Overrides) (EffectiveConfig, error) {
	eff := EffectiveConfig{Action: action}

	eff.MicrophoneName = overrides.MicrophoneName
	if eff.MicrophoneName == "" {
		eff.MicrophoneName = cc.MicrophoneName
	}
	if eff.MicrophoneName == "" {
		return EffectiveConfig{}, &MissingMicrophoneError{}
	}

	switch {
	case overrides.DefaultPlayback:
		eff.UseDefaultPlayback = true
	case overrides.PlaybackDevice != "":
		eff.PlaybackDeviceName = overrides.PlaybackDevice
	case cc.PlaybackDevice != "":
		eff.PlaybackDeviceName = cc.PlaybackDevice
	case cc.UseDefaultPlayback:
		eff.UseDefaultPlayback = true
	}

	return eff, nil
}
