package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stalexteam/micmon/pkg/micmon"
)

var (
	cfgPath string
	verbose bool
	quiet   bool
)

// Exit codes, one per failure kind, so hotkey scripts can tell them apart.
const (
	exitEnumeration   = 2
	exitNotFound      = 3
	exitAmbiguous     = 4
	exitPropertyRead  = 5
	exitPropertyWrite = 6
	exitMissingMic    = 7
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "micmon: %v\n", err)

		var writeErr *micmon.PropertyWriteError
		if errors.As(err, &writeErr) && writeErr.IsAccessDenied() {
			fmt.Fprintln(os.Stderr, "micmon: property writes require an elevated (administrator) prompt")
		}

		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var (
		enumErr  *micmon.EnumerationError
		notFound *micmon.DeviceNotFoundError
		ambig    *micmon.AmbiguousDeviceError
		readErr  *micmon.PropertyReadError
		writeErr *micmon.PropertyWriteError
		missing  *micmon.MissingMicrophoneError
	)

	switch {
	case errors.As(err, &enumErr):
		return exitEnumeration
	case errors.As(err, &notFound):
		return exitNotFound
	case errors.As(err, &ambig):
		return exitAmbiguous
	case errors.As(err, &readErr):
		return exitPropertyRead
	case errors.As(err, &writeErr):
		return exitPropertyWrite
	case errors.As(err, &missing):
		return exitMissingMic
	}

	return 1
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "micmon",
		Short: "Toggle the Windows \"Listen to this device\" feature for a microphone",
		Long: "micmon enables, disables or toggles the per-microphone \"Listen to this device\"\n" +
			"routing feature, optionally redirecting the listened audio to a chosen playback\n" +
			"device. Built for one-shot runs bound to a hardware hotkey.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the config file (default micmon.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress desktop notifications")

	cmd.AddCommand(
		newListDevicesCmd(),
		newInitConfigCmd(),
		newShowConfigCmd(),
		newSetMicrophoneCmd(),
		newSetPlaybackCmd(),
		newSetDefaultPlaybackCmd(),
		newActionCmd("on", "Enable \"Listen to this device\"", micmon.ActionOn),
		newActionCmd("off", "Disable \"Listen to this device\"", micmon.ActionOff),
		newActionCmd("toggle", "Toggle the current listen state", micmon.ActionToggle),
	)

	return cmd
}

// setup builds the Micmon instance plus a cleanup func the caller must defer.
func setup() (*micmon.Micmon, func(), error) {
	logger, err := micmon.NewLogger(verbose)
	if err != nil {
		return nil, nil, err
	}

	m, err := micmon.NewMicmon(logger, cfgPath, quiet)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		m.Release()
		logger.Sync()
	}

	return m, cleanup, nil
}

func newListDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List active recording and playback devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return m.ListDevices(os.Stdout)
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a starter config file if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sync, err := setupConfigOnly()
			if err != nil {
				return err
			}
			defer sync()

			created, err := cfg.InitTemplate()
			if err != nil {
				return err
			}

			if created {
				fmt.Printf("wrote config template: %s\n", cfg.Path())
			} else {
				fmt.Printf("config already exists: %s\n", cfg.Path())
			}
			return nil
		},
	}
}

func newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the current config file verbatim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sync, err := setupConfigOnly()
			if err != nil {
				return err
			}
			defer sync()

			contents, err := cfg.Show()
			if err != nil {
				return err
			}

			fmt.Printf("config path: %s\n", cfg.Path())
			fmt.Print(contents)
			return nil
		},
	}
}

// setupConfigOnly is for commands that never touch the audio subsystem.
func setupConfigOnly() (*micmon.CanonicalConfig, func(), error) {
	logger, err := micmon.NewLogger(verbose)
	if err != nil {
		return nil, nil, err
	}

	cfg := micmon.NewConfig(logger, cfgPath)
	if err := cfg.Load(); err != nil {
		logger.Sync()
		return nil, nil, err
	}

	return cfg, func() { logger.Sync() }, nil
}

func newSetMicrophoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-microphone <name>",
		Short: "Persist the recording device name in the config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.ValidateDeviceName(args[0], micmon.CaptureEndpoint); err != nil {
				return err
			}
			if err := m.Config().SetMicrophone(args[0]); err != nil {
				return err
			}

			fmt.Printf("updated config: %s\n", m.Config().Path())
			return nil
		},
	}
}

func newSetPlaybackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-playback <name>",
		Short: "Persist the playback device name in the config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.ValidateDeviceName(args[0], micmon.RenderEndpoint); err != nil {
				return err
			}
			if err := m.Config().SetPlayback(args[0]); err != nil {
				return err
			}

			fmt.Printf("updated config: %s\n", m.Config().Path())
			return nil
		},
	}
}

func newSetDefaultPlaybackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default-playback",
		Short: "Persist routing through the default playback device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sync, err := setupConfigOnly()
			if err != nil {
				return err
			}
			defer sync()

			if err := cfg.SetDefaultPlayback(); err != nil {
				return err
			}

			fmt.Printf("updated config: %s\n", cfg.Path())
			return nil
		},
	}
}

func newActionCmd(use string, short string, action micmon.Action) *cobra.Command {
	var (
		microphone      string
		playbackDevice  string
		defaultPlayback bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			state, err := m.Apply(action, micmon.Overrides{
				MicrophoneName:  microphone,
				PlaybackDevice:  playbackDevice,
				DefaultPlayback: defaultPlayback,
			})
			if err != nil {
				return err
			}

			status := "OFF"
			if state.Enabled {
				status = "ON"
			}
			fmt.Printf("Listen to this device: %s\n", status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&microphone, "microphone", "m", "", "recording device friendly name (overrides config)")
	cmd.Flags().StringVarP(&playbackDevice, "playback-device", "p", "", "playback device friendly name for this run (overrides config)")
	cmd.Flags().BoolVar(&defaultPlayback, "default-playback", false, "route through the default playback device for this run")

	return cmd
}
