package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastui/internal/daemon"
	"github.com/jmylchreest/toastui/internal/toast"
	"github.com/jmylchreest/toastui/internal/tui"
)

var tuiOpts struct {
	dbus  bool
	sound bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive toast playground",
	Long: `Launch the terminal renderer. Toasts stack in the configured corner,
styled per kind, and fade out when they expire.

Key bindings:
  s/e/w/i     Add a success, error, warning or info toast
  a           Add a toast with a "Retry" action
  j/k, ↑/↓    Move selection
  enter       Invoke the selected toast's action
  x           Close selected toast
  D           Remove selected toast immediately
  c           Close all toasts
  y           Copy message to clipboard
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiOpts.dbus, "dbus", false,
		"Also show toasts as desktop notifications")
	tuiCmd.Flags().BoolVar(&tuiOpts.sound, "sound", false,
		"Play the configured sound for each new toast")
}

func runTUI(cmd *cobra.Command, args []string) error {
	host := daemon.NewHost(daemon.Options{
		Config:     cfg,
		ConfigPath: watchPath(),
		Forward:    tuiOpts.dbus,
		Sound:      tuiOpts.sound,
		Logger:     logger,
	})
	if err := host.Start(cmd.Context()); err != nil {
		return err
	}
	defer host.Stop()

	ctx := toast.NewContext(cmd.Context(), host.Dispatcher())
	return tui.Run(ctx, tui.RunOptions{
		Config: host.Config(),
		Logger: logger,
	})
}
