package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastui/internal/adapter/input"
	"github.com/jmylchreest/toastui/internal/adapter/output"
	"github.com/jmylchreest/toastui/internal/daemon"
	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/toast"
)

var pipeOpts struct {
	input    string
	format   string
	template string
	kind     string
	state    string
	filter   string
	dbus     bool
	sound    bool
	noWait   bool
}

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Read toast commands from stdin and print queue snapshots",
	Long: `Read one command per line and write a snapshot of the toast queue to
stdout after every change.

A line is either a JSON command or plain text, which adds an info toast:

  {"kind":"success","message":"Saved"}
  {"kind":"error","message":"Upload failed","action":"Retry"}
  {"op":"close","id":"01J9"}          close by id, unique prefix or index
  {"op":"remove","id":"2"}            remove without the exit transition
  {"op":"invoke","id":"1"}            run the toast's action
  {"op":"clear"}                      close everything

After the input ends toastui waits until every toast has expired, unless
--no-wait is given.

Examples:
  # Watch a build as JSON snapshots
  make 2>&1 | toastui pipe --format json

  # Mirror errors to the desktop
  ./deploy.sh | toastui pipe --dbus --kind error

  # Only show toasts whose message mentions disk
  toastui pipe --filter "message~disk" < events.jsonl`,
	RunE: runPipe,
}

func init() {
	rootCmd.AddCommand(pipeCmd)

	pipeCmd.Flags().StringVarP(&pipeOpts.input, "input", "i", "-",
		"Command source: - for stdin, or a file path")
	pipeCmd.Flags().StringVarP(&pipeOpts.format, "format", "f", string(output.FormatPlain),
		"Output format (json, yaml, plain, ids)")
	pipeCmd.Flags().StringVar(&pipeOpts.template, "template", "",
		"Custom Go template for plain output")
	pipeCmd.Flags().StringVar(&pipeOpts.kind, "kind", "",
		"Only print these kinds (comma-separated)")
	pipeCmd.Flags().StringVar(&pipeOpts.state, "state", "",
		"Only print these states (active, exiting)")
	pipeCmd.Flags().StringVar(&pipeOpts.filter, "filter", "",
		"Filter expression (e.g. \"kind=error,count>=2\")")
	pipeCmd.Flags().BoolVar(&pipeOpts.dbus, "dbus", false,
		"Also show toasts as desktop notifications")
	pipeCmd.Flags().BoolVar(&pipeOpts.sound, "sound", false,
		"Play the configured sound for each new toast")
	pipeCmd.Flags().BoolVar(&pipeOpts.noWait, "no-wait", false,
		"Exit at end of input instead of waiting for toasts to expire")
}

func runPipe(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(pipeOpts.format)
	if err != nil {
		return err
	}
	filter, err := pipeFilter(pipeOpts.kind, pipeOpts.state, pipeOpts.filter)
	if err != nil {
		return err
	}

	adapter, err := input.NewAdapter(pipeOpts.input)
	if err != nil {
		return err
	}

	fmtOpts := output.DefaultFormatterOptions()
	fmtOpts.Template = pipeOpts.template
	fmtOpts.ShowCount = cfg.Behavior.ShowCount

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := daemon.NewHost(daemon.Options{
		Config:     cfg,
		ConfigPath: watchPath(),
		Forward:    pipeOpts.dbus,
		Sound:      pipeOpts.sound,
		Logger:     logger,
	})
	if err := host.Start(ctx); err != nil {
		return err
	}
	defer host.Stop()

	pc := pipeConfig{
		out:    newSnapshotWriter(os.Stdout, output.NewFormatter(format, fmtOpts), filter, logger),
		logger: logger,
	}
	if !pipeOpts.noWait {
		pc.drain = host.WaitDrained
	}
	return pipe(toast.NewContext(ctx, host.Dispatcher()), adapter, pc)
}

// pipeFilter builds the snapshot filter from the command line flags.
func pipeFilter(kinds, states, expr string) (toast.FilterOptions, error) {
	var opts toast.FilterOptions
	var err error

	if opts.Kinds, err = toast.ParseKinds(kinds); err != nil {
		return opts, fmt.Errorf("invalid --kind: %w", err)
	}
	if opts.States, err = toast.ParseStates(states); err != nil {
		return opts, fmt.Errorf("invalid --state: %w", err)
	}
	if expr != "" {
		if opts.Expr, err = toast.ParseFilter(expr); err != nil {
			return opts, fmt.Errorf("invalid --filter: %w", err)
		}
	}
	return opts, nil
}

type pipeConfig struct {
	out    *snapshotWriter
	drain  func(context.Context) error // nil exits at end of input
	logger *slog.Logger
}

// pipe feeds adapter commands into the dispatcher attached to ctx and prints
// every snapshot until the input ends (and the queue drains) or ctx is
// cancelled.
func pipe(ctx context.Context, adapter input.InputAdapter, pc pipeConfig) error {
	d, err := toast.FromContext(ctx)
	if err != nil {
		return err
	}
	unsubscribe := d.Subscribe(pc.out.write)
	defer unsubscribe()

	onAction := func(id, label string) {
		pc.logger.Info("action invoked", "id", id, "label", label)
	}
	handle := func(c input.Command) error {
		id, err := input.Apply(d, c, onAction)
		if err != nil {
			// A bad id or an action-less invoke should not end the stream.
			pc.logger.Warn("command failed", "op", c.Op, "id", c.ID, "error", err)
			return nil
		}
		pc.logger.Debug("command applied", "op", c.Op, "id", id)
		return nil
	}

	// The adapter blocks on reads, so it runs apart from the signal wait.
	done := make(chan error, 1)
	go func() { done <- adapter.Run(ctx, handle) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("reading %s: %w", adapter.Name(), err)
		}
	}

	if pc.drain == nil {
		return nil
	}
	if err := pc.drain(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// snapshotWriter prints filtered snapshots, skipping ones that render the
// same as the previous output.
type snapshotWriter struct {
	mu        sync.Mutex
	w         io.Writer
	formatter output.Formatter
	filter    toast.FilterOptions
	last      []byte
	logger    *slog.Logger
}

func newSnapshotWriter(w io.Writer, f output.Formatter, filter toast.FilterOptions, logger *slog.Logger) *snapshotWriter {
	return &snapshotWriter{w: w, formatter: f, filter: filter, logger: logger}
}

func (s *snapshotWriter) write(list []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := s.formatter.Format(&buf, toast.Filter(list, s.filter)); err != nil {
		s.logger.Warn("failed to format snapshot", "error", err)
		return
	}
	if bytes.Equal(buf.Bytes(), s.last) {
		return
	}
	s.last = buf.Bytes()

	if _, err := s.w.Write(s.last); err != nil {
		s.logger.Warn("failed to write snapshot", "error", err)
	}
}
