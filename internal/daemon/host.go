package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/toastui/internal/audio"
	"github.com/jmylchreest/toastui/internal/config"
	"github.com/jmylchreest/toastui/internal/dbus"
	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/schedule"
	"github.com/jmylchreest/toastui/internal/toast"
)

// Options configures a Host.
type Options struct {
	Config *config.Config

	// ConfigPath enables hot reload of the given file. Empty disables it.
	ConfigPath string

	// Forward mirrors toasts to the desktop notification daemon. It is
	// OR-ed with the config's dbus.forward setting.
	Forward bool

	// Sound plays per-kind sounds. It is OR-ed with audio.enabled.
	Sound bool

	// Scheduler runs the toast timers. Nil starts a timer wheel.
	Scheduler schedule.Scheduler

	// DBusClient replaces the session bus connection.
	DBusClient dbus.Client

	// Sounder replaces the speaker.
	Sounder audio.Sounder

	Logger *slog.Logger
}

// Host owns the dispatcher and the services around it: config hot reload,
// desktop forwarding, audio cues and internal notifications.
type Host struct {
	mu     sync.Mutex
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	wheel      *schedule.Wheel
	dispatcher *toast.Dispatcher
	notifier   *InternalNotifier

	watcher     *config.Watcher
	audio       *audio.Manager
	detachAudio func()
	client      dbus.Client

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewHost creates a host. Nothing runs until Start.
func NewHost(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	h := &Host{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
	}

	sched := opts.Scheduler
	if sched == nil {
		h.wheel = schedule.NewWheel(logger)
		sched = h.wheel
	}

	h.dispatcher = toast.New(sched,
		toast.WithLogger(logger),
		toast.WithOptions(cfg.ToastOptions()),
	)
	h.notifier = NewInternalNotifier(h.dispatcher, logger)
	h.configureNotifier(cfg)
	return h
}

func (h *Host) configureNotifier(cfg *config.Config) {
	h.notifier.SetEnabled(cfg.Behavior.InternalNotifications)
	h.notifier.SetMinInterval(cfg.Behavior.InternalInterval.Duration())
}

// Dispatcher returns the toast dispatcher.
func (h *Host) Dispatcher() *toast.Dispatcher {
	return h.dispatcher
}

// Config returns the active configuration.
func (h *Host) Config() *config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Start launches the configured services. Failing optional services are
// logged and reported as toasts; Start only fails if called twice.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("host already started")
	}
	h.started = true

	ctx, h.cancel = context.WithCancel(ctx)

	if h.opts.ConfigPath != "" {
		h.startWatcher()
	}
	if h.opts.Sound || h.cfg.Audio.Enabled {
		h.startAudio(ctx)
	}
	if h.opts.Forward || h.cfg.DBus.Forward {
		h.startForwarder(ctx)
	}

	h.logger.Debug("host started",
		"watch", h.watcher != nil,
		"audio", h.audio != nil,
		"forward", h.client != nil,
	)
	return nil
}

func (h *Host) startWatcher() {
	w := config.NewWatcher(h.opts.ConfigPath, h.cfg, h.logger)
	w.OnReload(h.applyConfig)
	w.OnError(func(err error) {
		h.logger.Warn("config reload failed", "error", err)
		h.notifier.NotifyConfigError(err)
	})
	if err := w.Start(); err != nil {
		h.logger.Warn("config hot reload disabled", "error", err)
		return
	}
	h.watcher = w
}

func (h *Host) startAudio(ctx context.Context) {
	cfg := *h.cfg
	cfg.Audio.Enabled = true

	m := audio.NewManager(&cfg, h.opts.Sounder, h.logger)
	m.OnError(h.notifier.NotifyAudioError)
	h.detachAudio = m.Attach(h.dispatcher)
	h.audio = m

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_ = m.Run(ctx)
	}()
}

func (h *Host) startForwarder(ctx context.Context) {
	client := h.opts.DBusClient
	if client == nil {
		c, err := dbus.Connect(h.logger)
		if err != nil {
			h.logger.Warn("desktop forwarding disabled", "error", err)
			h.notifier.NotifyForwardError(err)
			return
		}
		if info, err := c.ServerInformation(ctx); err == nil {
			h.logger.Debug("forwarding to notification daemon", "name", info.Name, "vendor", info.Vendor, "version", info.Version)
		}
		client = c
	}
	h.client = client

	appName := h.cfg.DBus.AppName
	if appName == "" {
		appName = config.DefaultAppName
	}
	f := dbus.NewForwarder(client, h.dispatcher, appName, h.logger)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := f.Run(ctx); err != nil {
			h.logger.Warn("desktop forwarding stopped", "error", err)
			h.notifier.NotifyForwardError(err)
		}
	}()
}

// applyConfig takes a reloaded config. Timings and limits apply to the
// dispatcher; audio settings apply if audio is running. Turning forwarding
// or audio on or off needs a restart.
func (h *Host) applyConfig(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	m := h.audio
	h.mu.Unlock()

	h.dispatcher.Apply(cfg.ToastOptions())
	if m != nil {
		audioCfg := *cfg
		audioCfg.Audio.Enabled = cfg.Audio.Enabled || h.opts.Sound
		m.UpdateConfig(&audioCfg)
	}

	h.configureNotifier(cfg)

	h.logger.Info("configuration reloaded")
	h.notifier.NotifyConfigReloaded()
}

// WaitDrained blocks until the dispatcher holds no toasts or ctx ends.
func (h *Host) WaitDrained(ctx context.Context) error {
	drained := make(chan struct{})
	var once sync.Once
	signal := func(list []model.Notification) {
		if len(list) == 0 {
			once.Do(func() { close(drained) })
		}
	}

	unsubscribe := h.dispatcher.Subscribe(signal)
	defer unsubscribe()
	if h.dispatcher.Len() == 0 {
		return nil
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for toasts to drain: %w", ctx.Err())
	}
}

// Stop shuts every service down, clears the queue and stops the timers.
func (h *Host) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watcher != nil {
		if err := h.watcher.Stop(); err != nil {
			h.logger.Debug("failed to stop config watcher", "error", err)
		}
		h.watcher = nil
	}
	if h.audio != nil {
		h.detachAudio()
		h.audio.Stop()
		h.audio = nil
	}
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			h.logger.Debug("failed to close bus connection", "error", err)
		}
		h.client = nil
	}

	h.dispatcher.Shutdown()
	if h.wheel != nil {
		h.wheel.Stop()
	}
	h.logger.Debug("host stopped")
}
