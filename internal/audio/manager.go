package audio

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/toastui/internal/config"
	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/toast"
)

// Sounder plays sound files. *Player is the production implementation.
type Sounder interface {
	Play(path string) error
	Preload(path string) error
	SetVolume(volume float64)
	ClearCache()
	Close()
}

// severity orders kinds when several toasts arrive in one change; only the
// most severe one is heard.
var severity = map[model.Kind]int{
	model.KindError:   4,
	model.KindWarning: 3,
	model.KindSuccess: 2,
	model.KindInfo:    1,
}

// Manager plays a per-kind sound when a toast appears.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  Sounder
	enabled bool
	sounds  map[model.Kind]string

	onError func(err error)

	tracker *toast.Tracker
	updates chan []model.Notification
}

// NewManager creates a manager. A nil player uses the speaker.
func NewManager(cfg *config.Config, player Sounder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if player == nil {
		player = NewPlayer(logger)
	}

	m := &Manager{
		logger:  logger,
		player:  player,
		sounds:  make(map[model.Kind]string),
		tracker: toast.NewTracker(),
		updates: make(chan []model.Notification, 1),
	}
	m.UpdateConfig(cfg)
	return m
}

// UpdateConfig applies audio settings and preloads the configured sounds.
// It is called again on every config reload.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	sounds := make(map[model.Kind]string)
	for _, kind := range model.Kinds() {
		path := cfg.SoundFor(kind)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "kind", kind, "path", path)
			continue
		}
		sounds[kind] = path
	}

	m.player.ClearCache()
	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.sounds = sounds
	m.mu.Unlock()

	if !cfg.Audio.Enabled {
		return
	}
	for kind, path := range sounds {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "kind", kind, "path", path, "error", err)
		}
	}
	m.logger.Debug("audio config applied", "sounds", len(sounds), "volume", cfg.Audio.Volume)
}

// OnError sets a callback for playback failures.
func (m *Manager) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Enabled reports whether sounds are played.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// PlayFor plays the sound configured for kind, if any.
func (m *Manager) PlayFor(kind model.Kind) error {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.sounds[kind]
	m.mu.RUnlock()

	if !enabled || !ok {
		return nil
	}
	return m.player.Play(path)
}

// enqueue is the dispatcher subscriber. Playback happens on the Run
// goroutine so decoding never blocks a producer.
func (m *Manager) enqueue(list []model.Notification) {
	select {
	case <-m.updates:
	default:
	}
	m.updates <- list
}

// Attach subscribes the manager to d. Toasts already showing are not
// announced.
func (m *Manager) Attach(d *toast.Dispatcher) (detach func()) {
	m.tracker.Update(d.List())
	return d.Subscribe(m.enqueue)
}

// Run plays sounds for new toasts until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case list := <-m.updates:
			m.handle(list)
		}
	}
}

func (m *Manager) handle(list []model.Notification) {
	changes := m.tracker.Update(list)

	var loudest model.Kind
	for _, n := range changes.Added {
		if n.IsExiting() {
			continue
		}
		if severity[n.Kind] > severity[loudest] {
			loudest = n.Kind
		}
	}
	if loudest == "" {
		return
	}

	if err := m.PlayFor(loudest); err != nil {
		m.logger.Warn("failed to play sound", "kind", loudest, "error", err)
		m.mu.RLock()
		onError := m.onError
		m.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
	}
}

// Stop releases the audio device.
func (m *Manager) Stop() {
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}
