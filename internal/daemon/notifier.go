package daemon

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/toastui/internal/model"
)

// DefaultMinInterval is how often the same internal event may be shown.
const DefaultMinInterval = 5 * time.Second

// Publisher accepts new toasts. *toast.Dispatcher satisfies it.
type Publisher interface {
	Add(c model.Content) string
}

// InternalNotifier shows toastui's own events (config reloads, forwarding
// failures) as toasts. Each event key has its own rate limiter so a
// flapping config file cannot flood the queue.
type InternalNotifier struct {
	mu        sync.Mutex
	logger    *slog.Logger
	publisher Publisher

	limiters map[string]*rate.Limiter
	interval time.Duration
	enabled  bool
	now      func() time.Time
}

// NewInternalNotifier creates a notifier publishing into p.
func NewInternalNotifier(p Publisher, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:    logger,
		publisher: p,
		limiters:  make(map[string]*rate.Limiter),
		interval:  DefaultMinInterval,
		enabled:   true,
		now:       time.Now,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the
// same key. Existing limiters are reset when the interval changes.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if interval == n.interval {
		return
	}
	n.interval = interval
	clear(n.limiters)
}

// Notify shows message unless key fired within the minimum interval.
// It reports whether a toast was added.
func (n *InternalNotifier) Notify(key string, kind model.Kind, message string) bool {
	n.mu.Lock()
	if !n.enabled || n.publisher == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notification skipped", "key", key)
		return false
	}

	lim, ok := n.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[key] = lim
	}
	allowed := lim.AllowN(n.now(), 1)
	publisher := n.publisher
	n.mu.Unlock()

	if !allowed {
		n.logger.Debug("internal notification rate-limited", "key", key)
		return false
	}

	id := publisher.Add(model.Content{Kind: kind, Message: message})
	n.logger.Debug("internal notification sent", "key", key, "id", id, "kind", kind)
	return true
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", model.KindSuccess, "Configuration reloaded")
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", model.KindError, "Configuration error: "+err.Error())
}

// NotifyForwardError reports that desktop forwarding is unavailable.
func (n *InternalNotifier) NotifyForwardError(err error) {
	n.Notify("dbus-error", model.KindWarning, "Desktop notifications unavailable: "+err.Error())
}

// NotifyAudioError reports a sound that could not be played.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", model.KindWarning, "Audio error: "+err.Error())
}
