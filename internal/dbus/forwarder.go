package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/toast"
)

// ErrDisconnected is returned by Run when the bus connection goes away.
var ErrDisconnected = errors.New("notification daemon disconnected")

// closeTimeout bounds the final CloseNotification calls on shutdown.
const closeTimeout = 2 * time.Second

// Forwarder mirrors toasts as desktop popups. A new toast becomes a popup,
// a stacked duplicate replaces it in place, and a removed toast closes it.
// Clicking the popup invokes the toast action; dismissing it closes the
// toast.
type Forwarder struct {
	client     Client
	dispatcher *toast.Dispatcher
	appName    string
	logger     *slog.Logger

	tracker *toast.Tracker
	updates chan []model.Notification

	// Owned by the Run goroutine.
	withActions bool
	byToast     map[string]uint32
	byPopup     map[uint32]string
}

// NewForwarder creates a forwarder for d.
func NewForwarder(client Client, d *toast.Dispatcher, appName string, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		client:     client,
		dispatcher: d,
		appName:    appName,
		logger:     logger,
		tracker:    toast.NewTracker(),
		updates:    make(chan []model.Notification, 1),
		byToast:    make(map[string]uint32),
		byPopup:    make(map[uint32]string),
	}
}

// enqueue is the dispatcher subscriber. Only the newest list is kept; the
// tracker diff does not need the ones in between.
func (f *Forwarder) enqueue(list []model.Notification) {
	select {
	case <-f.updates:
	default:
	}
	f.updates <- list
}

// Run forwards until ctx is cancelled or the daemon disconnects. Popups
// still open on return are closed.
func (f *Forwarder) Run(ctx context.Context) error {
	caps, err := f.client.Capabilities(ctx)
	if err != nil {
		f.logger.Warn("failed to query notification daemon capabilities", "error", err)
	}
	f.withActions = slices.Contains(caps, "actions")
	f.logger.Debug("dbus forwarder started", "app_name", f.appName, "actions", f.withActions)

	unsubscribe := f.dispatcher.Subscribe(f.enqueue)
	defer unsubscribe()
	defer f.closeAll()

	f.sync(ctx, f.dispatcher.List())

	signals := f.client.Signals()
	for {
		select {
		case <-ctx.Done():
			return nil
		case list := <-f.updates:
			f.sync(ctx, list)
		case sig, ok := <-signals:
			if !ok {
				return ErrDisconnected
			}
			f.handleSignal(sig)
		}
	}
}

// sync applies the difference between list and the previous snapshot.
func (f *Forwarder) sync(ctx context.Context, list []model.Notification) {
	changes := f.tracker.Update(list)

	for _, n := range changes.Added {
		if n.IsExiting() {
			continue
		}
		f.notify(ctx, n, 0)
	}
	for _, n := range changes.Updated {
		if popup, ok := f.byToast[n.ID]; ok {
			f.notify(ctx, n, popup)
		}
	}
	for _, id := range changes.Removed {
		popup, ok := f.byToast[id]
		if !ok {
			continue
		}
		f.forget(id, popup)
		if err := f.client.CloseNotification(ctx, popup); err != nil {
			f.logger.Warn("failed to close desktop notification", "toast", id, "popup", popup, "error", err)
		}
	}
}

func (f *Forwarder) notify(ctx context.Context, n model.Notification, replaces uint32) {
	popup, err := f.client.Notify(ctx, RequestFor(n, f.appName, replaces, f.withActions))
	if err != nil {
		f.logger.Warn("failed to forward toast", "toast", n.ID, "error", err)
		return
	}
	if replaces != 0 && replaces != popup {
		delete(f.byPopup, replaces)
	}
	f.byToast[n.ID] = popup
	f.byPopup[popup] = n.ID
	f.logger.Debug("toast forwarded", "toast", n.ID, "popup", popup)
}

func (f *Forwarder) forget(toastID string, popup uint32) {
	delete(f.byToast, toastID)
	delete(f.byPopup, popup)
}

// handleSignal routes daemon signals for popups this forwarder opened.
func (f *Forwarder) handleSignal(sig Signal) {
	toastID, ok := f.byPopup[sig.ID]
	if !ok {
		return
	}

	switch sig.Kind {
	case SignalActionInvoked:
		f.logger.Debug("desktop action invoked", "toast", toastID, "action_key", sig.ActionKey)
		if err := f.invoke(toastID); err != nil {
			f.logger.Error("toast action failed", "toast", toastID, "error", err)
		}
	case SignalNotificationClosed:
		f.forget(toastID, sig.ID)
		f.logger.Debug("desktop notification closed", "toast", toastID, "reason", sig.Reason.String())
		if sig.Reason == CloseReasonDismissed {
			f.dispatcher.Close(toastID)
		}
	}
}

// invoke runs the toast action, turning a panic into an error so one bad
// callback does not stop forwarding.
func (f *Forwarder) invoke(toastID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	f.dispatcher.Invoke(toastID)
	return nil
}

// closeAll closes every popup still open.
func (f *Forwarder) closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for id, popup := range f.byToast {
		if err := f.client.CloseNotification(ctx, popup); err != nil {
			f.logger.Debug("failed to close desktop notification", "toast", id, "popup", popup, "error", err)
		}
		f.forget(id, popup)
	}
}
