package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// SignalKind identifies a notification daemon signal.
type SignalKind int

const (
	SignalActionInvoked SignalKind = iota + 1
	SignalNotificationClosed
)

// Signal is a parsed ActionInvoked or NotificationClosed signal.
type Signal struct {
	Kind      SignalKind
	ID        uint32
	ActionKey string      // ActionInvoked only
	Reason    CloseReason // NotificationClosed only
}

// Client is the part of the org.freedesktop.Notifications API the
// forwarder talks to.
type Client interface {
	Notify(ctx context.Context, req NotifyRequest) (uint32, error)
	CloseNotification(ctx context.Context, id uint32) error
	Capabilities(ctx context.Context) ([]string, error)
	// Signals delivers daemon signals. It is closed when the client closes.
	Signals() <-chan Signal
	Close() error
}

// SessionClient calls the notification daemon on the session bus.
type SessionClient struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	logger  *slog.Logger
	raw     chan *dbus.Signal
	signals chan Signal
}

// Connect opens a private session bus connection and subscribes to the
// daemon's signals.
func Connect(logger *slog.Logger) (*SessionClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	c := &SessionClient{
		conn:    conn,
		obj:     conn.Object(DBusBusName, DBusPath),
		logger:  logger,
		raw:     make(chan *dbus.Signal, 64),
		signals: make(chan Signal, 64),
	}
	conn.Signal(c.raw)
	go c.processSignals()

	return c, nil
}

// processSignals parses raw bus signals until the connection closes, which
// closes raw.
func (c *SessionClient) processSignals() {
	defer close(c.signals)
	for sig := range c.raw {
		s, ok := parseSignal(sig)
		if !ok {
			continue
		}
		c.signals <- s
	}
}

// parseSignal decodes a notification daemon signal.
func parseSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || sig.Path != DBusPath || len(sig.Body) < 2 {
		return Signal{}, false
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return Signal{}, false
	}

	switch sig.Name {
	case signalActionInvoked:
		actionKey, ok := sig.Body[1].(string)
		if !ok {
			return Signal{}, false
		}
		return Signal{Kind: SignalActionInvoked, ID: id, ActionKey: actionKey}, true
	case signalNotificationClosed:
		reason, ok := sig.Body[1].(uint32)
		if !ok {
			return Signal{}, false
		}
		return Signal{Kind: SignalNotificationClosed, ID: id, Reason: CloseReason(reason)}, true
	default:
		return Signal{}, false
	}
}

// Notify shows or replaces a popup and returns its daemon id.
func (c *SessionClient) Notify(ctx context.Context, req NotifyRequest) (uint32, error) {
	var id uint32
	err := c.obj.CallWithContext(ctx, DBusInterface+".Notify", 0, req.Args()...).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

// CloseNotification closes a popup.
func (c *SessionClient) CloseNotification(ctx context.Context, id uint32) error {
	if err := c.obj.CallWithContext(ctx, DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification %d: %w", id, err)
	}
	return nil
}

// Capabilities returns the daemon's advertised capabilities.
func (c *SessionClient) Capabilities(ctx context.Context) ([]string, error) {
	var caps []string
	if err := c.obj.CallWithContext(ctx, DBusInterface+".GetCapabilities", 0).Store(&caps); err != nil {
		return nil, fmt.Errorf("get capabilities: %w", err)
	}
	return caps, nil
}

// ServerInformation identifies the running notification daemon.
func (c *SessionClient) ServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.obj.CallWithContext(ctx, DBusInterface+".GetServerInformation", 0).
		Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("get server information: %w", err)
	}
	return info, nil
}

// Signals returns the parsed signal stream.
func (c *SessionClient) Signals() <-chan Signal {
	return c.signals
}

// Close closes the bus connection.
func (c *SessionClient) Close() error {
	return c.conn.Close()
}
