package dbus

import (
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastui/internal/model"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name of the running notification daemon.
	DBusBusName = "org.freedesktop.Notifications"

	signalActionInvoked      = DBusInterface + ".ActionInvoked"
	signalNotificationClosed = DBusInterface + ".NotificationClosed"

	// ActionKeyDefault is the key of the action sent with every toast that
	// carries one; daemons treat it as a click on the popup body.
	ActionKeyDefault = "default"

	// HintToastID carries the toast id so forwarded popups can be traced.
	HintToastID = "x-toastui-id"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Urgency levels of the "urgency" hint.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// UrgencyFor maps a toast kind to a notification urgency.
func UrgencyFor(kind model.Kind) byte {
	switch kind {
	case model.KindError:
		return UrgencyCritical
	case model.KindInfo:
		return UrgencyLow
	default:
		return UrgencyNormal
	}
}

// IconFor returns a freedesktop icon name for a toast kind.
func IconFor(kind model.Kind) string {
	switch kind {
	case model.KindSuccess:
		return "emblem-ok-symbolic"
	case model.KindError:
		return "dialog-error"
	case model.KindWarning:
		return "dialog-warning"
	default:
		return "dialog-information"
	}
}

// NotifyRequest holds the arguments of an org.freedesktop.Notifications.Notify call.
type NotifyRequest struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Args returns the call arguments in wire order.
func (r NotifyRequest) Args() []any {
	actions := r.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := r.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}
	return []any{r.AppName, r.ReplacesID, r.AppIcon, r.Summary, r.Body, actions, hints, r.ExpireTimeout}
}

// RequestFor builds the Notify call that mirrors a toast. The popup never
// expires on its own: the toast lifecycle closes it. replaces is the
// daemon id of a popup to update in place, or 0.
func RequestFor(n model.Notification, appName string, replaces uint32, withActions bool) NotifyRequest {
	summary := titleCase(string(n.Kind))
	if n.Count > 1 {
		summary += " (x" + strconv.Itoa(n.Count) + ")"
	}

	req := NotifyRequest{
		AppName:    appName,
		ReplacesID: replaces,
		AppIcon:    IconFor(n.Kind),
		Summary:    summary,
		Body:       n.Message,
		Hints: map[string]dbus.Variant{
			"urgency":   dbus.MakeVariant(UrgencyFor(n.Kind)),
			"category":  dbus.MakeVariant("toastui." + string(n.Kind)),
			"transient": dbus.MakeVariant(true),
			HintToastID: dbus.MakeVariant(n.ID),
		},
		ExpireTimeout: 0,
	}
	if withActions && n.HasAction() {
		req.Actions = []string{ActionKeyDefault, n.Action.Label}
	}
	return req
}

// ServerInfo is the reply of GetServerInformation.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
