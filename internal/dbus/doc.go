// Package dbus forwards toasts to the running org.freedesktop.Notifications
// daemon on the session bus, so they also appear as desktop popups. Popup
// clicks and dismissals are routed back to the dispatcher.
package dbus
