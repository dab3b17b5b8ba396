// Package daemon hosts a toast dispatcher for long-running commands. It
// wires config hot reload, desktop forwarding and audio cues around the
// dispatcher and reports its own events as toasts.
package daemon
