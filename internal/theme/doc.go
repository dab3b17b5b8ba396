// Package theme provides color palettes for the terminal renderer.
package theme
