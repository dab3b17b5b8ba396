// Package audio plays a short sound when a toast appears. Sounds are WAV,
// OGG or MP3 files configured per kind and decoded with the beep library.
package audio
