// Package tts defines the contracts shared by synthesis engines, audio
// sinks and the playback pipeline, along with the error taxonomy used to
// decide whether a failed playback may be retried.
package tts
