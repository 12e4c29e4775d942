// Package pipeline streams a chunk sequence through a synthesizer to an
// audio sink. Synthesis of the next chunk overlaps playback of the current
// one, chunks play strictly in order, and a session can be cancelled at any
// point without leaving audio queued.
package pipeline
