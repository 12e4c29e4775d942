package tts_test

import (
	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/tts"
	"github.com/dgnsrekt/narrate/internal/tts/engines"
)

// Compile-time interface compliance checks.
var (
	_ tts.Synthesizer = (*engines.DaemonEngine)(nil)
	_ tts.Synthesizer = (*engines.PiperEngine)(nil)
	_ tts.Synthesizer = (*engines.GTTSEngine)(nil)
	_ tts.Synthesizer = (*engines.MockEngine)(nil)
	_ tts.Synthesizer = (*engines.CachedEngine)(nil)

	_ tts.Warmer = (*engines.DaemonEngine)(nil)
	_ tts.Warmer = (*engines.CachedEngine)(nil)

	_ tts.Sink = (*audio.Player)(nil)
	_ tts.Sink = (*audio.MockPlayer)(nil)
)
