// Package engines contains the synthesis providers: a persistent local
// daemon, Piper (offline), gTTS (online) and a silent mock. Each one
// implements tts.Synthesizer and can be wrapped with the audio cache.
package engines
