// Package audio holds the PCM clip type produced by synthesis engines and
// the sinks that play it: an oto/v3 device player and a recording mock.
package audio
