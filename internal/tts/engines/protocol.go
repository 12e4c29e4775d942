package engines

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Daemon wire format. Every request is a little-endian uint32 length
// followed by UTF-8 text. A synthesis or control request is answered with
// a length-prefixed payload of 16-bit mono PCM; a zero length means the
// daemon had nothing to return. PING is answered with the raw bytes
// "PONG\n".
const (
	cmdPing  = "PING"
	cmdQuit  = "QUIT"
	cmdVoice = "VOICE:"
	cmdLang  = "LANG:"
	cmdSpeed = "SPEED:"

	pong = "PONG\n"

	// maxRequestBytes is the daemon's request limit. Longer requests are
	// answered without the body being read, so they must never be sent.
	maxRequestBytes = 100_000

	// maxResponseBytes bounds a single PCM response.
	maxResponseBytes = 64 << 20

	readyPrefix = "READY"
)

var errFrameTooLarge = errors.New("frame exceeds limit")

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxRequestBytes {
		return fmt.Errorf("request of %d bytes: %w", len(payload), errFrameTooLarge)
	}
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader, limit int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if int64(n) > int64(limit) {
		return nil, fmt.Errorf("response of %d bytes: %w", n, errFrameTooLarge)
	}
	if n == 0 {
		return nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func readPong(r io.Reader) error {
	buf := make([]byte, len(pong))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, []byte(pong)) {
		return fmt.Errorf("unexpected ping reply %q", buf)
	}
	return nil
}

// parseReady reports whether line is the daemon's readiness line and the
// sample rate it announces. A bare "READY" yields a rate of zero.
func parseReady(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != readyPrefix {
		return 0, false
	}
	for _, f := range fields[1:] {
		v, ok := strings.CutPrefix(f, "sample_rate=")
		if !ok {
			continue
		}
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return rate, true
		}
	}
	return 0, true
}

// isControl reports whether the daemon would treat text as a command
// instead of speech.
func isControl(text string) bool {
	switch text {
	case cmdPing, cmdQuit:
		return true
	}
	for _, p := range []string{cmdVoice, cmdLang, cmdSpeed} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
