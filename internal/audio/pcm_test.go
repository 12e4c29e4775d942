package audio

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		bytes  int
		want   time.Duration
	}{
		{"one second mono 44.1k", Mono16(44100), 88200, time.Second},
		{"half second mono 22.05k", Mono16(22050), 22050, 500 * time.Millisecond},
		{"stereo", Format{SampleRate: 48000, Channels: 2, BitDepth: 16}, 192000, time.Second},
		{"partial frame ignored", Mono16(44100), 3, 0},
		{"zero format", Format{}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Duration(tt.bytes); got != tt.want {
				t.Errorf("Duration(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestSilence(t *testing.T) {
	f := Mono16(44100)
	pad := f.Silence(250 * time.Millisecond)
	if len(pad) != 22050 {
		t.Fatalf("len(Silence(250ms)) = %d, want 22050", len(pad))
	}
	for i, b := range pad {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
	if got := f.Duration(len(pad)); got != 250*time.Millisecond {
		t.Errorf("silence lasts %v", got)
	}
	if f.Silence(0) != nil {
		t.Error("Silence(0) should be empty")
	}
}

func TestClipWithLeadingSilence(t *testing.T) {
	clip, err := NewClip([]byte{1, 2, 3, 4}, Mono16(8000))
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}
	padded := clip.WithLeadingSilence(time.Millisecond)
	if len(padded.Data) != 16+4 {
		t.Fatalf("len(padded) = %d, want 20", len(padded.Data))
	}
	if padded.Data[16] != 1 || padded.Data[19] != 4 {
		t.Errorf("audio not preserved after padding: %v", padded.Data[16:])
	}
	if len(clip.Data) != 4 {
		t.Error("original clip was modified")
	}
	if same := clip.WithLeadingSilence(0); same != clip {
		t.Error("zero padding should return the same clip")
	}
}

func TestNewClip(t *testing.T) {
	if _, err := NewClip([]byte{1, 2, 3}, Mono16(44100)); err == nil {
		t.Error("NewClip() accepted unaligned data")
	}
	if _, err := NewClip(nil, Format{SampleRate: 44100, Channels: 3, BitDepth: 16}); err == nil {
		t.Error("NewClip() accepted three channels")
	}
	clip, err := NewClip(make([]byte, 8820), DefaultFormat())
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}
	if clip.Duration() != 100*time.Millisecond {
		t.Errorf("Duration() = %v", clip.Duration())
	}
	var nilClip *Clip
	if !nilClip.Empty() || nilClip.Duration() != 0 {
		t.Error("nil clip should be empty")
	}
}

func TestMockPlayer(t *testing.T) {
	var played []*Clip
	stops := 0
	mp := NewMockPlayer(MockCallbacks{
		OnPlay: func(c *Clip) { played = append(played, c) },
		OnStop: func() { stops++ },
	})

	clip := &Clip{Data: make([]byte, 88200), Format: DefaultFormat()}
	if err := mp.Play(clip); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	_ = mp.Stop()

	if len(played) != 1 || stops != 1 {
		t.Errorf("callbacks saw %d plays and %d stops", len(played), stops)
	}
	m := mp.GetMetrics()
	if m.PlayCount != 1 || m.StopCount != 1 || m.TotalDuration != time.Second {
		t.Errorf("GetMetrics() = %+v", m)
	}

	boom := errors.New("boom")
	mp.SetPlayError(boom)
	if err := mp.Play(clip); !errors.Is(err, boom) {
		t.Errorf("Play() error = %v, want %v", err, boom)
	}

	_ = mp.Close()
	mp.SetPlayError(nil)
	if err := mp.Play(clip); err == nil {
		t.Error("Play() after Close() should fail")
	}
	if len(mp.Clips()) != 1 {
		t.Errorf("Clips() = %d, want 1", len(mp.Clips()))
	}
}
