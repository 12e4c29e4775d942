package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/history"
	"github.com/dgnsrekt/narrate/internal/pipeline"
	"github.com/dgnsrekt/narrate/internal/splitter"
)

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	l := &config.Loader{File: path, Paths: &config.Paths{}, Environ: map[string]string{}, Logger: log.New(io.Discard)}
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load(defaultConfig) error = %v", err)
	}

	want := config.Default()
	if got.Splitter != want.Splitter {
		t.Errorf("splitter = %+v, want %+v", got.Splitter, want.Splitter)
	}
	if got.Playback != want.Playback {
		t.Errorf("playback = %+v, want %+v", got.Playback, want.Playback)
	}
	if got.TTS.Daemon != want.TTS.Daemon {
		t.Errorf("daemon = %+v, want %+v", got.TTS.Daemon, want.TTS.Daemon)
	}
	if got.Cache != want.Cache {
		t.Errorf("cache = %+v, want %+v", got.Cache, want.Cache)
	}
	if got.History != want.History {
		t.Errorf("history = %+v, want %+v", got.History, want.History)
	}
}

func TestResolveSourceText(t *testing.T) {
	text, markdownMode = "# Title\n\nBody *text*.", true
	t.Cleanup(func() { text, markdownMode = "", false })

	src, err := resolveSource(nil)
	if err != nil {
		t.Fatalf("resolveSource() error = %v", err)
	}
	got, err := src.read()
	if err != nil {
		t.Fatalf("read() error = %v", err)
	}
	if got != "# Title\n\nBody text." {
		t.Errorf("read() = %q", got)
	}
}

func TestResolveSourceFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(md, []byte("---\ntitle: x\n---\nSee [docs](http://x).\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := resolveSource([]string{md})
	if err != nil {
		t.Fatalf("resolveSource() error = %v", err)
	}
	if !src.markdown {
		t.Error("markdown not detected from the extension")
	}
	got, err := src.read()
	if err != nil {
		t.Fatalf("read() error = %v", err)
	}
	if got != "See docs." {
		t.Errorf("read() = %q", got)
	}

	if _, err := resolveSource([]string{dir}); err == nil {
		t.Error("resolveSource() accepted a directory")
	}
	if _, err := resolveSource([]string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("resolveSource() accepted a missing file")
	}
}

func TestRenderChunks(t *testing.T) {
	chunks := splitter.Default().SplitText("# Title\n\nFirst paragraph line.\nSecond short line.")

	var plain bytes.Buffer
	if err := renderPlain(&plain, chunks); err != nil {
		t.Fatal(err)
	}
	if got := plain.String(); got != "# Title\nFirst paragraph line. Second short line.\n" {
		t.Errorf("renderPlain() = %q", got)
	}

	var styled bytes.Buffer
	if err := renderChunks(&styled, chunks, 80); err != nil {
		t.Fatal(err)
	}
	out := styled.String()
	for _, want := range []string{"# Title", "First paragraph line.", "2 chunks"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderChunks() output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var empty bytes.Buffer
	if err := renderHistory(&empty, nil, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty.String(), "No narrations yet.") {
		t.Errorf("renderHistory(nil) = %q", empty.String())
	}

	var buf bytes.Buffer
	err := renderHistory(&buf, []history.Entry{
		{Started: now.Add(-2 * time.Minute), Outcome: "complete", Chunks: 3, Played: 3, Engine: "mock", Preview: "Hello"},
		{Started: now.Add(-3 * time.Hour), Outcome: "failed", Chunks: 4, Played: 1, Engine: "gtts", Error: "chunk 1: offline"},
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 minutes ago", "complete", "3/3", "Hello", "3 hours ago", "failed", "chunk 1: offline"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderHistory() output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressModel(t *testing.T) {
	var m tea.Model = newProgressModel("mock")
	if view := m.View(); !strings.Contains(view, "Loading mock engine") {
		t.Errorf("warm-up view = %q", view)
	}

	m, _ = m.Update(engineReadyMsg{})
	if view := m.View(); view != "" {
		t.Errorf("idle view = %q, want empty", view)
	}

	m, _ = m.Update(statusMsg(pipeline.Status{State: pipeline.StatePlaying, Index: 1, Total: 4, Prefetching: true}))
	view := m.View()
	for _, want := range []string{"[2/4]", "next chunk loading"} {
		if !strings.Contains(view, want) {
			t.Errorf("playing view = %q, missing %q", view, want)
		}
	}

	var cmd tea.Cmd
	m, cmd = m.Update(statusMsg(pipeline.Status{State: pipeline.StateIdle, Attempt: 1, Total: 4}))
	if cmd == nil {
		t.Error("retry was not reported")
	}
	if view := m.View(); !strings.Contains(view, "retrying") {
		t.Errorf("retry view = %q", view)
	}

	m, _ = m.Update(statusMsg(pipeline.Status{State: pipeline.StateComplete, Index: 3, Total: 4}))
	if view := m.View(); view != "" {
		t.Errorf("finished view = %q, want empty", view)
	}

	m, cmd = m.Update(progressDoneMsg{})
	if cmd == nil {
		t.Fatal("done did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("done command = %T, want tea.QuitMsg", cmd())
	}
	if view := m.View(); view != "" {
		t.Errorf("view after quit = %q", view)
	}
}

func TestNilProgressIsSafe(t *testing.T) {
	var p *progress
	p.ready()
	p.update(pipeline.Status{State: pipeline.StatePlaying})
	p.stop()
}

func TestFilterHistory(t *testing.T) {
	entries := []history.Entry{
		{ID: "a", Preview: "release notes for june"},
		{ID: "b", Preview: "hello world"},
		{ID: "c", Preview: "quarterly report"},
	}

	tests := []struct {
		name    string
		pattern string
		limit   int
		want    int
		first   string
	}{
		{"single match", "rep", 20, 1, "c"},
		{"no match", "zzz", 20, 0, ""},
		{"limit applies", "o", 2, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterHistory(entries, tt.pattern, tt.limit)
			if len(got) != tt.want {
				t.Fatalf("filterHistory(%q) returned %d entries, want %d", tt.pattern, len(got), tt.want)
			}
			if tt.first != "" && got[0].ID != tt.first {
				t.Errorf("best match = %q, want %q", got[0].ID, tt.first)
			}
		})
	}
}
