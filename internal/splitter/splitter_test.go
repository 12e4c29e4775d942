package splitter

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitByLines(t *testing.T) {
	brk := Chunk{Kind: KindParagraphBreak}
	text := func(s string) Chunk { return Chunk{Text: s, Kind: KindText} }
	heading := func(s string) Chunk { return Chunk{Text: s, Kind: KindHeading} }

	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []Chunk
	}{
		{
			name:     "heading and paragraph",
			text:     "# Title\n\nFirst paragraph line.\nSecond short line.",
			maxChars: 40,
			want:     []Chunk{heading("# Title"), brk, text("First paragraph line."), text("Second short line.")},
		},
		{
			name:     "blank lines at the edges are dropped",
			text:     "\n\n  Hello  \n\n\n",
			maxChars: 40,
			want:     []Chunk{text("Hello")},
		},
		{
			name:     "a run of blank lines is one marker",
			text:     "alpha\n\n \n\t\nbeta",
			maxChars: 40,
			want:     []Chunk{text("alpha"), brk, text("beta")},
		},
		{
			name:     "long line split into sentences",
			text:     "This is the first one. And this is second.",
			maxChars: 20,
			want:     []Chunk{text("This is the first one."), text("And this is second.")},
		},
		{
			name:     "long heading kept whole",
			text:     "# A very long heading. It goes on and on.",
			maxChars: 10,
			want:     []Chunk{heading("# A very long heading. It goes on and on.")},
		},
		{
			name:     "windows line endings",
			text:     "one\r\n\r\ntwo\r\n",
			maxChars: 40,
			want:     []Chunk{text("one"), brk, text("two")},
		},
		{
			name:     "empty text",
			text:     "",
			maxChars: 40,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitByLines(tt.text, tt.maxChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitByLines() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want HeadingStyle
	}{
		{"A. Introduction", HeadingLettered},
		{"B.", HeadingLettered},
		{"12. Results", HeadingNumbered},
		{"1.", HeadingNumbered},
		{"# Title", HeadingMarkdown},
		{"### Deep", HeadingMarkdown},
		{"- item", HeadingBullet},
		{"• item", HeadingBullet},
		{"1. # both", HeadingNumbered},
		{"A. - both", HeadingLettered},
		{"U.S. law applies", HeadingNone},
		{"3.14 is pi", HeadingNone},
		{"-item", HeadingNone},
		{"Hello there.", HeadingNone},
		{"", HeadingNone},
	}

	for _, tt := range tests {
		if got := IsHeading(tt.line); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestMergeShortChunks(t *testing.T) {
	brk := Chunk{Kind: KindParagraphBreak}
	text := func(s string) Chunk { return Chunk{Text: s, Kind: KindText} }
	heading := func(s string) Chunk { return Chunk{Text: s, Kind: KindHeading} }

	tests := []struct {
		name     string
		chunks   []Chunk
		minChars int
		maxChars int
		sep      string
		want     []string
	}{
		{
			name:     "paragraph tail merged, heading alone",
			chunks:   SplitByLines("# Title\n\nFirst paragraph line.\nSecond short line.", 40),
			minChars: 20,
			maxChars: 80,
			want:     []string{"# Title", "First paragraph line. Second short line."},
		},
		{
			name:     "period inserted at the seam",
			chunks:   []Chunk{text("Hello there"), text("General Kenobi")},
			maxChars: 80,
			want:     []string{"Hello there. General Kenobi"},
		},
		{
			name:     "existing terminator kept",
			chunks:   []Chunk{text("Really?"), text("Yes!")},
			maxChars: 80,
			want:     []string{"Really? Yes!"},
		},
		{
			name:     "cap flushes and short tail stays within cap",
			chunks:   []Chunk{text("aaaa aaaa aaaa"), text("bbbb bbbb bbbb"), text("cccc")},
			minChars: 10,
			maxChars: 30,
			want:     []string{"aaaa aaaa aaaa. bbbb bbbb bbbb", "cccc"},
		},
		{
			name:     "paragraph break blocks merging",
			chunks:   []Chunk{text("Short one."), brk, text("Short two.")},
			minChars: 20,
			maxChars: 80,
			want:     []string{"Short one.", "Short two."},
		},
		{
			name:     "heading never merged",
			chunks:   []Chunk{text("Intro text."), heading("## Part"), text("Body.")},
			minChars: 20,
			maxChars: 80,
			want:     []string{"Intro text.", "## Part", "Body."},
		},
		{
			name:     "heading detected from text",
			chunks:   []Chunk{text("Before."), text("- bullet"), text("After.")},
			minChars: 20,
			maxChars: 80,
			want:     []string{"Before.", "- bullet", "After."},
		},
		{
			name:     "custom separator",
			chunks:   []Chunk{text("one."), text("two.")},
			maxChars: 80,
			sep:      " / ",
			want:     []string{"one. / two."},
		},
		{
			name:     "only markers",
			chunks:   []Chunk{brk, brk},
			minChars: 20,
			maxChars: 80,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sep := tt.sep
			if sep == "" {
				sep = " "
			}
			got := MergeShortChunks(tt.chunks, tt.minChars, tt.maxChars, sep)
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("MergeShortChunks() = %q, want %q", got, tt.want)
			}
		})
	}
}

const sample = `# Release notes

A. Summary
This release rewrites the audio path. Playback now starts sooner. Short
lines are merged.

1. Faster startup
2. Smaller cache
- works offline
• and online

The daemon speaks a tiny framed protocol over stdin and stdout. Each request carries a length prefix and the response carries raw samples back to the caller, which is more than eighty characters on one line.
Done.`

func TestSplitTextProperties(t *testing.T) {
	s := Default()
	opts := s.Options()
	chunks := s.SplitText(sample)
	if len(chunks) == 0 {
		t.Fatal("SplitText() returned no chunks")
	}

	atomic := map[string]bool{}
	for _, c := range SplitByLines(sample, opts.MaxLineChars) {
		atomic[c.Text] = true
	}

	for _, c := range chunks {
		if c.IsBreak() {
			t.Errorf("SplitText() emitted a paragraph marker")
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("SplitText() emitted an empty chunk")
		}
		if utf8.RuneCountInString(c.Text) > opts.MaxChunkChars && !atomic[c.Text] {
			t.Errorf("chunk %q exceeds %d chars", c.Text, opts.MaxChunkChars)
		}
	}

	for _, h := range []string{"# Release notes", "A. Summary", "1. Faster startup", "2. Smaller cache", "- works offline", "• and online"} {
		found := false
		for _, c := range chunks {
			if c.Text == h {
				found = c.Kind == KindHeading
			}
		}
		if !found {
			t.Errorf("heading %q not emitted standalone", h)
		}
	}

	for _, c := range chunks {
		if strings.Contains(c.Text, "merged.") && strings.Contains(c.Text, "Faster") {
			t.Errorf("chunk %q crosses a paragraph break", c.Text)
		}
	}

	if again := s.SplitText(sample); !reflect.DeepEqual(chunks, again) {
		t.Errorf("SplitText() is not deterministic")
	}
}

func TestSplitTextNormalizes(t *testing.T) {
	got := Default().SplitText("Cafe\u0301 time.")
	want := []Chunk{{Text: "Caf\u00e9 time.", Kind: KindText}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitText() = %+v, want %+v", got, want)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"min chunk above max", func(o *Options) { o.MinChunkChars = 100 }},
		{"negative min words", func(o *Options) { o.MinWordsPerSentence = -1 }},
		{"negative line limit", func(o *Options) { o.MaxLineChars = -1 }},
		{"line limit above chunk cap", func(o *Options) { o.MaxLineChars, o.MaxChunkChars = 200, 80 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if _, err := New(opts); err == nil {
				t.Errorf("New() accepted %+v", opts)
			}
		})
	}

	if _, err := New(DefaultOptions()); err != nil {
		t.Errorf("New(DefaultOptions()) = %v", err)
	}
}

func TestSplitTextRespectsChunkCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxLineChars, opts.MaxChunkChars = 60, 60
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	line := "The first sentence has some words in it. The second one has a few more words."
	for _, c := range s.SplitText(line) {
		if n := utf8.RuneCountInString(c.Text); n > opts.MaxChunkChars {
			t.Errorf("chunk %q is %d chars, cap %d", c.Text, n, opts.MaxChunkChars)
		}
	}
}
