package markdown

import "testing"

func TestToSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and paragraph",
			in:   "# Title\n\nSome *emphasis* and a [link](https://example.com).\n",
			want: "# Title\n\nSome emphasis and a link.",
		},
		{
			name: "soft line breaks join",
			in:   "first line\nsecond line\n",
			want: "first line second line",
		},
		{
			name: "code is skipped",
			in:   "Before.\n\n```go\nfmt.Println()\n```\n\nAfter `x`.\n",
			want: "Before.\n\nAfter x.",
		},
		{
			name: "lists",
			in:   "- one\n- two\n\n3. three\n4. four\n",
			want: "- one\n- two\n\n3. three\n4. four",
		},
		{
			name: "blockquote",
			in:   "> wise words\n",
			want: "Quote: wise words",
		},
		{
			name: "image alt text",
			in:   "![a cat](cat.png)\n",
			want: "a cat",
		},
		{
			name: "html dropped",
			in:   "<div>hidden</div>\n\nShown.\n",
			want: "Shown.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToSpeech([]byte(tt.in)); got != tt.want {
				t.Errorf("ToSpeech() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoveFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"frontmatter", "---\ntitle: x\n---\n# Body\n", "# Body\n"},
		{"none", "# Body\n", "# Body\n"},
		{"rule later in file", "# Body\n\n---\n\nMore\n", "# Body\n\n---\n\nMore\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RemoveFrontmatter([]byte(tt.in))); got != tt.want {
				t.Errorf("RemoveFrontmatter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMarkdownFile(t *testing.T) {
	for name, want := range map[string]bool{
		"README.md":      true,
		"notes.Markdown": true,
		"story.txt":      false,
		"Makefile":       false,
	} {
		if got := IsMarkdownFile(name); got != want {
			t.Errorf("IsMarkdownFile(%q) = %v, want %v", name, got, want)
		}
	}
}
