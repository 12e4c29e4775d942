package splitter

import (
	"strings"
	"unicode/utf8"
)

// Kind tells the pipeline how a chunk relates to its neighbours.
type Kind int

const (
	// KindText is ordinary speakable text.
	KindText Kind = iota
	// KindHeading is a structural line that is never merged.
	KindHeading
	// KindParagraphBreak marks one or more blank lines. It carries no text.
	KindParagraphBreak
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHeading:
		return "heading"
	case KindParagraphBreak:
		return "paragraph"
	default:
		return "unknown"
	}
}

// Chunk is one unit of text that is synthesized and played as a whole.
type Chunk struct {
	Text string
	Kind Kind
}

// IsBreak reports whether the chunk is a paragraph marker.
func (c Chunk) IsBreak() bool {
	return c.Kind == KindParagraphBreak
}

// SplitByLines splits text on newlines. Lines are trimmed, runs of blank
// lines between text become a single paragraph marker, headings are kept
// whole, and any other line longer than maxChars is split into sentences.
// A maxChars of zero disables the sentence split.
func SplitByLines(text string, maxChars int) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		chunks  []Chunk
		pending bool
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			pending = len(chunks) > 0
			continue
		}
		if pending {
			chunks = append(chunks, Chunk{Kind: KindParagraphBreak})
			pending = false
		}

		if IsHeading(line) != HeadingNone {
			chunks = append(chunks, Chunk{Text: line, Kind: KindHeading})
			continue
		}
		if maxChars > 0 && utf8.RuneCountInString(line) > maxChars {
			for _, s := range SplitIntoSentences(line, 0) {
				chunks = append(chunks, Chunk{Text: s, Kind: KindText})
			}
			continue
		}
		chunks = append(chunks, Chunk{Text: line, Kind: KindText})
	}
	return chunks
}

// Texts returns the text of every chunk, paragraph markers included as
// empty strings.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
