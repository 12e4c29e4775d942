package splitter

import (
	"strings"
	"unicode/utf8"
)

// terminators end a sentence for the purpose of merge punctuation.
const terminators = ".!?…。！？"

// MergeShortChunks greedily joins adjacent text chunks while the result
// stays within maxChars. Paragraph markers flush the buffer and are dropped.
// Headings flush the buffer and are emitted on their own. A final buffer
// shorter than minChars is folded into the chunk before it when both sit in
// the same paragraph and the fold stays within maxChars.
func MergeShortChunks(chunks []Chunk, minChars, maxChars int, separator string) []string {
	return Texts(mergeChunks(chunks, minChars, maxChars, separator))
}

func mergeChunks(chunks []Chunk, minChars, maxChars int, separator string) []Chunk {
	var (
		out []Chunk
		buf string
		// foldable is true while the last emitted chunk is text from the
		// paragraph the buffer belongs to.
		foldable bool
	)
	flush := func() {
		if buf == "" {
			return
		}
		out = append(out, Chunk{Text: buf, Kind: KindText})
		buf = ""
		foldable = true
	}

	for _, c := range chunks {
		switch {
		case c.Kind == KindParagraphBreak:
			flush()
			foldable = false
		case isHeadingChunk(c):
			flush()
			out = append(out, Chunk{Text: strings.TrimSpace(c.Text), Kind: KindHeading})
			foldable = false
		default:
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			if buf == "" {
				buf = text
				continue
			}
			if joined := joinChunks(buf, text, separator); fits(joined, maxChars) {
				buf = joined
				continue
			}
			flush()
			buf = text
		}
	}

	if buf == "" {
		return out
	}
	if foldable && utf8.RuneCountInString(buf) < minChars {
		prev := &out[len(out)-1]
		if joined := joinChunks(prev.Text, buf, separator); fits(joined, maxChars) {
			prev.Text = joined
			return out
		}
	}
	return append(out, Chunk{Text: buf, Kind: KindText})
}

func isHeadingChunk(c Chunk) bool {
	return c.Kind == KindHeading || IsHeading(strings.TrimSpace(c.Text)) != HeadingNone
}

// joinChunks appends b to a, inserting a period first when a does not end
// a sentence so the voice pauses at the seam.
func joinChunks(a, b, separator string) string {
	if !endsSentence(a) {
		a += "."
	}
	return a + separator + b
}

func endsSentence(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimRight(s, `"'”’»)]`))
	return strings.ContainsRune(terminators, r)
}

func fits(s string, maxChars int) bool {
	return maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars
}
