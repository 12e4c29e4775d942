package splitter

import (
	"golang.org/x/text/unicode/norm"
)

// Splitter turns raw text into the ordered chunk sequence the playback
// pipeline speaks. It is safe for concurrent use.
type Splitter struct {
	opts Options
}

// New returns a Splitter using opts. Zero-valued options are not replaced
// with defaults; start from DefaultOptions.
func New(opts Options) (*Splitter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{opts: opts}, nil
}

// Default returns a Splitter with DefaultOptions.
func Default() *Splitter {
	return &Splitter{opts: DefaultOptions()}
}

// Options returns the options the splitter was built with.
func (s *Splitter) Options() Options {
	return s.opts
}

// SplitText splits text into lines and sentences, then merges short pieces.
// The returned chunks never contain paragraph markers; they only prevent
// merging. The same input always yields the same output.
func (s *Splitter) SplitText(text string) []Chunk {
	text = norm.NFC.String(text)
	return mergeChunks(
		SplitByLines(text, s.opts.MaxLineChars),
		s.opts.MinChunkChars,
		s.opts.MaxChunkChars,
		s.opts.Separator,
	)
}

// Sentences splits text into sentences using the configured minimum
// sentence length, ignoring line structure.
func (s *Splitter) Sentences(text string) []string {
	return SplitIntoSentences(norm.NFC.String(text), s.opts.MinWordsPerSentence)
}
