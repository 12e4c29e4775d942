package splitter

import "fmt"

// Options holds the tuning knobs of a Splitter. The defaults were tuned by
// ear for English voices and usually need adjusting for other languages.
type Options struct {
	MinWordsPerSentence int    `yaml:"min_words_per_sentence" mapstructure:"min_words_per_sentence"`
	MaxLineChars        int    `yaml:"max_line_chars" mapstructure:"max_line_chars"`
	MinChunkChars       int    `yaml:"min_chunk_chars" mapstructure:"min_chunk_chars"`
	MaxChunkChars       int    `yaml:"max_chunk_chars" mapstructure:"max_chunk_chars"`
	Separator           string `yaml:"separator" mapstructure:"separator"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinWordsPerSentence: 5,
		MaxLineChars:        80,
		MinChunkChars:       20,
		MaxChunkChars:       80,
		Separator:           " ",
	}
}

// Validate checks that the options describe a usable size band.
func (o Options) Validate() error {
	if o.MinWordsPerSentence < 0 {
		return fmt.Errorf("min words per sentence must not be negative, got %d", o.MinWordsPerSentence)
	}
	if o.MinChunkChars < 0 {
		return fmt.Errorf("min chunk chars must not be negative, got %d", o.MinChunkChars)
	}
	if o.MaxChunkChars > 0 && o.MinChunkChars > o.MaxChunkChars {
		return fmt.Errorf("min chunk chars (%d) exceeds max chunk chars (%d)", o.MinChunkChars, o.MaxChunkChars)
	}
	if o.MaxLineChars < 0 || o.MaxChunkChars < 0 {
		return fmt.Errorf("character limits must not be negative")
	}
	// Lines between the two limits would skip the sentence split and
	// come out above the chunk cap.
	if o.MaxChunkChars > 0 && o.MaxLineChars > o.MaxChunkChars {
		return fmt.Errorf("max line chars (%d) exceeds max chunk chars (%d)", o.MaxLineChars, o.MaxChunkChars)
	}
	return nil
}
