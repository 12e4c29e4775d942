package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/dgnsrekt/narrate/internal/markdown"
)

// source is where the text to speak comes from.
type source struct {
	path      string
	stdin     bool
	clipboard bool
	literal   *string
	markdown  bool
}

// resolveSource picks the input from the flags and the argument. A piped
// stdin is used when nothing else is given.
func resolveSource(args []string) (*source, error) {
	switch {
	case text != "":
		return &source{literal: &text, markdown: markdownMode}, nil
	case fromClip:
		return &source{clipboard: true, markdown: markdownMode}, nil
	case len(args) == 1 && args[0] == "-":
		return &source{stdin: true, markdown: markdownMode}, nil
	case len(args) == 1:
		p, err := filepath.Abs(args[0])
		if err != nil {
			return nil, fmt.Errorf("unable to get absolute path: %w", err)
		}
		if st, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("unable to open file: %w", err)
		} else if st.IsDir() {
			return nil, fmt.Errorf("%s is a directory", args[0])
		}
		return &source{path: p, markdown: markdownMode || markdown.IsMarkdownFile(p)}, nil
	}

	if yes, err := stdinIsPipe(); err != nil {
		return nil, err
	} else if yes {
		return &source{stdin: true, markdown: markdownMode}, nil
	}
	return nil, errors.New("nothing to read: pass a file, pipe text in, or use --clipboard or --text")
}

// read returns the speakable text of the source.
func (s *source) read() (string, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case s.literal != nil:
		b = []byte(*s.literal)
	case s.clipboard:
		var clip string
		if clip, err = clipboard.ReadAll(); err != nil {
			return "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		b = []byte(clip)
	case s.stdin:
		if b, err = io.ReadAll(os.Stdin); err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
	default:
		if b, err = os.ReadFile(s.path); err != nil {
			return "", fmt.Errorf("unable to read file: %w", err)
		}
	}

	if s.markdown {
		return markdown.ToSpeech(markdown.RemoveFrontmatter(b)), nil
	}
	return string(b), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}
