package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HeadingStyle identifies which rule classified a line as a heading.
type HeadingStyle int

const (
	// HeadingNone means the line is ordinary text.
	HeadingNone HeadingStyle = iota
	// HeadingLettered is a "<letter>." label such as "A. Scope".
	HeadingLettered
	// HeadingNumbered is a "<digits>." label such as "12. Results".
	HeadingNumbered
	// HeadingMarkdown is a line starting with "#".
	HeadingMarkdown
	// HeadingBullet is a "- " or "• " list item.
	HeadingBullet
)

func (h HeadingStyle) String() string {
	switch h {
	case HeadingNone:
		return "none"
	case HeadingLettered:
		return "lettered"
	case HeadingNumbered:
		return "numbered"
	case HeadingMarkdown:
		return "markdown"
	case HeadingBullet:
		return "bullet"
	default:
		return "unknown"
	}
}

// IsHeading classifies a trimmed line. Rules are tried in a fixed order and
// the first match wins.
func IsHeading(line string) HeadingStyle {
	switch {
	case hasLetterLabel(line):
		return HeadingLettered
	case hasNumberLabel(line):
		return HeadingNumbered
	case strings.HasPrefix(line, "#"):
		return HeadingMarkdown
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "• "):
		return HeadingBullet
	default:
		return HeadingNone
	}
}

// hasLetterLabel matches a single letter followed by a period that ends the
// line or is followed by whitespace, so "U.S. law" is not a label.
func hasLetterLabel(line string) bool {
	r, size := utf8.DecodeRuneInString(line)
	if !unicode.IsLetter(r) {
		return false
	}
	return labelEnd(line[size:])
}

func hasNumberLabel(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return false
	}
	return labelEnd(line[i:])
}

func labelEnd(rest string) bool {
	if !strings.HasPrefix(rest, ".") {
		return false
	}
	rest = rest[1:]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}
