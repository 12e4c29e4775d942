package splitter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnd matches terminal punctuation, any closing quotes or brackets
// and the whitespace that follows. The first group stops before the
// whitespace so the punctuation stays with its sentence.
var sentenceEnd = regexp.MustCompile(`([.!?]+["'”’»)\]]*)\s+`)

// trailingPunct is stripped from the last token before the abbreviation check.
const trailingPunct = `.!?,;:"'”’»)]`

// abbreviations that end in a period without ending a sentence. Checked
// case-sensitively against the token with trailing punctuation stripped.
var abbreviations = makeAbbreviationSet()

func makeAbbreviationSet() map[string]struct{} {
	abbrevs := []string{
		"Mr", "Mrs", "Ms", "Dr", "Prof", "Sr", "Jr", "St", "Mt", "Gen", "Gov", "Sen", "Rep",
		"Ph.D", "M.D", "B.A", "M.A", "B.S",
		"Inc", "Ltd", "Co", "Corp", "LLC",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx",
		"Jan", "Feb", "Mar", "Apr", "Jun", "Jul", "Aug", "Sep", "Sept", "Oct", "Nov", "Dec",
		"Mon", "Tue", "Tues", "Wed", "Thu", "Thurs", "Fri", "Sat", "Sun",
		"U.S", "U.K", "U.N", "E.U", "N.Y", "L.A", "D.C",
		"Ave", "Blvd", "Rd", "Ln", "Ct",
	}

	m := make(map[string]struct{}, len(abbrevs))
	for _, a := range abbrevs {
		m[a] = struct{}{}
	}
	return m
}

// SplitIntoSentences splits text on sentence-ending punctuation. Text with
// fewer than minWords+2 words is returned whole. Periods that follow an
// abbreviation, a short all-caps token or a single letter do not split.
// Sentences shorter than minWords words are combined with a neighbour as
// long as the group stays within 2*minWords words.
//
// The result is empty only when text is blank.
func SplitIntoSentences(text string, minWords int) []string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	if wordCount(cleaned) < minWords+2 {
		return []string{cleaned}
	}

	sentences := combineShort(joinFalseBoundaries(candidates(cleaned)), minWords)
	if len(sentences) == 0 {
		return []string{cleaned}
	}
	return sentences
}

func candidates(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		if s := strings.TrimSpace(text[start:m[3]]); s != "" {
			out = append(out, s)
		}
		start = m[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func joinFalseBoundaries(sentences []string) []string {
	out := make([]string, 0, len(sentences))
	for i := 0; i < len(sentences); i++ {
		cur := sentences[i]
		for i+1 < len(sentences) && endsAtFalseBoundary(cur) {
			i++
			cur += " " + sentences[i]
		}
		out = append(out, cur)
	}
	return out
}

// endsAtFalseBoundary reports whether the final period of s belongs to its
// last token rather than ending the sentence.
func endsAtFalseBoundary(s string) bool {
	if !strings.HasSuffix(strings.TrimRight(s, `"'”’»)]`), ".") {
		return false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	token := strings.TrimRight(fields[len(fields)-1], trailingPunct)
	if token == "" {
		return false
	}
	if _, ok := abbreviations[token]; ok {
		return true
	}

	n := utf8.RuneCountInString(token)
	if n == 1 {
		r, _ := utf8.DecodeRuneInString(token)
		return unicode.IsLetter(r)
	}
	return n <= 4 && isUpperWord(token)
}

func isUpperWord(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// combineShort walks backwards so that a short trailing group absorbs the
// sentence before it, keeping the group within 2*minWords words.
func combineShort(sentences []string, minWords int) []string {
	if minWords <= 0 || len(sentences) < 2 {
		return sentences
	}
	limit := 2 * minWords

	last := len(sentences) - 1
	group, groupWords := sentences[last], wordCount(sentences[last])
	reversed := make([]string, 0, len(sentences))
	for i := last - 1; i >= 0; i-- {
		words := wordCount(sentences[i])
		if groupWords < minWords && groupWords+words <= limit {
			group = sentences[i] + " " + group
			groupWords += words
			continue
		}
		reversed = append(reversed, group)
		group, groupWords = sentences[i], words
	}
	reversed = append(reversed, group)

	out := make([]string, len(reversed))
	for i, s := range reversed {
		out[len(reversed)-1-i] = s
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
