// Package markdown turns a markdown document into plain lines the splitter
// understands: headings keep their # marker, list items become "- " or
// "N. " lines, and blocks are separated by blank lines. Code and HTML are
// not spoken.
package markdown

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ToSpeech converts markdown source to speakable text.
func ToSpeech(src []byte) string {
	reader := text.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)

	w := &writer{source: reader.Source()}
	w.block(doc)
	return strings.TrimSpace(w.buf.String())
}

type writer struct {
	source []byte
	buf    strings.Builder
}

func (w *writer) line(s string) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return
	}
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *writer) blank() {
	w.buf.WriteByte('\n')
}

func (w *writer) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		return

	case *ast.Heading:
		w.line(strings.Repeat("#", n.Level) + " " + w.inline(n))
		w.blank()

	case *ast.Paragraph, *ast.TextBlock:
		w.line(w.inline(n))
		if _, tight := n.(*ast.TextBlock); !tight {
			w.blank()
		}

	case *ast.List:
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if n.IsOrdered() {
				marker = strconv.Itoa(num) + ". "
				num++
			}
			w.listItem(item, marker)
		}
		w.blank()

	case *ast.Blockquote:
		first := true
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.Paragraph); ok && first {
				w.line("Quote: " + w.inline(c))
				w.blank()
				first = false
				continue
			}
			w.block(c)
		}

	case *ast.ThematicBreak:
		w.blank()

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c)
		}
	}
}

// listItem writes the item's first text block after the marker and any
// nested blocks after it.
func (w *writer) listItem(item ast.Node, marker string) {
	wrote := false
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if !wrote {
				w.line(marker + w.inline(c))
				wrote = true
				continue
			}
		}
		w.block(c)
	}
}

func (w *writer) inline(node ast.Node) string {
	var sb strings.Builder
	w.collect(node, &sb)
	return sb.String()
}

func (w *writer) collect(node ast.Node, sb *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(w.source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(n.Value)
		case *ast.CodeSpan:
			w.collect(n, sb)
		case *ast.Image:
			if alt := w.inline(n); alt != "" {
				sb.WriteString(alt)
			}
		case *ast.RawHTML, *ast.AutoLink:
			// not spoken
		default:
			w.collect(c, sb)
		}
	}
}
