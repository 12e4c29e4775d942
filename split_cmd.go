package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrate/internal/splitter"
)

var plainSplit bool

var splitCmd = &cobra.Command{
	Use:     "split [FILE|-]",
	Short:   "Print the chunks a text would be spoken in",
	Long:    paragraph(fmt.Sprintf("\n%s a text the way narrate would before speaking it, without synthesizing anything.", keyword("Split"))),
	Example: paragraph("narrate split notes.md\nnarrate split --plain - < article.txt"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		src, err := resolveSource(args)
		if err != nil {
			return err
		}
		body, err := src.read()
		if err != nil {
			return err
		}

		sp, err := splitter.New(cfg.Splitter)
		if err != nil {
			return err
		}
		chunks := sp.SplitText(body)

		if plainSplit || !term.IsTerminal(int(os.Stdout.Fd())) {
			return renderPlain(os.Stdout, chunks)
		}
		return renderChunks(os.Stdout, chunks, terminalWidth())
	},
}

func init() {
	splitCmd.Flags().BoolVar(&plainSplit, "plain", false, "print one chunk per line without styling")
}

func terminalWidth() int {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w, 120)
	}
	return width
}

func renderPlain(w io.Writer, chunks []splitter.Chunk) error {
	for _, c := range chunks {
		if _, err := fmt.Fprintln(w, c.Text); err != nil {
			return err
		}
	}
	return nil
}

// renderChunks prints numbered chunks wrapped to width, headings
// highlighted.
func renderChunks(w io.Writer, chunks []splitter.Chunk, width int) error {
	const gutter = 6
	var b strings.Builder
	for i, c := range chunks {
		text := c.Text
		if c.Kind == splitter.KindHeading {
			text = headingStyle.Render(text)
		}
		body := indent.String(wordwrap.String(text, max(width-gutter, 20)), gutter)
		num := subtle(fmt.Sprintf("%4d", i+1))
		// The number replaces the first line's indent.
		fmt.Fprintf(&b, "%s  %s\n", num, strings.TrimLeft(body, " "))
	}
	fmt.Fprintf(&b, "\n%s\n", subtle(fmt.Sprintf("%d chunks", len(chunks))))
	_, err := io.WriteString(w, b.String())
	return err
}
