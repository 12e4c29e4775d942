package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/tts"
	"github.com/dgnsrekt/narrate/internal/tts/engines"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	Short:   "Check that the configured engine is installed",
	Example: paragraph("narrate check\nnarrate check --engine piper"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		report := engines.Check(cfg.TTS)
		printReport(os.Stdout, report)
		if !report.Available {
			return fmt.Errorf("%w: %s", tts.ErrEngineNotAvailable, cfg.TTS.Engine)
		}
		return nil
	},
}

func printReport(w io.Writer, r *engines.Report) {
	status := keyword("ready")
	if !r.Available {
		status = errorStyle.Render("not ready")
	}
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render(r.Engine), status)

	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %s\n", k, r.Details[k])
	}
	if r.Err != nil {
		fmt.Fprintf(w, "\n%s\n", errorStyle.Render(r.Err.Error()))
	}
	if r.Guidance != "" {
		fmt.Fprintf(w, "\n%s\n", r.Guidance)
	}
}
