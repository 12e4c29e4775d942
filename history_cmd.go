package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/history"
)

var (
	historyLimit  int
	historyKeep   int
	historyFilter string
)

// historyScanLimit bounds how many sessions --filter searches when history
// keeps everything.
const historyScanLimit = 10000

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List recent narrations",
	Example: paragraph("narrate history\nnarrate history -n 50\nnarrate history --filter release\nnarrate history --keep 100"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cfg.History.Enabled || cfg.History.Path == "" {
			return fmt.Errorf("history is disabled in the configuration")
		}
		store, err := history.Open(cmd.Context(), cfg.History, nil)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if cmd.Flags().Changed("keep") {
			n, err := store.Prune(cmd.Context(), historyKeep)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Removed %s %s.\n", humanize.Comma(n), plural(n, "entry", "entries"))
			return nil
		}

		if historyFilter == "" {
			entries, err := store.Recent(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			return renderHistory(os.Stdout, entries, time.Now())
		}

		scan := store.MaxEntries()
		if scan <= 0 {
			scan = historyScanLimit
		}
		entries, err := store.Recent(cmd.Context(), scan)
		if err != nil {
			return err
		}
		matched := filterHistory(entries, historyFilter, historyLimit)
		if len(matched) == 0 {
			fmt.Fprintln(os.Stdout, subtle("No matching narrations."))
			return nil
		}
		return renderHistory(os.Stdout, matched, time.Now())
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().IntVar(&historyKeep, "keep", 0, "delete all but the newest N entries")
	historyCmd.Flags().StringVarP(&historyFilter, "filter", "f", "", "show entries whose text fuzzily matches, best match first")
}

func renderHistory(w io.Writer, entries []history.Entry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, subtle("No narrations yet."))
		return err
	}
	for _, e := range entries {
		outcome := keyword(e.Outcome)
		if e.Outcome != "complete" {
			outcome = errorStyle.Render(e.Outcome)
		}
		if _, err := fmt.Fprintf(w, "%-14s %-10s %3d/%-3d %-7s %s\n",
			humanize.RelTime(e.Started, now, "ago", "from now"),
			outcome,
			e.Played, e.Chunks,
			e.Engine,
			e.Preview,
		); err != nil {
			return err
		}
		if e.Error != "" {
			if _, err := fmt.Fprintf(w, "%14s %s\n", "", subtle(e.Error)); err != nil {
				return err
			}
		}
	}
	return nil
}

// filterHistory returns up to limit entries whose preview fuzzily matches
// pattern, best match first.
func filterHistory(entries []history.Entry, pattern string, limit int) []history.Entry {
	previews := make([]string, len(entries))
	for i, e := range entries {
		previews[i] = e.Preview
	}
	matches := fuzzy.Find(pattern, previews)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]history.Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
