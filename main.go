// Package main provides the entry point for the narrate CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrate/internal/app"
	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/pipeline"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	debug        bool
	noColor      bool
	engineName   string
	mute         bool
	silence      time.Duration
	fromClip     bool
	watch        bool
	markdownMode bool
	text         string

	cfg    *config.Config
	loader = &config.Loader{}

	rootCmd = &cobra.Command{
		Use:   "narrate [FILE|-]",
		Short: "Read text aloud, one chunk at a time",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud %s. Text is split into short chunks and the next chunk is synthesized while the current one plays.", keyword("without the wait")),
		),
		Example: paragraph("narrate notes.md\ncat article.txt | narrate\nnarrate --clipboard --engine piper\nnarrate --watch draft.md"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		RunE: execute,
	}
)

// loadConfig reads the config and applies flags on top of it. Flags win
// over NARRATE_* variables, which win over the file.
func loadConfig(cmd *cobra.Command) error {
	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	loader.File = configFile
	loader.Logger = log.Default()
	c, err := loader.Load()
	if err != nil {
		return err
	}

	if debug || c.Debug {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.DebugLevel)
	}

	flags := cmd.Flags()
	if flags.Changed("engine") {
		c.TTS.Engine = engineName
	}
	if flags.Changed("mute") {
		c.Audio.Mute = mute
	}
	if flags.Changed("silence") {
		c.Playback.InsertSilence = silence > 0
		c.Playback.Silence = silence
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	src, err := resolveSource(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log.Default(), app.Options{Version: Version})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", "err", err)
		}
	}()

	info := a.EngineInfo()
	var prog *progress
	if term.IsTerminal(int(os.Stderr.Fd())) {
		prog = startProgress(os.Stderr, info.Name)
		defer prog.stop()
		a.Engine().OnStateChange(prog.update)
	} else {
		fmt.Fprintln(os.Stderr, subtle(fmt.Sprintf("Loading %s engine…", info.Name)))
	}

	select {
	case err := <-a.Start(ctx):
		if err != nil {
			return fmt.Errorf("engine warm-up: %w", err)
		}
	case <-ctx.Done():
		return nil
	}
	prog.ready()

	if watch {
		if src.path == "" {
			return errors.New("--watch needs a file argument")
		}
		return watchFile(ctx, a, src, prog)
	}

	body, err := src.read()
	if err != nil {
		return err
	}
	return speak(ctx, a, body, prog)
}

func speak(ctx context.Context, a *app.App, body string, prog *progress) error {
	st, err := a.Speak(ctx, body)
	if st.State == pipeline.StateCancelled {
		prog.println(subtle("Stopped."))
		return nil
	}
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.FileName+" in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log to stderr at debug level")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&engineName, "engine", "e", "", "synthesis engine: daemon, piper, gtts or mock")

	rootCmd.Flags().BoolVarP(&mute, "mute", "m", false, "run the pipeline without an audio device")
	rootCmd.Flags().DurationVar(&silence, "silence", 0, "pause inserted before every chunk after the first")
	rootCmd.PersistentFlags().BoolVarP(&fromClip, "clipboard", "c", false, "read the text from the clipboard")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "speak the file again whenever it changes")
	rootCmd.PersistentFlags().BoolVar(&markdownMode, "markdown", false, "treat the input as markdown even without a .md extension")
	rootCmd.PersistentFlags().StringVarP(&text, "text", "t", "", "use this text instead of a file")

	rootCmd.AddCommand(configCmd, manCmd, splitCmd, historyCmd, checkCmd)
}
