package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/pipeline"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8"))

type (
	engineReadyMsg  struct{}
	statusMsg       pipeline.Status
	progressDoneMsg struct{}
)

// progressModel is a one-line status display: a spinner while the engine
// warms up, then the chunk being played.
type progressModel struct {
	spinner  spinner.Model
	engine   string
	ready    bool
	status   pipeline.Status
	active   bool
	quitting bool
}

func newProgressModel(engine string) progressModel {
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
		engine:  engine,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case engineReadyMsg:
		m.ready = true
		return m, nil

	case statusMsg:
		st := pipeline.Status(msg)
		m.ready = true
		m.status = st
		m.active = !st.State.Terminal()
		if st.State == pipeline.StateIdle && st.Attempt > 0 {
			return m, tea.Println(errorStyle.Render(fmt.Sprintf("network error, retrying (attempt %d)", st.Attempt+1)))
		}
		return m, nil

	case progressDoneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	switch {
	case m.quitting:
		return ""
	case !m.ready:
		return m.spinner.View() + " " + subtle(fmt.Sprintf("Loading %s engine…", m.engine))
	case !m.active:
		return ""
	}

	st := m.status
	var label string
	switch {
	case st.State == pipeline.StateIdle:
		label = "retrying"
	case st.State == pipeline.StateSynthesizing:
		label = "synthesizing"
	case st.Prefetching:
		label = "playing, next chunk loading"
	default:
		label = "playing"
	}
	return fmt.Sprintf("%s %s %s", m.spinner.View(), keyword(fmt.Sprintf("[%d/%d]", st.Index+1, st.Total)), subtle(label))
}

// progress runs progressModel inline on a terminal. A nil *progress is
// valid and prints plain lines instead.
type progress struct {
	program  *tea.Program
	done     chan struct{}
	stopOnce sync.Once
}

func startProgress(w io.Writer, engine string) *progress {
	p := &progress{
		program: tea.NewProgram(newProgressModel(engine),
			tea.WithOutput(w),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		if _, err := p.program.Run(); err != nil {
			log.Debug("progress display stopped", "err", err)
		}
	}()
	return p
}

// ready ends the warm-up spinner.
func (p *progress) ready() {
	if p == nil {
		return
	}
	p.program.Send(engineReadyMsg{})
}

// update is a pipeline state observer.
func (p *progress) update(st pipeline.Status) {
	if p == nil {
		return
	}
	p.program.Send(statusMsg(st))
}

// println writes a line above the status display.
func (p *progress) println(s string) {
	if p == nil {
		fmt.Fprintln(os.Stderr, s)
		return
	}
	select {
	case <-p.done:
		fmt.Fprintln(os.Stderr, s)
	default:
		p.program.Send(tea.Println(s)())
	}
}

// stop clears the display and waits for the terminal to be restored.
func (p *progress) stop() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		p.program.Send(progressDoneMsg{})
		<-p.done
	})
}
