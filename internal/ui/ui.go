package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likeshift/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.SyncEngine
	opts         tasks.RunOpts
	sourceName   string
	width        int
	progressChan chan tasks.ProgressUpdate
	done         chan syncCompleteMsg
	update       tasks.ProgressUpdate
	recent       []string
	result       *tasks.RunResult
	err          error
	spin         spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a new TUI model wrapping one sync run.
func NewModel(ctx context.Context, engine *tasks.SyncEngine, sourceName string, opts tasks.RunOpts) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title

	return &Model{
		ctx:        ctx,
		view:       ConfirmView,
		engine:     engine,
		opts:       opts,
		sourceName: sourceName,
		spin:       s,
		bar:        progress.New(progress.WithDefaultGradient()),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the spinner tick loop.
func (m *Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			if msg.String() == "q" || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		default:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.update = tasks.ProgressUpdate(msg)
		if m.update.Phase != tasks.ReadSource && m.update.Phase != tasks.RunCompleted {
			m.recent = append(m.recent, m.update.Message)
			if len(m.recent) > 5 {
				m.recent = m.recent[len(m.recent)-5:]
			}
		}
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.view = SyncView
		return m, m.startSync()
	case "n", "esc", "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncCompleteMsg, 1)

	go func() {
		result, err := m.engine.Run(m.ctx, m.progressChan, m.opts)
		done <- syncCompleteMsg{result: result, err: err}
		close(m.progressChan)
	}()

	m.done = done
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync liked songs from %s?", m.sourceName))

	var details strings.Builder
	if m.opts.StartIndex > 0 {
		details.WriteString(fmt.Sprintf("Start index: %d\n", m.opts.StartIndex))
	}
	if m.opts.Limit > 0 {
		details.WriteString(fmt.Sprintf("Limit: %d tracks\n", m.opts.Limit))
	}
	if m.opts.DryRun {
		details.WriteString(styles.warn.Render("Dry run: nothing will be liked or recorded") + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})

	return fmt.Sprintf("%s\n%s\n%s", title, details.String(), helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("%s Syncing liked songs", m.spin.View()))

	ratio := 0.0
	if m.update.Total > 0 {
		ratio = float64(m.update.Step) / float64(m.update.Total)
	}
	bar := m.bar.ViewAs(ratio)

	recent := styles.help.Render(strings.Join(m.recent, "\n"))

	return fmt.Sprintf("%s\n%s\n\n%s\n", title, bar, recent)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		body := styles.err.Render(fmt.Sprintf("Sync halted: %v", m.err))
		if m.result != nil && m.result.LastIndex > 0 {
			body += fmt.Sprintf("\nResume will continue from track %d.", m.result.LastIndex+1)
		}
		return fmt.Sprintf("%s\n\nPress q to quit\n", body)
	}

	if m.result == nil {
		return styles.err.Render("No result available") + "\n\nPress q to quit\n"
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nSource: %s (%d tracks)\nCommitted: %d\nDuplicates skipped: %d\nFailed: %d\n",
		m.result.Source, m.result.TotalTracks,
		m.result.Committed, m.result.Duplicates, m.result.Failed,
	)

	var failed string
	if len(m.result.Failures) > 0 {
		failed = "\n" + styles.warn.Render("Unmatched tracks:")
		for _, entry := range m.result.Failures {
			failed += fmt.Sprintf("\n  • %s - %s (%s)", entry.Artist, entry.Title, entry.Reason)
		}
		failed += "\n"
	}

	return fmt.Sprintf("%s%s%s\nPress q to quit\n", title, info, failed)
}
