// Package tui provides the live terminal view of a research run.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/probelab/probe/internal/orchestrator"
	"github.com/probelab/probe/pkg/models"
)

// maxLogLines bounds the event feed at the bottom of the view.
const maxLogLines = 6

// eventMsg wraps one orchestrator event for bubbletea.
type eventMsg orchestrator.Event

// eventsClosedMsg signals that the run finished and the channel drained.
type eventsClosedMsg struct{}

// taskRow is one sub-task line in the view.
type taskRow struct {
	id     string
	title  string
	status models.SubTaskStatus
}

// App is the bubbletea model for a live run.
type App struct {
	issueTitle string
	events     <-chan orchestrator.Event

	rows  []taskRow
	index map[string]int

	iteration int
	progress  float64
	logs      []string

	spin spinner.Model
	bar  progress.Model

	width    int
	done     bool
	quitting bool
	final    string
}

// New creates the run view for the given issue, fed by the orchestrator's
// event channel.
func New(issueTitle string, events <-chan orchestrator.Event) *App {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = spinnerStyle
	return &App{
		issueTitle: issueTitle,
		events:     events,
		index:      make(map[string]int),
		spin:       s,
		bar:        progress.New(progress.WithDefaultGradient()),
		width:      80,
	}
}

// Run blocks until the run finishes or the user quits.
func Run(issueTitle string, events <-chan orchestrator.Event) error {
	_, err := tea.NewProgram(New(issueTitle, events)).Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.waitForEvent())
}

// waitForEvent blocks on the orchestrator channel and forwards one event.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-a.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(event)
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}
		return a, nil

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.bar.Width = min(msg.Width-4, 60)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case eventMsg:
		a.apply(orchestrator.Event(msg))
		return a, a.waitForEvent()

	case eventsClosedMsg:
		a.done = true
		return a, tea.Quit
	}
	return a, nil
}

// apply folds one orchestrator event into the view state.
func (a *App) apply(event orchestrator.Event) {
	if event.Iteration > a.iteration {
		a.iteration = event.Iteration
	}

	switch event.Type {
	case orchestrator.EventRunStarted:
		a.log("run started")
	case orchestrator.EventTasksProposed:
		a.log("decomposer: " + event.Message)
	case orchestrator.EventTaskQueued:
		a.setTask(event, models.StatusReady)
	case orchestrator.EventTaskStarted:
		a.setTask(event, models.StatusRunning)
	case orchestrator.EventTaskCompleted:
		a.setTask(event, models.StatusCompleted)
		a.log("completed: " + event.TaskTitle)
	case orchestrator.EventTaskFailed:
		a.setTask(event, models.StatusFailed)
		if event.Error != nil {
			a.log(fmt.Sprintf("failed: %s (%v)", event.TaskTitle, event.Error))
		} else {
			a.log("failed: " + event.TaskTitle)
		}
	case orchestrator.EventIterationEvaluated:
		a.progress = event.Progress
		a.log(fmt.Sprintf("iteration %d: %.0f%% (%s)", event.Iteration, event.Progress, event.Message))
	case orchestrator.EventSynthesisStarted:
		a.log("synthesizing report...")
	case orchestrator.EventRunDone:
		a.progress = event.Progress
		a.final = event.Message
	}
}

func (a *App) setTask(event orchestrator.Event, status models.SubTaskStatus) {
	if i, ok := a.index[event.TaskID]; ok {
		a.rows[i].status = status
		return
	}
	a.index[event.TaskID] = len(a.rows)
	a.rows = append(a.rows, taskRow{id: event.TaskID, title: event.TaskTitle, status: status})
}

func (a *App) log(line string) {
	a.logs = append(a.logs, line)
	if len(a.logs) > maxLogLines {
		a.logs = a.logs[len(a.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	title := titleStyle.Render("probe") + " " + issueStyle.Render(a.issueTitle)

	bar := a.bar.ViewAs(a.progress / 100)
	status := fmt.Sprintf("iteration %d  %s %.0f%%", a.iteration, bar, a.progress)

	var tasks string
	for _, row := range a.rows {
		glyph := statusGlyph(row.status)
		if row.status == models.StatusRunning {
			glyph = a.spin.View()
		}
		tasks += fmt.Sprintf("  %s %s\n", glyph, row.title)
	}

	var feed string
	for _, line := range a.logs {
		feed += logStyle.Render("› "+line) + "\n"
	}

	footer := hintStyle.Render("q to quit")
	if a.final != "" {
		footer = doneStyle.Render(a.final)
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, "", status, "", tasks, feed, footer) + "\n"
}

// statusGlyph returns the colored marker for a task status.
func statusGlyph(status models.SubTaskStatus) string {
	switch status {
	case models.StatusCompleted:
		return completedStyle.Render("✓")
	case models.StatusFailed:
		return failedStyle.Render("✗")
	case models.StatusBlocked:
		return blockedStyle.Render("⊘")
	case models.StatusRunning:
		return runningStyle.Render("●")
	default:
		return pendingStyle.Render("·")
	}
}
