package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/1F47E/geojson-rtree/internal/bench"
	"github.com/1F47E/geojson-rtree/internal/ingest"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2).
			MarginTop(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

// interactive is false when stdout is redirected; output is then plain text
var interactive = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var errInterrupted = errors.New("interrupted")

type stat struct {
	label string
	value string
	bad   bool
}

// renderBlock formats a titled list of stats, boxed when styled.
func renderBlock(title string, stats []stat, styled bool) string {
	var b strings.Builder
	if !styled {
		fmt.Fprintf(&b, "=== %s ===\n", title)
		for _, s := range stats {
			fmt.Fprintf(&b, "%s: %s\n", s.label, s.value)
		}
		return b.String()
	}

	b.WriteString(successStyle.Render(title))
	b.WriteString("\n")
	for _, s := range stats {
		value := statStyle.Render(s.value)
		if s.bad {
			value = errorStyle.Render(s.value)
		}
		fmt.Fprintf(&b, "\n✓ %s: %s", s.label, value)
	}
	return boxStyle.Render(b.String()) + "\n"
}

func benchStats(res bench.Result, workers int) []stat {
	return []stat{
		{label: "Query Type", value: res.QueryType},
		{label: "Total Queries", value: fmt.Sprint(res.TotalQueries)},
		{label: "Errors", value: fmt.Sprint(res.Errors), bad: res.Errors > 0},
		{label: "Total Duration", value: res.TotalDuration.String()},
		{label: "Average Duration", value: res.AvgDuration.String()},
		{label: "Queries/Second", value: fmt.Sprintf("%.2f", res.QueriesPerSec)},
		{label: "Min Duration", value: res.MinDuration.String()},
		{label: "Max Duration", value: res.MaxDuration.String()},
		{label: "Total Results", value: fmt.Sprint(res.TotalResults)},
		{label: "Avg Results/Query", value: fmt.Sprintf("%.2f", res.AvgResults)},
		{label: "Workers Used", value: fmt.Sprint(workers)},
		{label: "CPU Cores", value: fmt.Sprint(runtime.NumCPU())},
	}
}

func loadStats(report ingest.Report, indexed int64) []stat {
	return []stat{
		{label: "Files", value: fmt.Sprint(report.Files)},
		{label: "Records", value: fmt.Sprint(report.Records)},
		{label: "Indexed", value: fmt.Sprint(indexed)},
		{label: "Rejected", value: fmt.Sprint(len(report.Rejected)), bad: len(report.Rejected) > 0},
		{label: "Duration", value: report.Duration.String()},
	}
}

func renderRejections(rejected []ingest.Rejection, styled bool) string {
	var b strings.Builder
	for _, r := range rejected {
		line := fmt.Sprintf("  %s #%d: %v", r.Path, r.Index, r.Err)
		if styled {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

type progressMsg float64

type doneMsg struct {
	err error
}

// taskModel shows a spinner, plus a progress bar when the amount of work is known
type taskModel struct {
	title    string
	total    int
	spinner  spinner.Model
	progress progress.Model
	percent  float64
	done     bool
	err      error
}

func newTaskModel(title string, total int) taskModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return taskModel{
		title:    title,
		total:    total,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m taskModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(msg.Width-10, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.done = true
			m.err = errInterrupted
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		m.percent = float64(msg)
		return m, m.progress.SetPercent(m.percent)

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m taskModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.spinner.View() + " " + m.title + "\n")
	if m.total > 0 {
		b.WriteString("\n" + m.progress.ViewAs(m.percent) + "\n")
	}
	b.WriteString(dimStyle.Render("Press 'q' to quit"))
	return b.String()
}

// runTask runs work while the task model is on screen. work calls tick once
// per finished unit out of total. Without a terminal work runs directly.
func runTask(title string, total int, work func(tick func()) error) error {
	if !interactive {
		return work(func() {})
	}

	var count atomic.Int64
	program := tea.NewProgram(newTaskModel(title, total))
	finished := make(chan struct{})

	go func() {
		err := work(func() { count.Add(1) })
		close(finished)
		program.Send(doneMsg{err: err})
	}()

	if total > 0 {
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case <-finished:
					return
				case <-ticker.C:
					program.Send(progressMsg(min(float64(count.Load())/float64(total), 1)))
				}
			}
		}()
	}

	final, err := program.Run()
	if err != nil {
		return err
	}
	return final.(taskModel).err
}
