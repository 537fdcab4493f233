package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yt-transcripts/internal/model"
)

const tuiRecentLines = 8

type tuiStartMsg struct {
	total, resolved, pending int
}

type tuiItemMsg struct {
	ev model.ItemEvent
}

type tuiWaitMsg struct {
	delay time.Duration
}

type tuiFinishMsg struct {
	summary model.Summary
}

var tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

type tuiModel struct {
	bar      progress.Model
	title    string
	total    int
	resolved int
	pending  int
	done     int
	waiting  time.Duration
	recent   []string
	summary  *model.Summary
	stopping bool
	stop     func()
}

func newTUIModel(title string, stop func()) tuiModel {
	return tuiModel{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
		title: title,
		stop:  stop,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.stopping {
				// Second press: leave the view even if the run never reports back.
				return m, tea.Quit
			}
			m.stopping = true
			if m.stop != nil {
				m.stop()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-4, 80))
		return m, nil
	case tuiStartMsg:
		m.total, m.resolved, m.pending = msg.total, msg.resolved, msg.pending
		return m, nil
	case tuiItemMsg:
		m.done++
		m.waiting = 0
		m.recent = append(m.recent, FormatItem(msg.ev))
		if len(m.recent) > tuiRecentLines {
			m.recent = m.recent[len(m.recent)-tuiRecentLines:]
		}
		return m, nil
	case tuiWaitMsg:
		m.waiting = msg.delay
		return m, nil
	case tuiFinishMsg:
		s := msg.summary
		m.summary = &s
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) percent() float64 {
	if m.pending == 0 {
		return 1
	}
	return float64(m.done) / float64(m.pending)
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render(m.title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "declared %d  resolved before run %d  pending %d\n\n", m.total, m.resolved, m.pending)
	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, "  %d/%d\n\n", m.done, m.pending)
	for _, line := range m.recent {
		b.WriteString(line)
		b.WriteString("\n")
	}
	switch {
	case m.summary != nil:
		b.WriteString("\n")
		b.WriteString(FormatSummary(*m.summary))
		b.WriteString("\n")
	case m.stopping:
		b.WriteString(warnStyle.Render("\nstopping after the current item..."))
		b.WriteString("\n")
	case m.waiting > 0:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("\nwaiting %s before the next request", m.waiting.Round(100*time.Millisecond))))
		b.WriteString("\n")
	}
	return b.String()
}

// TUIReporter forwards progress to a running bubbletea program.
type TUIReporter struct {
	program *tea.Program
}

// NewTUI builds a full-screen progress view. stop is called when the user
// presses ctrl+c or q; it should cancel the run context.
func NewTUI(title string, stop func(), opts ...tea.ProgramOption) (*tea.Program, *TUIReporter) {
	p := tea.NewProgram(newTUIModel(title, stop), opts...)
	return p, &TUIReporter{program: p}
}

func (r *TUIReporter) Start(total, resolved, pending int) {
	r.program.Send(tuiStartMsg{total: total, resolved: resolved, pending: pending})
}

func (r *TUIReporter) Item(ev model.ItemEvent) {
	r.program.Send(tuiItemMsg{ev: ev})
}

func (r *TUIReporter) Waiting(d time.Duration) {
	r.program.Send(tuiWaitMsg{delay: d})
}

func (r *TUIReporter) Finish(s model.Summary) {
	r.program.Send(tuiFinishMsg{summary: s})
}

// FormatSummary renders the end-of-run counts on one line.
func FormatSummary(s model.Summary) string {
	line := fmt.Sprintf("total %d  succeeded %d  permanently failed %d  remaining %d  (attempted %d in %s)",
		s.Total, s.Succeeded, s.PermanentlyFailed, s.Remaining, s.Attempted, s.Elapsed.Round(time.Second))
	if s.Aborted {
		return warnStyle.Render("aborted: provider block at "+s.AbortedID) + "\n" + line
	}
	if s.Complete() {
		return okStyle.Render("complete") + "  " + line
	}
	return line
}
