package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"yt-transcripts/internal/model"
)

// Reporter receives run progress for user-facing output.
type Reporter interface {
	Start(total, resolved, pending int)
	Item(ev model.ItemEvent)
	Waiting(d time.Duration)
	Finish(s model.Summary)
}

type nopReporter struct{}

func (nopReporter) Start(int, int, int) {}
func (nopReporter) Item(model.ItemEvent) {}
func (nopReporter) Waiting(time.Duration) {}
func (nopReporter) Finish(model.Summary) {}

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// LineReporter prints one line per processed item.
type LineReporter struct {
	w       io.Writer
	verbose bool
}

func NewLineReporter(w io.Writer, verbose bool) *LineReporter {
	return &LineReporter{w: w, verbose: verbose}
}

func (r *LineReporter) Start(total, resolved, pending int) {
	fmt.Fprintf(r.w, "declared %d, already resolved %d, pending %d\n", total, resolved, pending)
}

func (r *LineReporter) Item(ev model.ItemEvent) {
	fmt.Fprintln(r.w, FormatItem(ev))
}

func (r *LineReporter) Waiting(d time.Duration) {
	if !r.verbose {
		return
	}
	fmt.Fprintln(r.w, mutedStyle.Render(fmt.Sprintf("      waiting %s", d.Round(100*time.Millisecond))))
}

func (r *LineReporter) Finish(s model.Summary) {
	if s.Aborted {
		fmt.Fprintln(r.w, warnStyle.Render(fmt.Sprintf("stopped: provider is blocking requests (at %s); resume later to continue", s.AbortedID)))
	}
}

// FormatItem renders one processed item as a status line.
func FormatItem(ev model.ItemEvent) string {
	prefix := fmt.Sprintf("[%d/%d]", ev.Index, ev.Pending)
	o := ev.Outcome
	switch o.Status {
	case model.StatusSuccess:
		return fmt.Sprintf("%s %s %s %s", prefix, okStyle.Render("done "), ev.ID,
			mutedStyle.Render(fmt.Sprintf("(%s chars, %s)", humanize.Comma(int64(len(o.Payload))), ev.Elapsed.Round(time.Millisecond))))
	case model.StatusPermanent:
		return fmt.Sprintf("%s %s %s (%s)", prefix, failStyle.Render("fail "), ev.ID, o.Kind)
	case model.StatusAborted:
		return fmt.Sprintf("%s %s %s %s", prefix, warnStyle.Render("block"), ev.ID, mutedStyle.Render(o.Detail))
	default:
		return fmt.Sprintf("%s %s %s %s", prefix, warnStyle.Render("retry"), ev.ID, mutedStyle.Render(o.Detail))
	}
}
