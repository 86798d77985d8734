// Package report renders build reports and worker status for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/ui/style"
)

// Printer writes styled summaries to w.
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	verbose  bool
}

// New creates a printer for w using the given color profile.
func New(w io.Writer, profile termenv.Profile) *Printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Printer{w: w, renderer: r}
}

// Verbose also prints warnings of successful modules.
func (p *Printer) Verbose(enable bool) *Printer {
	p.verbose = enable
	return p
}

// Report prints one line per module followed by the failing modules' errors
// and a summary line.
func (p *Printer) Report(r *domain.BuildReport) {
	width := 0
	for _, res := range r.Results {
		width = max(width, len(res.Module))
	}

	faint := p.renderer.NewStyle().Foreground(style.Slate)
	failed := 0
	for _, res := range r.Results {
		icon, color := style.OutcomeIcon(res.Outcome)
		iconStyle := p.renderer.NewStyle().Foreground(color).Bold(true)
		_, _ = fmt.Fprintf(p.w, "%s %-*s  %s %s\n",
			iconStyle.Render(icon),
			width, res.Module,
			res.Outcome,
			faint.Render(formatDuration(res.Duration)),
		)

		if !res.Outcome.IsSuccess() {
			failed++
		}
		for _, d := range res.Diagnostics {
			if p.show(res.Outcome, d.Level) {
				_, _ = fmt.Fprintf(p.w, "    %s\n", d)
			}
		}
	}

	summary := fmt.Sprintf("%d modules built, %d failed", len(r.Results), failed)
	color := style.Green
	if failed > 0 {
		color = style.Red
	}
	_, _ = fmt.Fprintln(p.w, p.renderer.NewStyle().Foreground(color).Render(summary))
}

func (p *Printer) show(outcome domain.Outcome, level domain.LogLevel) bool {
	switch {
	case level >= domain.LogLevelError:
		return true
	case level == domain.LogLevelWarn:
		return p.verbose || !outcome.IsSuccess()
	default:
		return false
	}
}

// Order prints the build order, one module per line.
func (p *Printer) Order(order []string) {
	for i, name := range order {
		_, _ = fmt.Fprintf(p.w, "%3d  %s\n", i+1, name)
	}
}

// WorkerStatus prints the state of a worker.
func (p *Printer) WorkerStatus(workDir string, s *ports.WorkerStatus) {
	label := p.renderer.NewStyle().Foreground(style.Slate)
	if s == nil || !s.Running {
		_, _ = fmt.Fprintf(p.w, "%s no worker is running in %s\n",
			p.renderer.NewStyle().Foreground(style.Yellow).Render(style.Warning), workDir)
		return
	}

	rows := [][2]string{
		{"work dir", workDir},
		{"pid", fmt.Sprint(s.PID)},
		{"uptime", formatDuration(s.Uptime)},
		{"idle timeout in", formatDuration(s.IdleRemaining)},
		{"in flight", fmt.Sprint(s.InFlight)},
	}
	_, _ = fmt.Fprintf(p.w, "%s worker is running\n",
		p.renderer.NewStyle().Foreground(style.Green).Bold(true).Render(style.Check))
	for _, row := range rows {
		_, _ = fmt.Fprintf(p.w, "  %s %s\n", label.Render(fmt.Sprintf("%-16s", row[0])), row[1])
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
