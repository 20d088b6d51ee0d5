// Package report renders the human readable progress of channel updates.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	ruleWidth    = 50
	subRuleWidth = 30
	previewLimit = 50
)

// Printer writes console output. Colors are only emitted when the writer is a
// terminal that supports them.
type Printer struct {
	w     io.Writer
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func New(w io.Writer) *Printer {
	if w == nil {
		w = io.Discard
	}
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
		muted: r.NewStyle().Faint(true),
	}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer { return New(io.Discard) }

func (p *Printer) Writer() io.Writer { return p.w }

func (p *Printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *Printer) Rule() {
	p.line(strings.Repeat("=", ruleWidth))
}

// Banner prints a title framed by rules.
func (p *Printer) Banner(title string) {
	p.line("")
	p.Rule()
	p.line(p.title.Render(title))
	p.Rule()
	p.line("")
}

func (p *Printer) Infof(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

func (p *Printer) Step(n int, format string, args ...any) {
	p.line(fmt.Sprintf("[step %d] ", n) + fmt.Sprintf(format, args...))
}

func (p *Printer) OKf(format string, args ...any) {
	p.line(p.ok.Render("✅ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Failf(format string, args ...any) {
	p.line(p.fail.Render("❌ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.warn.Render("⚠️ " + fmt.Sprintf(format, args...)))
}

// Preview shortens a joined model list for display.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit]) + "..."
}

// Item announces the next channel of a batch run.
func (p *Printer) Item(processed, total, id int, status string) {
	p.line("")
	p.line(strings.Repeat("-", subRuleWidth))
	p.line(fmt.Sprintf("Running iteration %d/%d", processed, total))
	p.line(fmt.Sprintf("Processing channel ID: %d (status: %s)", id, status))
}

// Progress prints the running counters. total must be positive.
func (p *Printer) Progress(processed, total, success, fail int) {
	pct := float64(processed) / float64(total) * 100
	p.line("")
	p.line(fmt.Sprintf("Progress: %.1f%% (%d/%d) [success: %d, fail: %d]", pct, processed, total, success, fail))
}

func (p *Printer) Waiting(d time.Duration) {
	p.line(p.muted.Render(fmt.Sprintf("Waiting %.2f seconds before continuing...", d.Seconds())))
}

// Summary prints the closing block of a batch run. The completion line is
// omitted when nothing was expected.
func (p *Printer) Summary(total, success, fail int) {
	p.Rule()
	p.line(p.title.Render("Batch update summary:"))
	p.line(fmt.Sprintf("Total: %d", total))
	p.line(p.ok.Render(fmt.Sprintf("Success: %d", success)))
	p.line(p.fail.Render(fmt.Sprintf("Failed: %d", fail)))
	if total > 0 {
		p.line(fmt.Sprintf("Completion: %.1f%%", float64(success)/float64(total)*100))
	}
	p.Rule()
	p.line("")
}
