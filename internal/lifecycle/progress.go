package lifecycle

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// PullPrinter writes pull progress as one line per status change or 10% step.
type PullPrinter struct {
	out    io.Writer
	bar    progress.Model
	status string
	step   int
}

// NewPullPrinter creates a printer writing to out.
func NewPullPrinter(out io.Writer, width int) *PullPrinter {
	return &PullPrinter{
		out: out,
		bar: progress.New(progress.WithWidth(width), progress.WithoutPercentage(), progress.WithSolidFill("7")),
	}
}

// Update prints p if it moves the status or crosses a 10% step.
func (p *PullPrinter) Update(pp PullProgress) {
	step := int(pp.Percent) / 10
	if pp.Status == p.status && (pp.Total == 0 || step == p.step) {
		return
	}
	if pp.Status != p.status {
		p.step = -1
	}
	p.status = pp.Status

	if pp.Total == 0 {
		_, _ = fmt.Fprintf(p.out, "  %s: %s\n", pp.Model, pp.Status)
		return
	}
	p.step = step
	_, _ = fmt.Fprintf(p.out, "  %s: %s %s %3.0f%% (%s/%s)\n",
		pp.Model, pp.Status, p.bar.ViewAs(pp.Percent/100), pp.Percent,
		FormatBytes(pp.Completed), FormatBytes(pp.Total))
}

// FormatBytes formats a byte count using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
