package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/hnoss/searchtools/internal/progress"
)

// ProgressPrinter renders scan progress as a single status line.
// On a terminal the line is rewritten in place; otherwise one line is
// written per event.
type ProgressPrinter struct {
	writer   io.Writer
	inPlace  bool
	mu       sync.Mutex
	lastWide int
}

// NewProgressPrinter creates a printer for w.
func NewProgressPrinter(w io.Writer) *ProgressPrinter {
	return &ProgressPrinter{
		writer:  w,
		inPlace: IsTerminal(w),
	}
}

// Report implements progress.Reporter.
// Format: "   Parsed <n> files and found <m> files (<rate>/s)"; the final
// line carries the elapsed seconds instead of the rate.
func (p *ProgressPrinter) Report(e progress.Event) {
	if p.writer == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var line string
	if e.Done {
		line = fmt.Sprintf("   Parsed %d files and found %d files (%.2fs)", e.Scanned, e.Found, e.Elapsed.Seconds())
	} else {
		line = fmt.Sprintf("   Parsed %d files and found %d files (%.0f/s)", e.Scanned, e.Found, e.Rate)
	}

	if !p.inPlace {
		fmt.Fprintln(p.writer, line)
		return
	}

	pad := max(p.lastWide-len(line), 0)
	p.lastWide = len(line)
	if e.Done {
		fmt.Fprintf(p.writer, "\r%s%*s\n", color.GreenString(line), pad, "")
		p.lastWide = 0
		return
	}
	fmt.Fprintf(p.writer, "\r%s%*s", color.CyanString(line), pad, "")
}
