// Package report writes the run's outputs: the live progress line, the
// daily census time series, and the optional per-symbiont export.
package report

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// logEvery is the day interval used when stdout is not a terminal.
const logEvery = 50

// Progress renders run progress. On a terminal it rewrites a single
// status line in place; otherwise it logs every logEvery days so piped
// output stays readable.
type Progress struct {
	horizon int
	tty     bool
	wrote   bool
}

// NewProgress returns a reporter for a run of the given horizon.
func NewProgress(horizonDays int) *Progress {
	return &Progress{
		horizon: horizonDays,
		tty:     isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Update reports the state at a recorded day boundary.
func (p *Progress) Update(day, population int, events uint64) {
	if p.tty {
		fmt.Printf("\rday %d/%d  population %s  events %s    ",
			day, p.horizon, humanize.Comma(int64(population)), humanize.Comma(int64(events)))
		p.wrote = true
		return
	}
	if day%logEvery == 0 || day == p.horizon {
		slog.Info("progress", "day", day, "horizon", p.horizon,
			"population", population, "events", events)
	}
}

// Done terminates the in-place status line, if one was drawn.
func (p *Progress) Done() {
	if p.tty && p.wrote {
		fmt.Println()
	}
}
