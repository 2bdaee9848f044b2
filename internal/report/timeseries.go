package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"spongesim/internal/sim"
)

// WriteTimeSeries writes the daily census as CSV: one row per day from
// 0 through the horizon, a total column, and one column per clade. The
// column set depends on the configured clades, so the header is built
// dynamically rather than from struct tags.
func WriteTimeSeries(path string, res *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create time series: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"day", "total"}, res.CladeNames...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write time series header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range res.Census {
		row[0] = strconv.Itoa(rec.Day)
		row[1] = strconv.Itoa(rec.Total)
		for i, n := range rec.PerClade {
			row[2+i] = strconv.Itoa(n)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write time series day %d: %w", rec.Day, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush time series: %w", err)
	}
	return nil
}
