package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"spongesim/internal/sim"
)

func TestWriteTimeSeries(t *testing.T) {
	res := &sim.Result{
		HorizonDays: 2,
		CladeNames:  []string{"A", "B"},
		Census: []sim.DayRecord{
			{Day: 0, Total: 5, PerClade: []int{3, 2}},
			{Day: 1, Total: 7, PerClade: []int{4, 3}},
			{Day: 2, Total: 6, PerClade: []int{4, 2}},
		},
	}

	path := filepath.Join(t.TempDir(), "pop.csv")
	if err := WriteTimeSeries(path, res); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("%d rows, want header + 3 days", len(rows))
	}

	wantHeader := []string{"day", "total", "A", "B"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}
	wantDay1 := []string{"1", "7", "4", "3"}
	for i, v := range wantDay1 {
		if rows[2][i] != v {
			t.Fatalf("day 1 row = %v, want %v", rows[2], wantDay1)
		}
	}
}

func TestWriteSymbionts(t *testing.T) {
	records := []sim.SymbiontRecord{
		{
			ID: 3, Clade: "A", HowArrived: "pool", ParentID: -1, ProgenitorID: 3,
			ArrivalTime: 1.5, ExitTime: 4.25, ExitStatus: "digestion",
			ResidenceTime: 2.75, Divisions: 1,
			CellsInhabited: "(0,1);(2,2)", InhabitTimes: "1.5;2",
		},
	}

	path := filepath.Join(t.TempDir(), "symbionts.csv")
	if err := WriteSymbionts(path, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("%d rows, want header + 1 record", len(rows))
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[name] = i
	}
	checks := map[string]string{
		"symbiont_id":     "3",
		"clade":           "A",
		"how_arrived":     "pool",
		"exit_status":     "digestion",
		"cells_inhabited": "(0,1);(2,2)",
	}
	for col, want := range checks {
		idx, ok := cols[col]
		if !ok {
			t.Fatalf("column %q missing from header %v", col, rows[0])
		}
		if got := rows[1][idx]; got != want {
			t.Errorf("column %q = %q, want %q", col, got, want)
		}
	}
}

func TestProgressNonTTY(t *testing.T) {
	// Just exercise the non-terminal path; it must not panic or write
	// control characters anywhere.
	p := NewProgress(100)
	p.tty = false
	for d := 0; d <= 100; d++ {
		p.Update(d, d*2, uint64(d*10))
	}
	p.Done()
}
