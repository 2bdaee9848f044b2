package store

import (
	"path/filepath"
	"testing"

	"spongesim/internal/config"
	"spongesim/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		HorizonDays: 2,
		CladeNames:  []string{"A", "B"},
		Census: []sim.DayRecord{
			{Day: 0, Total: 5, PerClade: []int{3, 2}},
			{Day: 1, Total: 6, PerClade: []int{4, 2}},
			{Day: 2, Total: 4, PerClade: []int{2, 2}},
		},
		Symbionts: []sim.SymbiontRecord{
			{ID: 0, Clade: "A", HowArrived: "seeding", ParentID: -1, ExitStatus: "denouement", ExitTime: 1.5},
			{ID: 1, Clade: "B", HowArrived: "pool", ParentID: -1, ExitStatus: "in_residence", ExitTime: 2},
		},
		Stats: sim.Stats{
			EventsProcessed: 123,
			Births:          4,
			Deaths:          3,
			FinalPopulation: 4,
			PeakPopulation:  6,
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	cfg := &config.Config{Seed: 42, NumRows: 10, NumCols: 10}
	runID, err := db.SaveRun(cfg, testResult())
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	n, err := db.RunCount()
	if err != nil {
		t.Fatalf("run count: %v", err)
	}
	if n != 1 {
		t.Fatalf("run count = %d, want 1", n)
	}

	rows, err := db.LoadCensus(runID)
	if err != nil {
		t.Fatalf("load census: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("%d census rows, want 3 days x 2 clades", len(rows))
	}
	if rows[0].Day != 0 || rows[0].Clade != "A" || rows[0].Count != 3 {
		t.Fatalf("first census row = %+v, want day 0 clade A count 3", rows[0])
	}
}

func TestMultipleRunsKeepDistinctIDs(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	cfg := &config.Config{Seed: 1, NumRows: 5, NumCols: 5}
	a, err := db.SaveRun(cfg, testResult())
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	b, err := db.SaveRun(cfg, testResult())
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if a == b {
		t.Fatal("two runs share an id")
	}

	n, err := db.RunCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("run count = %d, want 2", n)
	}
}
