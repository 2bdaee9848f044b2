package sim

import (
	"strconv"
	"strings"
)

// Stats aggregates what happened over a run.
type Stats struct {
	EventsProcessed uint64

	Births        int // applied births: live count +1 each
	BirthsRefused int // failed the affinity coin
	BirthsSkipped int // no cell available (grid at carrying capacity)

	Deaths      int
	Digestions  int
	Escapes     int
	Denouements int

	Migrations        int
	MigrationsSkipped int

	FinalPopulation int
	PeakPopulation  int
}

// DayRecord is one row of the output time series.
type DayRecord struct {
	Day      int
	Total    int
	PerClade []int
}

// SymbiontRecord is one row of the optional per-symbiont export,
// capturing the attributes the ecological analysis downstream keys on.
type SymbiontRecord struct {
	ID               int64   `csv:"symbiont_id"`
	Clade            string  `csv:"clade"`
	HowArrived       string  `csv:"how_arrived"`
	ParentID         int64   `csv:"parent_id"`
	ProgenitorID     int64   `csv:"progenitor_id"`
	ArrivalTime      float64 `csv:"arrival_time"`
	ExitTime         float64 `csv:"exit_time"`
	ExitStatus       string  `csv:"exit_status"`
	ResidenceTime    float64 `csv:"residence_time"`
	MitoticCostRate  float64 `csv:"mitotic_cost_rate"`
	ProductionBase   float64 `csv:"production_rate"`
	SurplusOnArrival float64 `csv:"surplus_on_arrival"`
	SurplusAtExit    float64 `csv:"surplus_at_exit"`
	Divisions        int     `csv:"divisions"`
	CellsInhabited   string  `csv:"cells_inhabited"`
	InhabitTimes     string  `csv:"inhabit_times"`
	CellDemands      string  `csv:"cell_demands"`
	G0Times          string  `csv:"g0_times"`
	G1SG2MTimes      string  `csv:"g1sg2m_times"`
}

// Result is everything a completed run hands to the reporting and
// storage collaborators.
type Result struct {
	HorizonDays int
	CladeNames  []string
	Census      []DayRecord
	Symbionts   []SymbiontRecord
	Stats       Stats
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}

func (e *Engine) makeRecord(s *Symbiont, exitTime float64, status string) SymbiontRecord {
	return SymbiontRecord{
		ID:               s.ID,
		Clade:            s.Clade.Name,
		HowArrived:       s.HowArrived.String(),
		ParentID:         s.ParentID,
		ProgenitorID:     s.ProgenitorID,
		ArrivalTime:      s.ArrivalTime,
		ExitTime:         exitTime,
		ExitStatus:       status,
		ResidenceTime:    exitTime - s.ArrivalTime,
		MitoticCostRate:  s.MitoticCostRate,
		ProductionBase:   s.ProductionBase,
		SurplusOnArrival: s.SurplusOnArrival,
		SurplusAtExit:    s.Surplus,
		Divisions:        s.Divisions,
		CellsInhabited:   strings.Join(s.CellsInhabited, ";"),
		InhabitTimes:     joinFloats(s.InhabitTimes),
		CellDemands:      joinFloats(s.CellDemands),
		G0Times:          joinFloats(s.G0Times),
		G1SG2MTimes:      joinFloats(s.G1SG2MTimes),
	}
}
