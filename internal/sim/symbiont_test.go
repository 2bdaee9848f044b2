package sim

import (
	"math"
	"testing"

	"spongesim/internal/config"
	"spongesim/internal/rng"
)

// placeTestSymbiont builds a 1x1 sponge whose single cell demands
// `demand` per day and places a G0 symbiont producing `production`.
func placeTestSymbiont(t *testing.T, production, demand float64, params config.CladeParams) (*Symbiont, *Sponge) {
	t.Helper()
	params.Name = "A"
	if params.DemandCoefficient == 0 {
		params.DemandCoefficient = 1
	}
	streams := rng.New(1)
	sp := NewSponge(1, 1, DemandSpec{Base: demand}, streams.Stream(StreamCellDemand))
	s := &Symbiont{
		ID:             1,
		Clade:          &Clade{CladeParams: params},
		Phase:          PhaseG0,
		ProductionBase: production,
	}
	if err := sp.Place(sp.Cell(0, 0), s); err != nil {
		t.Fatalf("place: %v", err)
	}
	s.Cell = sp.Cell(0, 0)
	return s, sp
}

func TestSettleAccruesSurplus(t *testing.T) {
	s, sp := placeTestSymbiont(t, 10, 4, config.CladeParams{})
	s.Surplus = 1

	s.settle(sp, 2.0) // net +6/day for 2 days
	if s.Surplus != 13 {
		t.Fatalf("surplus = %v, want 13", s.Surplus)
	}

	s.Phase = PhaseG1SG2M
	s.MitoticCostRate = 8 // net now 10-4-8 = -2/day
	s.settle(sp, 3.0)
	if s.Surplus != 11 {
		t.Fatalf("surplus = %v, want 11", s.Surplus)
	}
}

func TestProjectExitSolvent(t *testing.T) {
	s, sp := placeTestSymbiont(t, 10, 4, config.CladeParams{})
	s.Surplus = 1
	s.tPhaseEnd = 100

	s.projectExit(sp, rng.New(1))
	if !math.IsInf(s.tExit, 1) || s.exitCause != CauseNone {
		t.Fatalf("solvent symbiont projected exit at t=%v cause %v", s.tExit, s.exitCause)
	}
}

func TestProjectExitSurvivesPhase(t *testing.T) {
	// Net -2/day but the phase ends before the surplus runs out.
	s, sp := placeTestSymbiont(t, 2, 4, config.CladeParams{})
	s.Surplus = 10
	s.tPhaseEnd = 3

	s.projectExit(sp, rng.New(1))
	if !math.IsInf(s.tExit, 1) {
		t.Fatalf("symbiont solvent through phase end projected exit at t=%v", s.tExit)
	}
}

func TestProjectExitDigestion(t *testing.T) {
	// Net -4/day from t=0 with surplus 8: zero-crossing at t=2. Escape
	// probability 0 forces digestion.
	s, sp := placeTestSymbiont(t, 1, 5, config.CladeParams{G0EscapeProb: 0})
	s.Surplus = 8
	s.tPhaseEnd = 100

	s.projectExit(sp, rng.New(1))
	if s.exitCause != CauseDigestion {
		t.Fatalf("cause = %v, want digestion", s.exitCause)
	}
	if math.Abs(s.tExit-2.0) > 1e-12 {
		t.Fatalf("digestion at t=%v, want 2", s.tExit)
	}
}

func TestProjectExitEscape(t *testing.T) {
	s, sp := placeTestSymbiont(t, 1, 5, config.CladeParams{G0EscapeProb: 1})
	s.Surplus = 8
	s.tPhaseEnd = 100

	s.projectExit(sp, rng.New(1))
	if s.exitCause != CauseEscape {
		t.Fatalf("cause = %v, want escape", s.exitCause)
	}
	if s.tExit < 0 || s.tExit >= 2.0 {
		t.Fatalf("escape at t=%v, want within [0, 2)", s.tExit)
	}
}

func TestNextPicksEarliestCandidate(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name                               string
		phaseEnd, migration, denouement    float64
		exit                               float64
		exitCause                          DeathCause
		wantTime                           float64
		wantKind                           EventKind
		wantDeath                          DeathCause
	}{
		{"cycle only", 5, inf, inf, inf, CauseNone, 5, EventCycle, CauseNone},
		{"migration first", 5, 3, inf, inf, CauseNone, 3, EventMigration, CauseNone},
		{"denouement first", 5, 4, 2, inf, CauseNone, 2, EventDeath, CauseDenouement},
		{"starvation first", 5, 4, 3, 1, CauseDigestion, 1, EventDeath, CauseDigestion},
		{"tie goes to the cycle", 5, 5, 5, 5, CauseEscape, 5, EventCycle, CauseNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &Symbiont{
				tPhaseEnd:   tc.phaseEnd,
				tMigration:  tc.migration,
				tDenouement: tc.denouement,
				tExit:       tc.exit,
				exitCause:   tc.exitCause,
			}
			gotTime, gotKind := s.next()
			if gotTime != tc.wantTime || gotKind != tc.wantKind || s.pendingDeath != tc.wantDeath {
				t.Fatalf("next() = (%v, %v) death %v, want (%v, %v) death %v",
					gotTime, gotKind, s.pendingDeath, tc.wantTime, tc.wantKind, tc.wantDeath)
			}
		})
	}
}

func TestMutationDraw(t *testing.T) {
	none := &Clade{CladeParams: config.CladeParams{
		MutationShape: 2, MutationScale: 0.1,
	}}
	if amt, m := mutationDraw(5, none, rng.New(1).Stream(StreamSurplusMut)); m != mutationNone || amt != 0 {
		t.Fatalf("zero-probability mutation drew (%v, %v)", amt, m)
	}

	del := &Clade{CladeParams: config.CladeParams{
		DeleteriousProb: 1, MutationShape: 2, MutationScale: 0.1,
	}}
	amt, m := mutationDraw(5, del, rng.New(1).Stream(StreamSurplusMut))
	if m != mutationDeleterious {
		t.Fatalf("mutation kind = %v, want deleterious", m)
	}
	if amt <= 0 {
		t.Fatalf("mutation amount %v, want positive", amt)
	}

	ben := &Clade{CladeParams: config.CladeParams{
		BeneficialProb: 1, MutationShape: 2, MutationScale: 0.1,
	}}
	if _, m := mutationDraw(5, ben, rng.New(1).Stream(StreamSurplusMut)); m != mutationBeneficial {
		t.Fatalf("mutation kind = %v, want beneficial", m)
	}
}
