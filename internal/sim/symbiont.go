// Symbiont agents and their event-scheduling logic.
//
// A symbiont banks photosynthate between events: production (reduced
// with row depth, away from the light) minus the host cell's demand,
// minus the cost of mitosis while dividing. Each handled event settles
// the bank up to the current time and projects whether the symbiont
// survives to its next checkpoint; a projected shortfall schedules
// digestion at the zero crossing, or an earlier escape if the clade's
// coin falls that way.
package sim

import (
	"math"

	"spongesim/internal/rng"
)

// Phase of the symbiont's division cycle. G0 is quiescent growth;
// G1SG2M is the committed division phase, during which the mitotic
// cost rate accrues on top of host demand.
type Phase uint8

const (
	PhaseG0 Phase = iota
	PhaseG1SG2M
)

func (p Phase) String() string {
	if p == PhaseG1SG2M {
		return "G1SG2M"
	}
	return "G0"
}

// DeathCause distinguishes how a symbiont exited.
type DeathCause uint8

const (
	CauseNone       DeathCause = iota
	CauseDigestion             // starved below the host's demand and was digested
	CauseEscape                // fled the host cell before digestion completed
	CauseDenouement            // left of its own accord at residence end
)

func (c DeathCause) String() string {
	switch c {
	case CauseDigestion:
		return "digestion"
	case CauseEscape:
		return "escape"
	case CauseDenouement:
		return "denouement"
	default:
		return "none"
	}
}

// HowArrived records a symbiont's origin.
type HowArrived uint8

const (
	FromSeeding HowArrived = iota
	FromPool
	ViaDivision
)

func (h HowArrived) String() string {
	switch h {
	case FromPool:
		return "pool"
	case ViaDivision:
		return "division"
	default:
		return "seeding"
	}
}

// Symbiont is a living agent. The engine keeps exactly one pending
// queue entry per live symbiont: the minimum of the candidate times
// below, recomputed after every handled event.
type Symbiont struct {
	ID    int64
	Clade *Clade
	Cell  *Cell
	Phase Phase

	HowArrived   HowArrived
	ParentID     int64 // -1 for seeded/pool symbionts
	ProgenitorID int64 // ultimate ancestor (self if not via division)

	ArrivalTime      float64
	SurplusOnArrival float64
	Surplus          float64 // settled as of prevTime
	prevTime         float64

	ProductionBase  float64 // personal top-row production rate
	MitoticCostRate float64
	Divisions       int

	// Candidate next-event times; +Inf when not applicable.
	tPhaseEnd   float64
	tDenouement float64
	tExit       float64
	exitCause   DeathCause
	tMigration  float64

	pendingDeath DeathCause
	dead         bool
	ExitCause    DeathCause
	ExitTime     float64

	// Histories kept for the per-symbiont export.
	CellsInhabited []string
	InhabitTimes   []float64
	CellDemands    []float64
	G0Times        []float64
	G1SG2MTimes    []float64
}

// production returns the current photosynthetic production rate: the
// personal base rate scaled down linearly with row depth, so the
// bottom row produces at 1/k of the top row for reduction factor k.
func (s *Symbiont) production(sp *Sponge) float64 {
	rows, _ := sp.Dimensions()
	if rows == 1 {
		return s.ProductionBase
	}
	k := s.Clade.PhotoReduction
	return s.ProductionBase * (1 + ((1-k)/k)*float64(s.Cell.Row)/float64(rows-1))
}

// netRate is the per-day surplus change in the current phase and cell.
func (s *Symbiont) netRate(sp *Sponge) float64 {
	net := s.production(sp) - s.Cell.Demand()
	if s.Phase == PhaseG1SG2M {
		net -= s.MitoticCostRate
	}
	return net
}

// settle accrues the surplus from the previous event up to t.
func (s *Symbiont) settle(sp *Sponge, t float64) {
	s.Surplus += s.netRate(sp) * (t - s.prevTime)
	s.prevTime = t
}

// projectExit recomputes whether the symbiont survives to the end of
// its current phase. A projected shortfall schedules digestion where
// the surplus crosses zero, or an escape drawn uniformly before that
// with the clade's phase-specific escape probability.
func (s *Symbiont) projectExit(sp *Sponge, streams *rng.Streams) {
	s.tExit = math.Inf(1)
	s.exitCause = CauseNone

	net := s.netRate(sp)
	if net >= 0 {
		return
	}
	surplusAtEnd := s.Surplus + net*(s.tPhaseEnd-s.prevTime)
	if surplusAtEnd >= 0 {
		return
	}

	tZero := s.prevTime + s.Surplus/(-net)
	prob := s.Clade.G0EscapeProb
	coin, when := StreamEscapeCoinG0, StreamEscapeTimeG0
	if s.Phase == PhaseG1SG2M {
		prob = s.Clade.G1SG2MEscapeProb
		coin, when = StreamEscapeCoinG1SG2M, StreamEscapeTimeG1SG2M
	}

	s.tExit, s.exitCause = tZero, CauseDigestion
	if streams.Stream(coin).Uniform() < prob {
		s.tExit = streams.Stream(when).UniformRange(s.prevTime, tZero)
		s.exitCause = CauseEscape
	}
}

// next returns the symbiont's earliest candidate event. At exact ties
// the cycle checkpoint takes precedence, then migration, denouement,
// and projected exit, in that order of registration below.
func (s *Symbiont) next() (float64, EventKind) {
	t, k := s.tPhaseEnd, EventCycle
	cause := CauseNone
	if s.tMigration < t {
		t, k = s.tMigration, EventMigration
	}
	if s.tDenouement < t {
		t, k, cause = s.tDenouement, EventDeath, CauseDenouement
	}
	if s.tExit < t {
		t, k, cause = s.tExit, EventDeath, s.exitCause
	}
	s.pendingDeath = cause
	return t, k
}

// inhabit appends the cell to the symbiont's residence history.
func (s *Symbiont) inhabit(cell *Cell, t float64) {
	s.CellsInhabited = append(s.CellsInhabited, cell.Key())
	s.InhabitTimes = append(s.InhabitTimes, t)
	s.CellDemands = append(s.CellDemands, cell.Demand())
}

// mutation classifies a division-time trait perturbation.
type mutation uint8

const (
	mutationNone mutation = iota
	mutationDeleterious
	mutationBeneficial
)

// mutationDraw decides whether an inherited trait mutates and by how
// much. The amount scales with the trait's mean; the caller applies
// the sign appropriate to the trait (a deleterious cost mutation
// raises the cost, a deleterious production mutation lowers output).
func mutationDraw(mean float64, c *Clade, st *rng.Stream) (float64, mutation) {
	u := st.Uniform()
	switch {
	case u < c.DeleteriousProb:
		return mean * st.Gamma(c.MutationShape, c.MutationScale), mutationDeleterious
	case u < c.DeleteriousProb+c.BeneficialProb:
		return mean * st.Gamma(c.MutationShape, c.MutationScale), mutationBeneficial
	}
	return 0, mutationNone
}
