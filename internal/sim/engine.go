// The engine drives the discrete-event loop: it pops the earliest
// (time, sequence) event, advances the clock, dispatches on the event
// kind, and reschedules the affected symbiont. Everything is
// single-threaded; reproducibility comes from the named rng streams
// and the total event order.
package sim

import (
	"fmt"
	"log/slog"
	"math"

	"spongesim/internal/config"
	"spongesim/internal/rng"
)

// Run states.
type runState uint8

const (
	stateIdle runState = iota
	stateRunning
	stateTerminated
)

// Engine owns the simulation state for one run.
type Engine struct {
	cfg     *config.Config
	streams *rng.Streams
	sponge  *Sponge

	clades   []*Clade
	cumProps []float64

	queue *EventQueue
	seq   uint64
	now   float64

	nextID   int64
	total    int
	perClade []int
	peak     int

	census  []DayRecord
	lastDay int

	stats Stats

	exits        []SymbiontRecord
	collectExits bool

	// Progress, when set, is called at every recorded day boundary.
	Progress func(day, population int, events uint64)

	state runState
}

// New builds an engine from a validated configuration. The grid's
// demand layout, the clade table, and every stochastic stream derive
// from cfg.Seed alone.
func New(cfg *config.Config) *Engine {
	streams := rng.New(cfg.Seed)
	clades, cum := BuildClades(cfg.Clades)
	sponge := NewSponge(cfg.NumRows, cfg.NumCols, DemandSpec{
		Base:  cfg.HostCellDemand,
		Fuzz:  cfg.HCDFuzz,
		Noise: cfg.DemandField == config.DemandNoise,
		Seed:  int64(cfg.Seed),
	}, streams.Stream(StreamCellDemand))

	return &Engine{
		cfg:          cfg,
		streams:      streams,
		sponge:       sponge,
		clades:       clades,
		cumProps:     cum,
		queue:        NewEventQueue(),
		perClade:     make([]int, len(clades)),
		lastDay:      -1,
		collectExits: cfg.WriteSymbiontCSV,
	}
}

// Sponge exposes the grid, for callers that inspect occupancy.
func (e *Engine) Sponge() *Sponge { return e.sponge }

// Now returns the current simulated time in days.
func (e *Engine) Now() float64 { return e.now }

// Population returns the current live symbiont count.
func (e *Engine) Population() int { return e.total }

// Run executes the simulation to its horizon and returns the result.
// A second Run on the same engine is a defect; build a new engine.
func (e *Engine) Run() *Result {
	if e.state != stateIdle {
		panic("sim: engine already ran")
	}
	e.state = stateRunning

	horizonDay := int(math.Floor(e.cfg.MaxSimulatedTime))

	e.seedPopulation()
	e.recordDay(0)

	if e.cfg.AvgTimeBetweenArrivals > 0 {
		e.scheduleArrival()
	}

	for {
		ev, err := e.queue.PopEarliest()
		if err != nil {
			break // nothing left to happen
		}
		if ev.Time > e.cfg.MaxSimulatedTime {
			break
		}
		// Census boundaries crossed by this event, counted before it
		// applies.
		for d := e.lastDay + 1; float64(d) <= ev.Time && d <= horizonDay; d++ {
			e.recordDay(d)
		}
		if ev.Time < e.now {
			panic(fmt.Sprintf("sim: event at t=%v before current time t=%v", ev.Time, e.now))
		}
		e.now = ev.Time
		e.stats.EventsProcessed++

		if ev.Symbiont != nil && ev.Symbiont.dead {
			panic(fmt.Sprintf("sim: stale event %s for dead symbiont %d", ev.Kind, ev.Symbiont.ID))
		}

		switch ev.Kind {
		case EventBirth:
			e.handleBirth(ev)
		case EventDeath:
			e.handleDeath(ev.Symbiont)
		case EventMigration:
			e.handleMigration(ev.Symbiont)
		case EventCycle:
			e.handleCycle(ev.Symbiont)
		default:
			panic(fmt.Sprintf("sim: unhandled event kind %d", ev.Kind))
		}
	}

	// Pad the series out to the horizon so every run yields the same
	// number of rows, even after extinction.
	for d := e.lastDay + 1; d <= horizonDay; d++ {
		e.recordDay(d)
	}

	e.state = stateTerminated
	e.stats.FinalPopulation = e.total
	e.stats.PeakPopulation = e.peak

	if e.collectExits {
		// Survivors, in grid reading order so export order is stable.
		for r := 0; r < e.cfg.NumRows; r++ {
			for c := 0; c < e.cfg.NumCols; c++ {
				if s := e.sponge.Cell(r, c).Occupant(); s != nil {
					s.settle(e.sponge, e.cfg.MaxSimulatedTime)
					e.exits = append(e.exits, e.makeRecord(s, e.cfg.MaxSimulatedTime, "in_residence"))
				}
			}
		}
	}

	slog.Info("run complete",
		"days", horizonDay,
		"events", e.stats.EventsProcessed,
		"births", e.stats.Births,
		"deaths", e.stats.Deaths,
		"final_population", e.total,
		"peak_population", e.peak)

	names := make([]string, len(e.clades))
	for i, c := range e.clades {
		names[i] = c.Name
	}
	return &Result{
		HorizonDays: horizonDay,
		CladeNames:  names,
		Census:      e.census,
		Symbionts:   e.exits,
		Stats:       e.stats,
	}
}

// recordDay snapshots the per-clade counts at integer day d.
func (e *Engine) recordDay(d int) {
	counts := make([]int, len(e.perClade))
	copy(counts, e.perClade)
	e.census = append(e.census, DayRecord{Day: d, Total: e.total, PerClade: counts})
	e.lastDay = d
	if e.Progress != nil {
		e.Progress(d, e.total, e.stats.EventsProcessed)
	}
	slog.Debug("census", "day", d, "population", e.total)
}

// scheduleFor pushes the symbiont's single pending event.
func (e *Engine) scheduleFor(s *Symbiont) {
	t, k := s.next()
	if math.IsInf(t, 1) {
		panic(fmt.Sprintf("sim: symbiont %d has no next event", s.ID))
	}
	e.push(&Event{Time: t, Kind: k, Symbiont: s})
}

// push assigns the creation sequence number and enqueues.
func (e *Engine) push(ev *Event) {
	ev.Seq = e.seq
	e.seq++
	e.queue.Push(ev)
}

// scheduleArrival queues the next pool arrival after an exponential
// interarrival gap.
func (e *Engine) scheduleArrival() {
	gap := e.streams.Stream(StreamArrival).Exponential(1 / e.cfg.AvgTimeBetweenArrivals)
	e.push(&Event{Time: e.now + gap, Kind: EventBirth})
}

// drawClade picks a clade by the configured arrival proportions.
func (e *Engine) drawClade() *Clade {
	u := e.streams.Stream(StreamClade).Uniform()
	for i, cum := range e.cumProps {
		if u < cum {
			return e.clades[i]
		}
	}
	return e.clades[len(e.clades)-1]
}

// seedPopulation places the initial symbionts at t=0 according to the
// configured placement strategy.
func (e *Engine) seedPopulation() {
	n := e.cfg.NumInitialSymbionts
	switch e.cfg.InitialPlacement {
	case config.PlaceHorizontal, config.PlaceVertical:
		e.seedBanded(n)
	default:
		st := e.streams.Stream(StreamPlacement)
		for i := 0; i < n; i++ {
			clade := e.drawClade()
			cell, err := e.sponge.FindRandomOpenCell(st)
			if err != nil {
				panic("sim: initial population exceeds grid capacity")
			}
			e.admit(clade, cell, 0, FromSeeding, nil, 0)
		}
	}
	slog.Info("population seeded",
		"count", n,
		"placement", e.cfg.InitialPlacement,
		"grid", fmt.Sprintf("%dx%d", e.cfg.NumRows, e.cfg.NumCols))
}

// seedBanded fills cells in reading order (horizontal: row-major from
// the top row; vertical: column-major from the left column), assigning
// clades in contiguous blocks sized by their proportions.
func (e *Engine) seedBanded(n int) {
	rows, cols := e.sponge.Dimensions()
	placed := 0
	for i, clade := range e.clades {
		// Cumulative rounding so block sizes always sum to n.
		quota := int(math.Round(e.cumProps[i]*float64(n))) - placed
		for j := 0; j < quota; j++ {
			k := placed + j
			var cell *Cell
			if e.cfg.InitialPlacement == config.PlaceHorizontal {
				cell = e.sponge.Cell(k/cols, k%cols)
			} else {
				cell = e.sponge.Cell(k%rows, k/rows)
			}
			e.admit(clade, cell, 0, FromSeeding, nil, 0)
		}
		placed += quota
	}
}

// admit creates a symbiont of the clade in the given open cell, draws
// its personal traits, and schedules its first event. Division
// children inherit (possibly mutated) parent traits and the endowment;
// everyone else draws fresh traits from the clade's distributions.
func (e *Engine) admit(clade *Clade, cell *Cell, t float64, how HowArrived, parent *Symbiont, endowment float64) *Symbiont {
	s := &Symbiont{
		ID:          e.nextID,
		Clade:       clade,
		Phase:       PhaseG0,
		HowArrived:  how,
		ParentID:    -1,
		ArrivalTime: t,
		prevTime:    t,
	}
	e.nextID++
	s.ProgenitorID = s.ID

	if how == ViaDivision {
		s.ParentID = parent.ID
		s.ProgenitorID = parent.ProgenitorID
		s.Surplus = endowment

		mcr := parent.MitoticCostRate
		if amt, m := mutationDraw(clade.MitoticCostRate, clade, e.streams.Stream(StreamMitoticCostMut)); m != mutationNone {
			if m == mutationDeleterious {
				mcr += amt
			} else {
				mcr -= amt
			}
		}
		prod := parent.ProductionBase
		if amt, m := mutationDraw(clade.ProductionRate, clade, e.streams.Stream(StreamProductionMut)); m != mutationNone {
			if m == mutationDeleterious {
				prod -= amt
			} else {
				prod += amt
			}
		}
		s.MitoticCostRate = math.Max(0, mcr)
		s.ProductionBase = math.Max(0, prod)
	} else {
		s.MitoticCostRate = math.Max(0, e.streams.Stream(StreamMitoticCost).Fuzz(clade.MitoticCostRate, clade.MitoticCostFuzz))
		s.ProductionBase = math.Max(0, e.streams.Stream(StreamProduction).Fuzz(clade.ProductionRate, clade.ProductionFuzz))
		surplus := e.streams.Stream(StreamSurplus).Gamma(clade.SurplusShape, clade.SurplusScale)
		for surplus > clade.SurplusMax {
			surplus = e.streams.Stream(StreamSurplus).Gamma(clade.SurplusShape, clade.SurplusScale)
		}
		s.Surplus = surplus
	}
	s.SurplusOnArrival = s.Surplus

	if err := e.sponge.Place(cell, s); err != nil {
		panic(fmt.Sprintf("sim: admit into occupied cell %s: %v", cell.Key(), err))
	}
	s.Cell = cell
	s.inhabit(cell, t)

	s.tDenouement = t + math.Max(0, e.streams.Stream(StreamResidence).Fuzz(clade.ResidenceMean, clade.ResidenceFuzz))

	g0 := math.Max(0, e.streams.Stream(StreamG0).Fuzz(clade.G0Mean, clade.G0Fuzz))
	s.G0Times = append(s.G0Times, g0)
	s.tPhaseEnd = t + g0

	s.tMigration = math.Inf(1)
	if clade.MigrationRate > 0 {
		s.tMigration = t + e.streams.Stream(StreamMigrationTimes).Exponential(clade.MigrationRate)
	}

	s.projectExit(e.sponge, e.streams)

	e.total++
	e.perClade[clade.Index]++
	if e.total > e.peak {
		e.peak = e.total
	}

	e.scheduleFor(s)
	return s
}

// handleBirth applies a pool arrival (ev.Parent == nil) or a division
// child landing (ev.Parent set). Either way the birth can be refused
// by the affinity coin or skipped when no cell is available; a skipped
// or refused birth changes nothing about the live population.
func (e *Engine) handleBirth(ev *Event) {
	if ev.Parent != nil {
		e.birthByDivision(ev)
		return
	}
	e.birthFromPool()
	e.scheduleArrival()
}

func (e *Engine) birthByDivision(ev *Event) {
	parent := ev.Parent
	if parent.dead {
		// The parent exited between division and landing; the child's
		// endowment is lost with it.
		e.stats.BirthsSkipped++
		return
	}
	clade := parent.Clade
	if e.streams.Stream(StreamDivisionAffinity).Uniform() >= clade.DivisionAffinityProb {
		e.stats.BirthsRefused++
		return
	}
	cell, err := e.sponge.OpenAdjacent(parent.Cell, e.streams.Stream(StreamAdjacentCell))
	if err != nil {
		e.stats.BirthsSkipped++
		return
	}
	e.admit(clade, cell, e.now, ViaDivision, parent, ev.Endowment)
	e.stats.Births++
}

func (e *Engine) birthFromPool() {
	if e.sponge.Open() == 0 {
		e.stats.BirthsSkipped++
		return
	}
	clade := e.drawClade()
	if e.streams.Stream(StreamArrivalAffinity).Uniform() >= clade.ArrivalAffinityProb {
		e.stats.BirthsRefused++
		return
	}
	cell, err := e.sponge.FindRandomOpenCell(e.streams.Stream(StreamOpenCell))
	if err != nil {
		e.stats.BirthsSkipped++
		return
	}
	e.admit(clade, cell, e.now, FromPool, nil, 0)
	e.stats.Births++
}

// handleCycle is the photosynthesis-update checkpoint at the end of
// the current phase. G0 ends by entering G1SG2M; G1SG2M ends by
// completing a division, pushing the child's landing as a same-time
// birth event, and returning to G0.
func (e *Engine) handleCycle(s *Symbiont) {
	s.settle(e.sponge, e.now)
	clade := s.Clade

	switch s.Phase {
	case PhaseG0:
		s.Phase = PhaseG1SG2M
		g1 := math.Max(0, e.streams.Stream(StreamG1SG2M).Fuzz(clade.G1SG2MMean, clade.G1SG2MFuzz))
		s.G1SG2MTimes = append(s.G1SG2MTimes, g1)
		s.tPhaseEnd = e.now + g1

	case PhaseG1SG2M:
		s.Divisions++
		share := s.Surplus / 2
		if amt, m := mutationDraw(share, clade, e.streams.Stream(StreamSurplusMut)); m != mutationNone {
			if m == mutationDeleterious {
				share -= amt
			} else {
				share += amt
			}
		}
		share = math.Max(0, math.Min(share, s.Surplus))
		s.Surplus -= share
		e.push(&Event{Time: e.now, Kind: EventBirth, Parent: s, Endowment: share})

		s.Phase = PhaseG0
		g0 := math.Max(0, e.streams.Stream(StreamG0).Fuzz(clade.G0Mean, clade.G0Fuzz))
		s.G0Times = append(s.G0Times, g0)
		s.tPhaseEnd = e.now + g0
	}

	s.projectExit(e.sponge, e.streams)
	e.scheduleFor(s)
}

// handleMigration relocates the symbiont to a random open cell, or
// leaves it in place when the grid is saturated. Either way the next
// migration is drawn and the symbiont is rescheduled.
func (e *Engine) handleMigration(s *Symbiont) {
	s.settle(e.sponge, e.now)

	cell, err := e.sponge.FindRandomOpenCell(e.streams.Stream(StreamMigrationCell))
	if err != nil {
		e.stats.MigrationsSkipped++
	} else {
		e.sponge.Remove(s.Cell)
		if perr := e.sponge.Place(cell, s); perr != nil {
			panic(fmt.Sprintf("sim: migrate into occupied cell %s: %v", cell.Key(), perr))
		}
		s.Cell = cell
		s.inhabit(cell, e.now)
		e.stats.Migrations++
	}

	s.tMigration = e.now + e.streams.Stream(StreamMigrationTimes).Exponential(s.Clade.MigrationRate)
	s.projectExit(e.sponge, e.streams)
	e.scheduleFor(s)
}

// handleDeath removes the symbiont. Denouement settles the remaining
// surplus; digestion and escape zero it (the host consumed or the
// symbiont abandoned what was left).
func (e *Engine) handleDeath(s *Symbiont) {
	cause := s.pendingDeath
	if cause == CauseNone {
		panic(fmt.Sprintf("sim: death event without cause for symbiont %d", s.ID))
	}

	if cause == CauseDenouement {
		s.settle(e.sponge, e.now)
	} else {
		s.Surplus = 0
		s.prevTime = e.now
	}

	e.sponge.Remove(s.Cell)
	s.Cell = nil
	s.dead = true
	s.ExitTime = e.now
	s.ExitCause = cause

	e.total--
	e.perClade[s.Clade.Index]--
	e.stats.Deaths++
	switch cause {
	case CauseDigestion:
		e.stats.Digestions++
	case CauseEscape:
		e.stats.Escapes++
	case CauseDenouement:
		e.stats.Denouements++
	}

	if e.collectExits {
		e.exits = append(e.exits, e.makeRecord(s, e.now, cause.String()))
	}
}
