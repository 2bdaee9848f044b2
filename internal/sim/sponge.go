// The sponge is the 2D grid of host cells symbionts live in. Columns
// wrap horizontally (the model is a slice of a canal wall); rows do
// not.
package sim

import (
	"errors"
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"spongesim/internal/rng"
)

// Occupancy errors. Grid saturation is an expected ecological outcome
// and must be handled by the caller's policy; double occupancy and
// vacating an empty cell are defects.
var (
	ErrCellOccupied = errors.New("sim: cell is already occupied")
	ErrGridFull     = errors.New("sim: no open cell available")
)

// Cell is a single host cell. At most one symbiont occupies it at any
// simulated time.
type Cell struct {
	Row, Col int

	baseDemand float64 // photosynthate the host demands per day, unscaled
	demand     float64 // effective demand, recomputed on occupancy change
	occupant   *Symbiont
}

// Occupied reports whether a symbiont currently lives here.
func (c *Cell) Occupied() bool { return c.occupant != nil }

// Occupant returns the resident symbiont, or nil.
func (c *Cell) Occupant() *Symbiont { return c.occupant }

// BaseDemand returns the cell's demand capacity before clade scaling.
func (c *Cell) BaseDemand() float64 { return c.baseDemand }

// Demand returns the effective photosynthetic demand: the base
// capacity scaled by the occupant clade's demand coefficient. Zero
// while unoccupied.
func (c *Cell) Demand() float64 { return c.demand }

// Key renders the cell position the way the per-symbiont export
// records inhabited cells.
func (c *Cell) Key() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Occupy places s in the cell and recomputes its effective demand.
func (c *Cell) Occupy(s *Symbiont) error {
	if c.occupant != nil {
		return fmt.Errorf("%w: %s holds symbiont %d", ErrCellOccupied, c.Key(), c.occupant.ID)
	}
	c.occupant = s
	c.demand = c.baseDemand * s.Clade.DemandCoefficient
	return nil
}

// Vacate clears the cell. Vacating an empty cell is a defect.
func (c *Cell) Vacate() {
	if c.occupant == nil {
		panic(fmt.Sprintf("sim: vacate of empty cell %s", c.Key()))
	}
	c.occupant = nil
	c.demand = 0
}

// DemandSpec controls how per-cell base demand is laid out.
type DemandSpec struct {
	Base  float64
	Fuzz  float64
	Noise bool  // spatially correlated field instead of independent fuzz
	Seed  int64 // noise field seed (derived from the master seed)
}

// Sponge is the fixed rows×cols grid of host cells.
type Sponge struct {
	rows, cols int
	cells      [][]Cell
	occupied   int
}

// mooreOffsets is the 8-cell neighborhood around a cell.
var mooreOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// noiseScale stretches the demand field so neighboring cells get
// correlated but not identical values.
const noiseScale = 8.0

// NewSponge builds the grid and assigns each cell's base demand from
// the spec: either independently fuzzed (one draw per cell, row-major,
// from the given stream) or sampled from an OpenSimplex field.
func NewSponge(rows, cols int, spec DemandSpec, st *rng.Stream) *Sponge {
	sp := &Sponge{
		rows:  rows,
		cols:  cols,
		cells: make([][]Cell, rows),
	}

	var noise opensimplex.Noise
	if spec.Noise {
		noise = opensimplex.NewNormalized(spec.Seed)
	}

	for r := 0; r < rows; r++ {
		sp.cells[r] = make([]Cell, cols)
		for c := 0; c < cols; c++ {
			demand := spec.Base
			if spec.Noise {
				v := noise.Eval2(float64(c)/noiseScale, float64(r)/noiseScale)
				demand = spec.Base * (1 + spec.Fuzz*(2*v-1))
			} else if spec.Fuzz > 0 {
				demand = st.Fuzz(spec.Base, spec.Fuzz)
			}
			if demand < 0 {
				demand = 0
			}
			sp.cells[r][c] = Cell{Row: r, Col: c, baseDemand: demand}
		}
	}
	return sp
}

// Dimensions returns (rows, cols).
func (sp *Sponge) Dimensions() (int, int) { return sp.rows, sp.cols }

// Cell returns the cell at (row, col). Out-of-range coordinates are a
// defect.
func (sp *Sponge) Cell(row, col int) *Cell {
	if row < 0 || row >= sp.rows || col < 0 || col >= sp.cols {
		panic(fmt.Sprintf("sim: cell (%d,%d) outside %dx%d sponge", row, col, sp.rows, sp.cols))
	}
	return &sp.cells[row][col]
}

// Occupied returns the number of occupied cells, which the engine
// keeps equal to the live symbiont count.
func (sp *Sponge) Occupied() int { return sp.occupied }

// Open returns the number of unoccupied cells.
func (sp *Sponge) Open() int { return sp.rows*sp.cols - sp.occupied }

// Place occupies the cell with s and updates the occupancy count.
func (sp *Sponge) Place(cell *Cell, s *Symbiont) error {
	if err := cell.Occupy(s); err != nil {
		return err
	}
	sp.occupied++
	return nil
}

// Remove vacates the symbiont's cell and updates the occupancy count.
func (sp *Sponge) Remove(cell *Cell) {
	cell.Vacate()
	sp.occupied--
}

// FindRandomOpenCell selects uniformly among the currently open cells,
// consuming one integer draw over the open-cell count. Returns
// ErrGridFull when every cell is occupied.
func (sp *Sponge) FindRandomOpenCell(st *rng.Stream) (*Cell, error) {
	open := sp.Open()
	if open == 0 {
		return nil, ErrGridFull
	}
	k := st.IntInRange(0, open-1)
	for r := 0; r < sp.rows; r++ {
		for c := 0; c < sp.cols; c++ {
			cell := &sp.cells[r][c]
			if cell.Occupied() {
				continue
			}
			if k == 0 {
				return cell, nil
			}
			k--
		}
	}
	panic("sim: open-cell count out of sync with grid")
}

// Neighbors returns the Moore neighborhood of the cell in fixed
// reading order. Columns wrap; rows above the top or below the bottom
// are omitted.
func (sp *Sponge) Neighbors(cell *Cell) []*Cell {
	out := make([]*Cell, 0, 8)
	for _, off := range mooreOffsets {
		r := cell.Row + off[0]
		if r < 0 || r >= sp.rows {
			continue
		}
		c := ((cell.Col+off[1])%sp.cols + sp.cols) % sp.cols
		out = append(out, &sp.cells[r][c])
	}
	return out
}

// OpenAdjacent picks an open cell from the Moore neighborhood,
// searching in stream-shuffled order. Returns ErrGridFull when the
// whole neighborhood is occupied.
func (sp *Sponge) OpenAdjacent(cell *Cell, st *rng.Stream) (*Cell, error) {
	neighbors := sp.Neighbors(cell)
	st.Shuffle(len(neighbors), func(i, j int) {
		neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
	})
	for _, n := range neighbors {
		if !n.Occupied() {
			return n, nil
		}
	}
	return nil, ErrGridFull
}
