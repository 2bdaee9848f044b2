package sim

import "spongesim/internal/config"

// Clade is the immutable per-clade parameter bundle. One Clade record
// exists per configured clade; every symbiont of the clade holds a
// reference to it, never a copy.
type Clade struct {
	Index int
	config.CladeParams
}

// BuildClades constructs the shared clade records plus the cumulative
// arrival proportions used to draw a clade for each pool arrival.
func BuildClades(params []config.CladeParams) ([]*Clade, []float64) {
	clades := make([]*Clade, len(params))
	cum := make([]float64, len(params))
	sum := 0.0
	for i, p := range params {
		clades[i] = &Clade{Index: i, CladeParams: p}
		sum += p.Proportion
		cum[i] = sum
	}
	// Guard against proportion round-off on the last entry.
	cum[len(cum)-1] = 1.0
	return clades, cum
}

// Stream names, one per stochastic purpose. Each name owns an
// independent generator; adding a purpose never perturbs the draws of
// existing ones.
const (
	StreamClade             = "clade"
	StreamPlacement         = "placement"
	StreamCellDemand        = "cell-demand"
	StreamArrival           = "arrival-times"
	StreamArrivalAffinity   = "arrival-affinity"
	StreamDivisionAffinity  = "division-affinity"
	StreamOpenCell          = "open-cell"
	StreamAdjacentCell      = "adjacent-cell"
	StreamMigrationTimes    = "migration-times"
	StreamMigrationCell     = "migration-cell"
	StreamProduction        = "production"
	StreamProductionMut     = "production-mutation"
	StreamMitoticCost       = "mitotic-cost"
	StreamMitoticCostMut    = "mitotic-cost-mutation"
	StreamSurplus           = "surplus"
	StreamSurplusMut        = "surplus-mutation"
	StreamG0                = "g0-length"
	StreamG1SG2M            = "g1sg2m-length"
	StreamResidence         = "residence"
	StreamEscapeCoinG0      = "escape-coin-g0"
	StreamEscapeTimeG0      = "escape-time-g0"
	StreamEscapeCoinG1SG2M  = "escape-coin-g1sg2m"
	StreamEscapeTimeG1SG2M  = "escape-time-g1sg2m"
)
