// Package config loads and validates the tabular simulation
// configuration. The core engine assumes a fully validated Config and
// never re-checks it.
package config

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Placement strategies for the initial population.
const (
	PlaceRandomize  = "randomize"
	PlaceHorizontal = "horizontal"
	PlaceVertical   = "vertical"
)

// Demand field kinds.
const (
	DemandUniform = "uniform" // per-cell demand fuzzed independently
	DemandNoise   = "noise"   // spatially correlated OpenSimplex field
)

// Config holds every simulation-level parameter plus the per-clade
// tables. Immutable once loaded.
type Config struct {
	Seed                   uint64  `yaml:"seed"`
	MaxSimulatedTime       float64 `yaml:"max_simulated_time"` // horizon, in days
	NumRows                int     `yaml:"num_rows"`
	NumCols                int     `yaml:"num_cols"`
	NumInitialSymbionts    int     `yaml:"num_initial_symbionts"`
	InitialPlacement       string  `yaml:"initial_placement"`
	HostCellDemand         float64 `yaml:"host_cell_demand"`
	HCDFuzz                float64 `yaml:"hcd_fuzz"`
	DemandField            string  `yaml:"demand_field"`
	AvgTimeBetweenArrivals float64 `yaml:"avg_time_between_arrivals"` // days; 0 disables arrivals

	Clades []CladeParams `yaml:"clades"`

	PopulationFile   string `yaml:"population_file"`
	WriteSymbiontCSV bool   `yaml:"write_symbiont_csv"`
	SymbiontCSVFile  string `yaml:"symbiont_csv_file"`
	SnapshotFile     string `yaml:"config_snapshot"`
	DatabaseFile     string `yaml:"database_file"`
}

// CladeParams is one row of the clade table: the full stochastic
// parameter bundle shared by every symbiont of the clade.
type CladeParams struct {
	Name       string  `csv:"name" yaml:"name"`
	Proportion float64 `csv:"proportion" yaml:"proportion"`

	ProductionRate  float64 `csv:"production_rate" yaml:"production_rate"` // photosynthate per day
	ProductionFuzz  float64 `csv:"production_fuzz" yaml:"production_fuzz"`
	MitoticCostRate float64 `csv:"mitotic_cost_rate" yaml:"mitotic_cost_rate"`
	MitoticCostFuzz float64 `csv:"mitotic_cost_fuzz" yaml:"mitotic_cost_fuzz"`

	G0Mean        float64 `csv:"g0_mean" yaml:"g0_mean"` // days in G0 before division starts
	G0Fuzz        float64 `csv:"g0_fuzz" yaml:"g0_fuzz"`
	G1SG2MMean    float64 `csv:"g1sg2m_mean" yaml:"g1sg2m_mean"` // days spent dividing
	G1SG2MFuzz    float64 `csv:"g1sg2m_fuzz" yaml:"g1sg2m_fuzz"`
	ResidenceMean float64 `csv:"residence_mean" yaml:"residence_mean"` // days until denouement
	ResidenceFuzz float64 `csv:"residence_fuzz" yaml:"residence_fuzz"`

	G0EscapeProb         float64 `csv:"g0_escape_prob" yaml:"g0_escape_prob"`
	G1SG2MEscapeProb     float64 `csv:"g1sg2m_escape_prob" yaml:"g1sg2m_escape_prob"`
	ArrivalAffinityProb  float64 `csv:"arrival_affinity_prob" yaml:"arrival_affinity_prob"`
	DivisionAffinityProb float64 `csv:"division_affinity_prob" yaml:"division_affinity_prob"`

	SurplusShape float64 `csv:"surplus_shape" yaml:"surplus_shape"` // gamma for surplus on arrival
	SurplusScale float64 `csv:"surplus_scale" yaml:"surplus_scale"`
	SurplusMax   float64 `csv:"surplus_max" yaml:"surplus_max"`

	PhotoReduction    float64 `csv:"photo_reduction" yaml:"photo_reduction"` // bottom-row rate is 1/k of top
	DemandCoefficient float64 `csv:"demand_coefficient" yaml:"demand_coefficient"`
	MigrationRate     float64 `csv:"migration_rate" yaml:"migration_rate"` // relocations per day; 0 disables

	DeleteriousProb float64 `csv:"deleterious_prob" yaml:"deleterious_prob"`
	BeneficialProb  float64 `csv:"beneficial_prob" yaml:"beneficial_prob"`
	MutationShape   float64 `csv:"mutation_shape" yaml:"mutation_shape"`
	MutationScale   float64 `csv:"mutation_scale" yaml:"mutation_scale"`
}

// Load reads the name,value configuration table and its clade table.
// Relative paths inside the config resolve against the config file's
// directory.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		InitialPlacement: PlaceRandomize,
		DemandField:      DemandUniform,
	}
	dir := filepath.Dir(path)
	cladeFile := ""

	for _, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("config %s: row %q needs name,value", path, strings.Join(rec, ","))
		}
		name := strings.TrimSpace(rec[0])
		value := strings.TrimSpace(rec[1])

		var perr error
		switch name {
		case "seed":
			cfg.Seed, perr = strconv.ParseUint(value, 10, 64)
		case "max_simulated_time":
			cfg.MaxSimulatedTime, perr = strconv.ParseFloat(value, 64)
		case "num_rows":
			cfg.NumRows, perr = strconv.Atoi(value)
		case "num_cols":
			cfg.NumCols, perr = strconv.Atoi(value)
		case "num_initial_symbionts":
			cfg.NumInitialSymbionts, perr = strconv.Atoi(value)
		case "initial_placement":
			cfg.InitialPlacement = value
		case "host_cell_demand":
			cfg.HostCellDemand, perr = strconv.ParseFloat(value, 64)
		case "hcd_fuzz":
			cfg.HCDFuzz, perr = strconv.ParseFloat(value, 64)
		case "demand_field":
			cfg.DemandField = value
		case "avg_time_between_arrivals":
			cfg.AvgTimeBetweenArrivals, perr = strconv.ParseFloat(value, 64)
		case "clade_file":
			cladeFile = resolve(dir, value)
		case "population_file":
			cfg.PopulationFile = resolve(dir, value)
		case "write_symbiont_csv":
			cfg.WriteSymbiontCSV, perr = strconv.ParseBool(value)
		case "symbiont_csv_file":
			cfg.SymbiontCSVFile = resolve(dir, value)
		case "config_snapshot":
			cfg.SnapshotFile = resolve(dir, value)
		case "database_file":
			cfg.DatabaseFile = resolve(dir, value)
		default:
			return nil, fmt.Errorf("config %s: unknown parameter %q", path, name)
		}
		if perr != nil {
			return nil, fmt.Errorf("config %s: parameter %q: %w", path, name, perr)
		}
	}

	if cladeFile == "" {
		return nil, fmt.Errorf("config %s: clade_file is required", path)
	}
	cfg.Clades, err = loadClades(cladeFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func loadClades(path string) ([]CladeParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clade table: %w", err)
	}
	defer f.Close()

	var clades []CladeParams
	if err := gocsv.UnmarshalFile(f, &clades); err != nil {
		return nil, fmt.Errorf("parse clade table %s: %w", path, err)
	}
	return clades, nil
}

// Validate checks everything the engine's invariants depend on. The
// engine itself performs no configuration validation.
func (c *Config) Validate() error {
	if c.NumRows <= 0 || c.NumCols <= 0 {
		return fmt.Errorf("grid dimensions %dx%d must be positive", c.NumRows, c.NumCols)
	}
	if c.MaxSimulatedTime <= 0 {
		return fmt.Errorf("max_simulated_time %v must be positive", c.MaxSimulatedTime)
	}
	if c.NumInitialSymbionts < 0 || c.NumInitialSymbionts > c.NumRows*c.NumCols {
		return fmt.Errorf("num_initial_symbionts %d must fit the %dx%d grid",
			c.NumInitialSymbionts, c.NumRows, c.NumCols)
	}
	switch c.InitialPlacement {
	case PlaceRandomize, PlaceHorizontal, PlaceVertical:
	default:
		return fmt.Errorf("initial_placement %q is not one of randomize, horizontal, vertical", c.InitialPlacement)
	}
	switch c.DemandField {
	case DemandUniform, DemandNoise:
	default:
		return fmt.Errorf("demand_field %q is not one of uniform, noise", c.DemandField)
	}
	if c.HostCellDemand < 0 || c.HCDFuzz < 0 {
		return fmt.Errorf("host_cell_demand %v and hcd_fuzz %v must be nonnegative", c.HostCellDemand, c.HCDFuzz)
	}
	if c.AvgTimeBetweenArrivals < 0 {
		return fmt.Errorf("avg_time_between_arrivals %v must be nonnegative", c.AvgTimeBetweenArrivals)
	}
	if len(c.Clades) == 0 {
		return fmt.Errorf("at least one clade is required")
	}
	if c.PopulationFile == "" {
		return fmt.Errorf("population_file is required")
	}
	if c.WriteSymbiontCSV && c.SymbiontCSVFile == "" {
		return fmt.Errorf("write_symbiont_csv is set but symbiont_csv_file is empty")
	}

	sum := 0.0
	seen := make(map[string]bool, len(c.Clades))
	for i := range c.Clades {
		cl := &c.Clades[i]
		if cl.Name == "" {
			return fmt.Errorf("clade %d: name is required", i)
		}
		if seen[cl.Name] {
			return fmt.Errorf("clade %q: duplicate name", cl.Name)
		}
		seen[cl.Name] = true
		sum += cl.Proportion

		if err := cl.validate(); err != nil {
			return fmt.Errorf("clade %q: %w", cl.Name, err)
		}
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("clade proportions sum to %v, want 1", sum)
	}
	return nil
}

// namedValue pairs a parameter with its name for error reporting. The
// check loops walk slices, not maps, so the first failing parameter is
// the same on every run.
type namedValue struct {
	name string
	v    float64
}

func (p *CladeParams) validate() error {
	nonneg := []namedValue{
		{"proportion", p.Proportion},
		{"production_rate", p.ProductionRate},
		{"production_fuzz", p.ProductionFuzz},
		{"mitotic_cost_rate", p.MitoticCostRate},
		{"mitotic_cost_fuzz", p.MitoticCostFuzz},
		{"g0_fuzz", p.G0Fuzz},
		{"g1sg2m_fuzz", p.G1SG2MFuzz},
		{"residence_fuzz", p.ResidenceFuzz},
		{"migration_rate", p.MigrationRate},
	}
	for _, nv := range nonneg {
		if nv.v < 0 {
			return fmt.Errorf("%s %v must be nonnegative", nv.name, nv.v)
		}
	}
	positive := []namedValue{
		{"g0_mean", p.G0Mean},
		{"g1sg2m_mean", p.G1SG2MMean},
		{"residence_mean", p.ResidenceMean},
		{"surplus_shape", p.SurplusShape},
		{"surplus_scale", p.SurplusScale},
		{"surplus_max", p.SurplusMax},
		{"photo_reduction", p.PhotoReduction},
	}
	for _, nv := range positive {
		if nv.v <= 0 {
			return fmt.Errorf("%s %v must be positive", nv.name, nv.v)
		}
	}
	probs := []namedValue{
		{"g0_escape_prob", p.G0EscapeProb},
		{"g1sg2m_escape_prob", p.G1SG2MEscapeProb},
		{"arrival_affinity_prob", p.ArrivalAffinityProb},
		{"division_affinity_prob", p.DivisionAffinityProb},
		{"deleterious_prob", p.DeleteriousProb},
		{"beneficial_prob", p.BeneficialProb},
	}
	for _, nv := range probs {
		if nv.v < 0 || nv.v > 1 {
			return fmt.Errorf("%s %v must be in [0, 1]", nv.name, nv.v)
		}
	}
	if p.DeleteriousProb+p.BeneficialProb > 1 {
		return fmt.Errorf("deleterious_prob + beneficial_prob %v exceeds 1", p.DeleteriousProb+p.BeneficialProb)
	}
	if p.DemandCoefficient < 0 {
		return fmt.Errorf("demand_coefficient %v must be nonnegative", p.DemandCoefficient)
	}
	if (p.DeleteriousProb > 0 || p.BeneficialProb > 0) && (p.MutationShape <= 0 || p.MutationScale <= 0) {
		return fmt.Errorf("mutation_shape/mutation_scale must be positive when mutation probabilities are set")
	}
	return nil
}

// WriteYAML saves the resolved configuration, clade tables included,
// so a run's exact inputs can be archived next to its outputs.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
