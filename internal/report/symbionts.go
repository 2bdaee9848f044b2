package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"spongesim/internal/sim"
)

// WriteSymbionts exports every symbiont that passed through the run,
// exited and surviving alike, one CSV row each.
func WriteSymbionts(path string, records []sim.SymbiontRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create symbiont export: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("write symbiont export: %w", err)
	}
	return nil
}
