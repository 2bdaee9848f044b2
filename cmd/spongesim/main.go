// Command spongesim runs the sponge-symbiont discrete-event simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"spongesim/internal/config"
	"spongesim/internal/report"
	"spongesim/internal/sim"
	"spongesim/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(args[1:])
	case "validate":
		return runValidate(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	seed := fs.Uint64("seed", 0, "override the configured master seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return usageError("run requires a config file and an optional showProgress flag")
	}
	progress := true
	if fs.NArg() == 2 {
		var err error
		progress, err = strconv.ParseBool(fs.Arg(1))
		if err != nil {
			return usageError(fmt.Sprintf("showProgress must be a boolean, got %q", fs.Arg(1)))
		}
	}

	cfg, err := config.Load(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	slog.Info("configuration loaded",
		"file", fs.Arg(0),
		"seed", cfg.Seed,
		"grid", strconv.Itoa(cfg.NumRows)+"x"+strconv.Itoa(cfg.NumCols),
		"horizon_days", cfg.MaxSimulatedTime,
		"clades", len(cfg.Clades))

	if cfg.SnapshotFile != "" {
		if err := cfg.WriteYAML(cfg.SnapshotFile); err != nil {
			return fmt.Errorf("write config snapshot: %w", err)
		}
	}

	eng := sim.New(cfg)
	var prog *report.Progress
	if progress {
		prog = report.NewProgress(int(cfg.MaxSimulatedTime))
		eng.Progress = prog.Update
	}

	res := eng.Run()
	if prog != nil {
		prog.Done()
	}

	if err := report.WriteTimeSeries(cfg.PopulationFile, res); err != nil {
		return err
	}
	slog.Info("time series written", "path", cfg.PopulationFile, "days", len(res.Census))

	if cfg.WriteSymbiontCSV {
		if err := report.WriteSymbionts(cfg.SymbiontCSVFile, res.Symbionts); err != nil {
			return err
		}
		slog.Info("symbiont export written", "path", cfg.SymbiontCSVFile, "rows", len(res.Symbionts))
	}

	if cfg.DatabaseFile != "" {
		db, err := store.Open(cfg.DatabaseFile)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err := db.SaveRun(cfg, res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		slog.Info("run stored", "path", cfg.DatabaseFile, "run_id", runID)
	}

	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("validate requires a config file")
	}
	cfg, err := config.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d clades, %dx%d grid, %.0f days\n",
		len(cfg.Clades), cfg.NumRows, cfg.NumCols, cfg.MaxSimulatedTime)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\n\nusage:\n  spongesim run [-seed N] <config.csv> [showProgress=true]\n  spongesim validate <config.csv>", msg)
}
