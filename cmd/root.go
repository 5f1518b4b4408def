package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/Kyltetran/traffic-game/sim"
	"github.com/Kyltetran/traffic-game/sim/trace"
)

var (
	// CLI flags shared by run and serve
	seed       int64  // Seed for the starting population
	vehicles   int    // Number of vehicles in the starting population
	updateMode string // sequential or snapshot
	logLevel   string // Log verbosity level

	// CLI flags for run
	dt           float64  // Fixed step in simulated seconds
	maxTicks     int64    // Tick budget before the run is abandoned
	redSignals   []string // Signals held RED from the start
	scenarioPath string   // Scenario YAML file
	schedulePath string   // Signal schedule YAML file, overrides the scenario's schedule
	resultsPath  string   // File to write the JSON metrics to
	traceLevel   string   // Decision trace verbosity
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "traffic-game",
	Short: "Ramp-merge highway traffic microsimulation",
}

// runCmd executes one headless run using a scenario file and/or CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation headless until every vehicle exits",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyRunFlags(cmd, &sc)

		s, schedule, err := buildRun(sc, redSignals, traceLevel)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if schedulePath != "" {
			if schedule, err = sim.LoadSignalSchedule(schedulePath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		logrus.Infof("Starting simulation with %d vehicles (%d main, %d ramp), seed=%d, mode=%s, dt=%.3fs",
			s.Metrics.TotalVehicles, s.Metrics.MainStart, s.Metrics.RampStart, sc.Seed, s.Mode, s.DT)

		startTime := time.Now()
		res, err := s.Run(sc.MaxTicks, schedule)
		switch {
		case errors.Is(err, sim.ErrTickLimit):
			logrus.Warnf("%v", err)
		case err != nil:
			logrus.Fatalf("%v", err)
		}
		s.Metrics.SaveResults(startTime, resultsPath)

		if s.Trace.Enabled() {
			printTraceSummary(trace.Summarize(s.Trace))
		}

		if res.Completed {
			logrus.Infof("Simulation complete in %.2fs simulated (%d ticks).", res.ElapsedTime, res.Ticks)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// applyRunFlags lets explicitly set flags win over the scenario file.
func applyRunFlags(cmd *cobra.Command, sc *Scenario) {
	flags := cmd.Flags()
	if flags.Changed("vehicles") {
		sc.Vehicles = vehicles
	}
	if flags.Changed("seed") {
		sc.Seed = seed
	}
	if flags.Changed("dt") {
		sc.DT = dt
	}
	if flags.Changed("max-ticks") {
		sc.MaxTicks = maxTicks
	}
	if flags.Changed("update-mode") {
		sc.UpdateMode = updateMode
	}
}

// buildRun validates the scenario and builds the simulator plus the
// scenario's schedule. Every name in red starts RED.
func buildRun(sc Scenario, red []string, level string) (*sim.Simulator, *sim.SignalSchedule, error) {
	for _, raw := range red {
		name, err := sim.ParseSignalName(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("--red: %w", err)
		}
		if err := sc.Signals.Set(name, sim.SignalRed); err != nil {
			return nil, nil, err
		}
	}
	if sc.MaxTicks <= 0 {
		return nil, nil, fmt.Errorf("%w: max_ticks must be positive, got %d", sim.ErrInvalidConfig, sc.MaxTicks)
	}
	cfg, err := sc.SimConfig(level)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := sc.SignalSchedule()
	if err != nil {
		return nil, nil, err
	}
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, schedule, nil
}

func printTraceSummary(summary *trace.TraceSummary) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logrus.Errorf("Error marshalling trace summary: %v", err)
		return
	}
	fmt.Println("=== Decision Trace Summary ===")
	fmt.Println(string(data))
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().IntVar(&vehicles, "vehicles", sim.DefaultVehicles, fmt.Sprintf("Number of vehicles [%d,%d]", sim.MinVehicles, sim.MaxVehicles))
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the starting population")
	runCmd.Flags().Float64Var(&dt, "dt", sim.DefaultDT, "Fixed step in simulated seconds")
	runCmd.Flags().Int64Var(&maxTicks, "max-ticks", defaultMaxTicks, "Tick budget before the run is abandoned")
	runCmd.Flags().StringVar(&updateMode, "update-mode", string(sim.UpdateSequential), "Tick update mode (sequential, snapshot)")
	runCmd.Flags().StringSliceVar(&redSignals, "red", nil, "Signals held RED from the start (rampEntry, rampMiddle, mainMerge)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	runCmd.Flags().StringVar(&schedulePath, "schedule", "", "Signal schedule YAML file")
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "File to save the metrics JSON to")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, merges, decisions)")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Attach `run` and `serve` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
