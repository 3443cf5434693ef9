package cmd

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maitreyeee/passengersim/sim"
	"github.com/maitreyeee/passengersim/sim/db"
)

var (
	// CLI flags
	networkPath  string // Path to the scenario YAML file
	airportsPath string // Optional supplemental distance file
	logLevel     string // Log verbosity level
	outPath      string // Output database file
	dbMode       string // Persistence mode: sqlite or none
	fast         bool   // Skip high-volume detail tables
	workers      int    // Parallel trial workers
	seed         int64  // Random seed override (takes effect when >= 0)
	trials       int    // Trial count override (takes effect when > 0)
	samples      int    // Sample count override (takes effect when > 0)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "passengersim",
	Short: "Discrete-event simulator for airline revenue management",
}

func loadConfig() *sim.Config {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)

	if networkPath == "" {
		logrus.Fatalf("No network file provided. Exiting simulation.")
	}
	cfg, err := sim.LoadConfig(networkPath)
	if err != nil {
		logrus.Fatalf("Unable to load %s: %v", networkPath, err)
	}
	if airportsPath != "" {
		dists, err := sim.LoadDistances(airportsPath)
		if err != nil {
			logrus.Fatalf("Unable to load %s: %v", airportsPath, err)
		}
		cfg.Distances = append(cfg.Distances, dists...)
	}
	if seed >= 0 {
		cfg.Controls.RandomSeed = seed
	}
	if trials > 0 {
		cfg.Controls.NumTrials = trials
	}
	if samples > 0 {
		cfg.Controls.NumSamples = samples
		if cfg.Controls.BurnSamples >= samples {
			cfg.Controls.BurnSamples = samples / 2
		}
	}
	return cfg
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the revenue management simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		var sink sim.Sink
		switch dbMode {
		case "sqlite":
			s, err := db.New(outPath, fast)
			if err != nil {
				logrus.Fatalf("Unable to open output database: %v", err)
			}
			logrus.Infof("Writing output to %s (run %s)", outPath, s.RunID())
			sink = s
		case "none":
			sink = sim.NullSink{}
		default:
			logrus.Fatalf("Unknown db mode %q (want sqlite or none)", dbMode)
		}

		w := workers
		if w <= 0 {
			w = runtime.NumCPU()
		}
		simulator, err := sim.NewSimulator(cfg, sink, w)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}

		logrus.Infof("Starting simulation: %d trials x %d samples (%d burn), seed=%d",
			cfg.Controls.NumTrials, cfg.Controls.NumSamples, cfg.Controls.BurnSamples,
			cfg.Controls.RandomSeed)
		startTime := time.Now()

		summary, err := simulator.Run(context.Background())
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		// Close commits the final batch of rows; a failure here means the
		// run's output is incomplete.
		if err := sink.Close(); err != nil {
			logrus.Fatalf("Unable to finalize output: %v", err)
		}
		summary.Print()

		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

// infoCmd validates a scenario and prints its shape without simulating
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Validate a scenario file and describe the network",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		simulator, err := sim.NewSimulator(cfg, sim.NullSink{}, 1)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		simulator.Scenario().PrintInfo()
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, infoCmd} {
		c.Flags().StringVar(&networkPath, "network", "", "Scenario YAML file")
		c.Flags().StringVar(&airportsPath, "airports", "", "Supplemental distance YAML file")
		c.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Int64Var(&seed, "seed", -1, "Random seed override (-1 keeps the file's seed)")
	}

	runCmd.Flags().StringVar(&outPath, "out", "passengersim.db", "Output SQLite database")
	runCmd.Flags().StringVar(&dbMode, "db", "sqlite", "Persistence mode (sqlite, none)")
	runCmd.Flags().BoolVar(&fast, "fast", false, "Skip per-checkpoint detail tables")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Parallel trial workers (0 = num CPUs)")
	runCmd.Flags().IntVar(&trials, "trials", 0, "Trial count override (0 keeps the file's value)")
	runCmd.Flags().IntVar(&samples, "samples", 0, "Sample count override (0 keeps the file's value)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
}
