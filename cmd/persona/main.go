// Command persona runs the personality classification analysis and writes
// its report.
//
//	persona -data personality_dataset.csv -out output
//	persona -config persona.yaml -log-level debug -no-plots
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezoic/persona/analysis"
	"github.com/ezoic/persona/config"
	"github.com/ezoic/persona/pkg/log"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	// exitPartial means the report was written but a model failed.
	exitPartial = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("persona", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML configuration file (default $"+config.EnvConfigFile+")")
		dataPath   = fs.String("data", "", "Input CSV file")
		outputDir  = fs.String("out", "", "Output directory for the report")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error")
		seed       = fs.Int64("seed", 0, "Random seed for splitting, folds and forests")
		noPlots    = fs.Bool("no-plots", false, "Skip PNG charts")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "persona: load configuration: %v\n", err)
		return exitFailure
	}

	// Flags override the file and the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Path = *dataPath
		case "out":
			cfg.Report.OutputDir = *outputDir
		case "log-level":
			cfg.Log.Level = *logLevel
		case "seed":
			cfg.Data.Seed = *seed
		case "no-plots":
			cfg.Report.Plots = !*noPlots
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "persona: %v\n", err)
		return exitUsage
	}

	log.SetupLogger(cfg.Log.Level, os.Stderr, cfg.Log.Console)
	logger := log.GetLoggerWithName("persona")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := analysis.Run(ctx, cfg, logger)
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		return exitFailure
	}

	for _, path := range result.Files {
		fmt.Println(path)
	}
	if n := len(result.Report.Failures); n > 0 {
		logger.Warn("Report written with failed models", "analysis.failures", n)
		return exitPartial
	}
	return exitOK
}
