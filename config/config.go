// Package config loads the analysis settings.
//
// Settings are resolved in order: built-in defaults, an optional YAML file,
// then PERSONA_* environment variables. A .env file (PERSONA_ENV_FILE, or
// .env in the working directory) is read first and fills in variables that
// are not already set, so it may also name the YAML file through
// PERSONA_CONFIG. The result is validated before it is returned.
//
//	data:
//	  path: personality_dataset.csv
//	  test_size: 0.2
//	  seed: 42
//	cv:
//	  folds: 10
//	  scoring: roc_auc
//	random_forest:
//	  grid:
//	    n_estimators: [100, 300]
//	    max_depth: [0, 10]
//	elastic_net:
//	  scaler: standard
//	  grid:
//	    C: [0.01, 0.1, 1, 10]
//	    l1_ratio: [0.1, 0.5, 0.9]
//	thresholds: {start: 0.1, stop: 0.9, step: 0.05}
//	report:
//	  output_dir: output
//	  plots: true
//	log:
//	  level: info
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ezoic/persona/metrics"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

// Environment variables.
const (
	EnvConfigFile = "PERSONA_CONFIG"
	EnvEnvFile    = "PERSONA_ENV_FILE"
	EnvDataPath   = "PERSONA_DATA_PATH"
	EnvOutputDir  = "PERSONA_OUTPUT_DIR"
	EnvSeed       = "PERSONA_SEED"
	EnvTestSize   = "PERSONA_TEST_SIZE"
	EnvCVFolds    = "PERSONA_CV_FOLDS"
	EnvNJobs      = "PERSONA_N_JOBS"
	EnvLogLevel   = "PERSONA_LOG_LEVEL"
	EnvPlots      = "PERSONA_PLOTS"
)

// DefaultEnvFile is read when EnvEnvFile is unset.
const DefaultEnvFile = ".env"

// Grid maps a hyperparameter name to the values to search.
type Grid map[string][]interface{}

type DataConfig struct {
	Path     string  `yaml:"path"`
	TestSize float64 `yaml:"test_size"`
	Seed     int64   `yaml:"seed"`
}

type CVConfig struct {
	Folds   int    `yaml:"folds"`
	Scoring string `yaml:"scoring"`
	// NJobs bounds concurrent fold fits; 0 uses every CPU.
	NJobs int `yaml:"n_jobs"`
}

type ForestConfig struct {
	Grid Grid `yaml:"grid"`
}

type ElasticNetConfig struct {
	Grid    Grid    `yaml:"grid"`
	Scaler  string  `yaml:"scaler"`
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`
}

type ThresholdConfig struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

type ReportConfig struct {
	OutputDir string  `yaml:"output_dir"`
	Plots     bool    `yaml:"plots"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Config holds every setting of an analysis run.
type Config struct {
	Data         DataConfig       `yaml:"data"`
	CV           CVConfig         `yaml:"cv"`
	RandomForest ForestConfig     `yaml:"random_forest"`
	ElasticNet   ElasticNetConfig `yaml:"elastic_net"`
	Thresholds   ThresholdConfig  `yaml:"thresholds"`
	Report       ReportConfig     `yaml:"report"`
	Log          LogConfig        `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:     "personality_dataset.csv",
			TestSize: 0.2,
			Seed:     42,
		},
		CV: CVConfig{
			Folds:   10,
			Scoring: "roc_auc",
		},
		RandomForest: ForestConfig{
			Grid: Grid{
				"n_estimators":     {100, 200},
				"max_depth":        {0, 10},
				"min_samples_leaf": {1, 5},
				"max_features":     {"sqrt"},
			},
		},
		ElasticNet: ElasticNetConfig{
			Grid: Grid{
				"C":        {0.01, 0.1, 1.0, 10.0},
				"l1_ratio": {0.1, 0.5, 0.9},
			},
			Scaler:  "standard",
			MaxIter: 1000,
			Tol:     1e-4,
		},
		Thresholds: ThresholdConfig{
			Start: 0.10,
			Stop:  0.90,
			Step:  0.05,
		},
		Report: ReportConfig{
			OutputDir: "output",
			Plots:     true,
			Width:     6,
			Height:    4,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load resolves the settings. path names a YAML file; when empty,
// PERSONA_CONFIG is consulted (it may come from the .env file), and without
// either only defaults and the environment apply.
func Load(path string) (*Config, error) {
	envFile := os.Getenv(EnvEnvFile)
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !personaErrors.Is(err, fs.ErrNotExist) {
		return nil, personaErrors.NewParseError(envFile, 0, "", "invalid env file", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, personaErrors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if personaErrors.Is(err, fs.ErrNotExist) {
			return personaErrors.NewFileNotFoundError(path, err)
		}
		return personaErrors.Wrapf(err, "read config file %s", path)
	}

	// A grid given in the file replaces the default grid instead of merging
	// into it.
	forestGrid, netGrid := c.RandomForest.Grid, c.ElasticNet.Grid
	c.RandomForest.Grid, c.ElasticNet.Grid = nil, nil

	if err := yaml.Unmarshal(data, c); err != nil {
		return personaErrors.NewParseError(path, 0, "", "invalid YAML", err)
	}

	if c.RandomForest.Grid == nil {
		c.RandomForest.Grid = forestGrid
	}
	if c.ElasticNet.Grid == nil {
		c.ElasticNet.Grid = netGrid
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataPath); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Report.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return personaErrors.NewValidationError(EnvSeed, "must be an integer", v)
		}
		c.Data.Seed = seed
	}
	if v := os.Getenv(EnvTestSize); v != "" {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return personaErrors.NewValidationError(EnvTestSize, "must be a number", v)
		}
		c.Data.TestSize = size
	}
	if v := os.Getenv(EnvCVFolds); v != "" {
		folds, err := strconv.Atoi(v)
		if err != nil {
			return personaErrors.NewValidationError(EnvCVFolds, "must be an integer", v)
		}
		c.CV.Folds = folds
	}
	if v := os.Getenv(EnvNJobs); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return personaErrors.NewValidationError(EnvNJobs, "must be an integer", v)
		}
		c.CV.NJobs = jobs
	}
	if v := os.Getenv(EnvPlots); v != "" {
		plots, err := strconv.ParseBool(v)
		if err != nil {
			return personaErrors.NewValidationError(EnvPlots, "must be a boolean", v)
		}
		c.Report.Plots = plots
	}
	return nil
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Path) == "" {
		return personaErrors.NewValidationError("data.path", "is required", c.Data.Path)
	}
	if !(c.Data.TestSize > 0 && c.Data.TestSize < 1) {
		return personaErrors.NewValidationError("data.test_size", "must be in (0, 1)", c.Data.TestSize)
	}

	if c.CV.Folds < 2 {
		return personaErrors.NewValidationError("cv.folds", "must be at least 2", c.CV.Folds)
	}
	switch c.CV.Scoring {
	case "roc_auc", "accuracy", "neg_log_loss":
	default:
		return personaErrors.NewValidationError("cv.scoring", "must be roc_auc, accuracy or neg_log_loss", c.CV.Scoring)
	}
	if c.CV.NJobs < 0 {
		return personaErrors.NewValidationError("cv.n_jobs", "must be >= 0", c.CV.NJobs)
	}

	if err := validateGrid("random_forest.grid", c.RandomForest.Grid); err != nil {
		return err
	}
	if err := validateGrid("elastic_net.grid", c.ElasticNet.Grid); err != nil {
		return err
	}
	switch c.ElasticNet.Scaler {
	case "standard", "minmax":
	default:
		return personaErrors.NewValidationError("elastic_net.scaler", "must be standard or minmax", c.ElasticNet.Scaler)
	}
	if c.ElasticNet.MaxIter <= 0 {
		return personaErrors.NewValidationError("elastic_net.max_iter", "must be positive", c.ElasticNet.MaxIter)
	}
	if !(c.ElasticNet.Tol > 0) {
		return personaErrors.NewValidationError("elastic_net.tol", "must be positive", c.ElasticNet.Tol)
	}

	t := c.Thresholds
	if _, err := metrics.CutoffGrid(t.Start, t.Stop, t.Step); err != nil {
		return personaErrors.Wrap(err, "thresholds")
	}

	if strings.TrimSpace(c.Report.OutputDir) == "" {
		return personaErrors.NewValidationError("report.output_dir", "is required", c.Report.OutputDir)
	}
	if c.Report.Plots && !(c.Report.Width > 0 && c.Report.Height > 0) {
		return personaErrors.NewValidationError("report.width/height", "must be positive", [2]float64{c.Report.Width, c.Report.Height})
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func validateGrid(name string, g Grid) error {
	for k, values := range g {
		if len(values) == 0 {
			return personaErrors.NewValidationError(name+"."+k, "needs at least one value", values)
		}
	}
	return nil
}
