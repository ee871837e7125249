package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/persona/config"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// isolate points the .env lookup at a file that does not exist.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvEnvFile, filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv(config.EnvConfigFile, "")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.2, cfg.Data.TestSize)
	assert.Equal(t, int64(42), cfg.Data.Seed)
	assert.Equal(t, 10, cfg.CV.Folds)
	assert.Equal(t, "roc_auc", cfg.CV.Scoring)
	assert.Equal(t, "standard", cfg.ElasticNet.Scaler)
	assert.Equal(t, 0.05, cfg.Thresholds.Step)
	assert.True(t, cfg.Report.Plots)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, "persona.yaml", `
data:
  path: data/survey.csv
  seed: 7
cv:
  folds: 5
  scoring: accuracy
random_forest:
  grid:
    n_estimators: [50]
    max_depth: [3, null]
elastic_net:
  scaler: minmax
report:
  plots: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/survey.csv", cfg.Data.Path)
	assert.Equal(t, int64(7), cfg.Data.Seed)
	assert.Equal(t, 0.2, cfg.Data.TestSize, "unset keys keep their default")
	assert.Equal(t, 5, cfg.CV.Folds)
	assert.Equal(t, "accuracy", cfg.CV.Scoring)
	assert.Equal(t, config.Grid{
		"n_estimators": {50},
		"max_depth":    {3, nil},
	}, cfg.RandomForest.Grid, "a file grid replaces the default grid")
	assert.Equal(t, config.Default().ElasticNet.Grid, cfg.ElasticNet.Grid)
	assert.Equal(t, "minmax", cfg.ElasticNet.Scaler)
	assert.False(t, cfg.Report.Plots)
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	isolate(t)
	path := writeFile(t, "persona.yaml", "cv:\n  folds: 3\n")
	t.Setenv(config.EnvConfigFile, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CV.Folds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	path := writeFile(t, "persona.yaml", "data:\n  seed: 7\n  test_size: 0.3\n")

	t.Setenv(config.EnvSeed, "99")
	t.Setenv(config.EnvTestSize, "0.25")
	t.Setenv(config.EnvCVFolds, "4")
	t.Setenv(config.EnvNJobs, "2")
	t.Setenv(config.EnvDataPath, "/tmp/p.csv")
	t.Setenv(config.EnvOutputDir, "/tmp/out")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvPlots, "false")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Data.Seed)
	assert.Equal(t, 0.25, cfg.Data.TestSize)
	assert.Equal(t, 4, cfg.CV.Folds)
	assert.Equal(t, 2, cfg.CV.NJobs)
	assert.Equal(t, "/tmp/p.csv", cfg.Data.Path)
	assert.Equal(t, "/tmp/out", cfg.Report.OutputDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Report.Plots)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.Unsetenv(config.EnvOutputDir))
	t.Cleanup(func() { _ = os.Unsetenv(config.EnvOutputDir) })

	envFile := writeFile(t, "test.env", config.EnvOutputDir+"=from-dotenv\n")
	t.Setenv(config.EnvEnvFile, envFile)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Report.OutputDir)
}

func TestLoad_DotEnvNamesConfigFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.Unsetenv(config.EnvConfigFile))

	path := writeFile(t, "persona.yaml", "cv:\n  folds: 6\n")
	envFile := writeFile(t, "test.env", config.EnvConfigFile+"="+path+"\n")
	t.Setenv(config.EnvEnvFile, envFile)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.CV.Folds)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var fnf *personaErrors.FileNotFoundError
	assert.True(t, personaErrors.As(err, &fnf))

	_, err = config.Load(writeFile(t, "bad.yaml", "data: [unclosed\n"))
	var pe *personaErrors.ParseError
	assert.True(t, personaErrors.As(err, &pe))

	t.Setenv(config.EnvSeed, "abc")
	_, err = config.Load("")
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty data path", func(c *config.Config) { c.Data.Path = " " }},
		{"test size zero", func(c *config.Config) { c.Data.TestSize = 0 }},
		{"test size one", func(c *config.Config) { c.Data.TestSize = 1 }},
		{"one fold", func(c *config.Config) { c.CV.Folds = 1 }},
		{"unknown scoring", func(c *config.Config) { c.CV.Scoring = "f1" }},
		{"negative jobs", func(c *config.Config) { c.CV.NJobs = -1 }},
		{"empty grid values", func(c *config.Config) { c.RandomForest.Grid["max_depth"] = nil }},
		{"unknown scaler", func(c *config.Config) { c.ElasticNet.Scaler = "robust" }},
		{"zero max iter", func(c *config.Config) { c.ElasticNet.MaxIter = 0 }},
		{"zero tol", func(c *config.Config) { c.ElasticNet.Tol = 0 }},
		{"zero step", func(c *config.Config) { c.Thresholds.Step = 0 }},
		{"start after stop", func(c *config.Config) { c.Thresholds.Start = 0.95 }},
		{"step too small for a grid", func(c *config.Config) { c.Thresholds.Step = 1e-300 }},
		{"empty output dir", func(c *config.Config) { c.Report.OutputDir = "" }},
		{"zero plot width", func(c *config.Config) { c.Report.Width = 0 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput), "got %v", err)
		})
	}

	cfg := config.Default()
	cfg.Report.Plots = false
	cfg.Report.Width = 0
	assert.NoError(t, cfg.Validate(), "plot size is ignored without plots")
}
