package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "socbench.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PostageBatchEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Error(t, cfg.Validate()) // no postage batch
}

func TestLoadFile(t *testing.T) {
	t.Setenv(PostageBatchEnv, "")
	path := writeConfig(t, `
uploadURL: http://bee-1:1633
postageBatchID: 48ddab68b7595f766de6aa233b6ff92dd382fd078952d70487d311218ea555d6
format: self-contained
requestTimeout: 30s
bench:
  attempts: 3
  settle: 500ms
  minLevel: medium
  maxLevel: 2
  rateLimit: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "http://bee-1:1633", cfg.UploadURL)
	require.Equal(t, "http://localhost:1633", cfg.DownloadURL)
	require.Equal(t, soc.FormatSelfContained, cfg.Format)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.Bench.Attempts)
	require.Equal(t, 2, cfg.Bench.Updates)
	require.Equal(t, 500*time.Millisecond, cfg.Bench.Settle)
	require.Equal(t, redundancy.Medium, cfg.Bench.MinLevel)
	require.Equal(t, redundancy.Strong, cfg.Bench.MaxLevel)
	require.Equal(t, 5.0, cfg.Bench.RateLimit)

	bc := cfg.BeeConfig()
	require.Equal(t, cfg.PostageBatchID, bc.PostageBatchID)
	require.Equal(t, "POST", bc.UploadMethod)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(PostageBatchEnv, "from-env")
	cfg, err := Load(writeConfig(t, "postageBatchID: from-file\n"))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.PostageBatchID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "unknownField: 1\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "format: carrier-pigeon\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.PostageBatchID = "batch"
	require.NoError(t, valid.Validate())

	tests := map[string]func(*Config){
		"bad url":         func(c *Config) { c.DownloadURL = "localhost" },
		"no upload url":   func(c *Config) { c.UploadURL = "" },
		"bad method":      func(c *Config) { c.UploadMethod = "PATCH" },
		"no attempts":     func(c *Config) { c.Bench.Attempts = 0 },
		"no updates":      func(c *Config) { c.Bench.Updates = 0 },
		"negative settle": func(c *Config) { c.Bench.Settle = -time.Second },
		"inverted range":  func(c *Config) { c.Bench.MinLevel, c.Bench.MaxLevel = redundancy.Insane, redundancy.Medium },
		"bad level":       func(c *Config) { c.Bench.MaxLevel = 7 },
		"no workers":      func(c *Config) { c.Bench.Concurrency = 0 },
		"negative rate":   func(c *Config) { c.Bench.RateLimit = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
