package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.sia.tech/socbench/internal/config"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("socbench", pflag.ContinueOnError)
	bindConfigFlags(fs)
	bindBenchFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestApplyFlagsUnset(t *testing.T) {
	c := config.Default()
	c.UploadURL = "http://bee:1633"
	c.Bench.Attempts = 7

	merged, err := applyFlags(c, parseFlags(t))
	require.NoError(t, err)
	require.Equal(t, c, merged)
}

func TestApplyFlagsOverride(t *testing.T) {
	merged, err := applyFlags(config.Default(), parseFlags(t,
		"--upload-url", "http://upload:11633",
		"--download-url", "http://download:1633",
		"--postage-batch", "abc",
		"--upload-method", "PUT",
		"--format", "inline",
		"--timeout", "5s",
		"--send-download-redundancy",
		"--log-level", "debug",
		"--attempts", "3",
		"--feeds", "4",
		"--updates", "5",
		"--settle", "0s",
		"--min-level", "medium",
		"--max-level", "3",
		"--concurrency", "8",
		"--rate-limit", "2.5",
		"--verify",
		"--metrics-addr", ":9090",
	))
	require.NoError(t, err)

	require.Equal(t, "http://upload:11633", merged.UploadURL)
	require.Equal(t, "http://download:1633", merged.DownloadURL)
	require.Equal(t, "abc", merged.PostageBatchID)
	require.Equal(t, "PUT", merged.UploadMethod)
	require.Equal(t, soc.FormatSelfContained, merged.Format)
	require.Equal(t, 5*time.Second, merged.RequestTimeout)
	require.True(t, merged.SendDownloadRedundancy)
	require.Equal(t, "debug", merged.LogLevel)
	require.Equal(t, ":9090", merged.MetricsAddr)
	require.Equal(t, config.Bench{
		Attempts:    3,
		Feeds:       4,
		Updates:     5,
		Settle:      0,
		MinLevel:    redundancy.Medium,
		MaxLevel:    redundancy.Insane,
		Concurrency: 8,
		RateLimit:   2.5,
		Verify:      true,
	}, merged.Bench)
	require.NoError(t, merged.Validate())
}

func TestApplyFlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socbench.yml")
	contents := `
uploadURL: http://file:11633
postageBatchID: from-file
bench:
  attempts: 20
  concurrency: 2
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	t.Setenv(config.PostageBatchEnv, "from-env")

	c, err := config.Load(path)
	require.NoError(t, err)
	merged, err := applyFlags(c, parseFlags(t, "--attempts", "2", "--postage-batch", "from-flag"))
	require.NoError(t, err)

	require.Equal(t, "http://file:11633", merged.UploadURL)
	require.Equal(t, "from-flag", merged.PostageBatchID)
	require.Equal(t, 2, merged.Bench.Attempts)
	require.Equal(t, 2, merged.Bench.Concurrency)
}

func TestApplyFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"--format", "sideways"}},
		{"min level", []string{"--min-level", "ultra"}},
		{"max level", []string{"--max-level", "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyFlags(config.Default(), parseFlags(t, tt.args...))
			require.Error(t, err)
		})
	}
}
