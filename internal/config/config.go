// Package config loads the benchmark configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.sia.tech/socbench/internal/bee"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
	"gopkg.in/yaml.v3"
)

// PostageBatchEnv overrides the configured postage batch.
const PostageBatchEnv = "SOCBENCH_POSTAGE_BATCH"

type (
	// Bench configures the measurement loops.
	Bench struct {
		// Attempts is the number of round trips per redundancy level in the
		// SOC benchmark.
		Attempts int `yaml:"attempts"`
		// Feeds is the number of feeds per redundancy level in the feed
		// benchmark, each updated Updates times.
		Feeds   int `yaml:"feeds"`
		Updates int `yaml:"updates"`
		// Settle is how long to wait after the last feed update before
		// downloading the feed.
		Settle time.Duration `yaml:"settle"`

		MinLevel redundancy.Level `yaml:"minLevel"`
		MaxLevel redundancy.Level `yaml:"maxLevel"`

		Concurrency int `yaml:"concurrency"`
		// RateLimit caps uploads per second. Zero disables the limit.
		RateLimit float64 `yaml:"rateLimit"`
		// Verify checks each envelope locally before it is uploaded.
		Verify bool `yaml:"verify"`
	}

	// Config is the top-level configuration.
	Config struct {
		UploadURL              string        `yaml:"uploadURL"`
		DownloadURL            string        `yaml:"downloadURL"`
		PostageBatchID         string        `yaml:"postageBatchID"`
		UploadMethod           string        `yaml:"uploadMethod"`
		SendDownloadRedundancy bool          `yaml:"sendDownloadRedundancy"`
		Format                 soc.Format    `yaml:"format"`
		RequestTimeout         time.Duration `yaml:"requestTimeout"`

		Bench Bench `yaml:"bench"`

		MetricsAddr string `yaml:"metricsAddr"`
		LogLevel    string `yaml:"logLevel"`
	}
)

// Default returns the default configuration: an uploading node on
// localhost:11633 and a separate downloading node on localhost:1633.
func Default() Config {
	return Config{
		UploadURL:      "http://localhost:11633",
		DownloadURL:    "http://localhost:1633",
		UploadMethod:   http.MethodPost,
		Format:         soc.FormatHeaderBased,
		RequestTimeout: 2 * time.Minute,
		Bench: Bench{
			Attempts:    10,
			Feeds:       1,
			Updates:     2,
			Settle:      3 * time.Second,
			MinLevel:    redundancy.None,
			MaxLevel:    redundancy.Paranoid,
			Concurrency: 1,
		},
		LogLevel: "info",
	}
}

// Load reads the configuration at path over the defaults. An empty path
// loads only the defaults. The postage batch environment variable takes
// precedence over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file: %w", err)
		}
	}
	if batch := os.Getenv(PostageBatchEnv); batch != "" {
		cfg.PostageBatchID = batch
	}
	return cfg, nil
}

// Validate checks the configuration for values the benchmarks cannot run
// with.
func (c Config) Validate() error {
	for _, u := range []string{c.UploadURL, c.DownloadURL} {
		if u == "" {
			continue
		}
		if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid node URL %q", u)
		}
	}
	switch {
	case c.UploadURL == "":
		return errors.New("upload URL is required")
	case c.PostageBatchID == "":
		return fmt.Errorf("postage batch id is required (set postageBatchID or %s)", PostageBatchEnv)
	case c.UploadMethod != http.MethodPost && c.UploadMethod != http.MethodPut:
		return fmt.Errorf("unsupported upload method %q", c.UploadMethod)
	case c.Bench.Attempts <= 0:
		return fmt.Errorf("attempts must be positive: %d", c.Bench.Attempts)
	case c.Bench.Feeds <= 0 || c.Bench.Updates <= 0:
		return fmt.Errorf("feeds and updates must be positive: %d, %d", c.Bench.Feeds, c.Bench.Updates)
	case c.Bench.Settle < 0:
		return fmt.Errorf("settle delay must not be negative: %v", c.Bench.Settle)
	case !c.Bench.MinLevel.Valid() || !c.Bench.MaxLevel.Valid() || c.Bench.MinLevel > c.Bench.MaxLevel:
		return fmt.Errorf("invalid redundancy range %d-%d", c.Bench.MinLevel, c.Bench.MaxLevel)
	case c.Bench.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive: %d", c.Bench.Concurrency)
	case c.Bench.RateLimit < 0:
		return fmt.Errorf("rate limit must not be negative: %v", c.Bench.RateLimit)
	}
	return nil
}

// BeeConfig returns the backend client configuration.
func (c Config) BeeConfig() bee.Config {
	return bee.Config{
		UploadURL:              c.UploadURL,
		DownloadURL:            c.DownloadURL,
		PostageBatchID:         c.PostageBatchID,
		UploadMethod:           c.UploadMethod,
		SendDownloadRedundancy: c.SendDownloadRedundancy,
	}
}
