package main

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.sia.tech/socbench/internal/bee"
	"go.sia.tech/socbench/internal/config"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/state"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir    string
	configPath string

	// flag overrides, applied only when set
	flagLogLevel       string
	flagUploadURL      string
	flagDownloadURL    string
	flagPostageBatch   string
	flagUploadMethod   string
	flagFormat         string
	flagTimeout        time.Duration
	flagAttempts       int
	flagFeeds          int
	flagUpdates        int
	flagSettle         time.Duration
	flagMinLevel       string
	flagMaxLevel       string
	flagConcurrency    int
	flagRateLimit      float64
	flagVerify         bool
	flagMetricsAddr    string
	flagSendRedundancy bool

	cfg    = config.Default()
	logger = zap.Must(newLogger("info"))

	rootCmd = &cobra.Command{
		Use:   "socbench",
		Short: "measure single owner chunk and feed round trips against Bee nodes",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c, err := loadConfig(cmd)
			if err != nil {
				logger.Fatal("failed to load config", zap.Error(err))
			}
			l, err := newLogger(c.LogLevel)
			if err != nil {
				logger.Fatal("failed to initialize logger", zap.Error(err))
			}
			cfg, logger = c, l
		},
	}
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zc.Build()
}

// loadConfig reads the config file and applies any flags set on the
// command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return applyFlags(c, cmd.Flags())
}

// applyFlags overrides c with every flag that was set explicitly.
func applyFlags(c config.Config, flags *pflag.FlagSet) (_ config.Config, err error) {
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("upload-url") {
		c.UploadURL = flagUploadURL
	}
	if flags.Changed("download-url") {
		c.DownloadURL = flagDownloadURL
	}
	if flags.Changed("postage-batch") {
		c.PostageBatchID = flagPostageBatch
	}
	if flags.Changed("upload-method") {
		c.UploadMethod = flagUploadMethod
	}
	if flags.Changed("format") {
		if err := c.Format.UnmarshalText([]byte(flagFormat)); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("timeout") {
		c.RequestTimeout = flagTimeout
	}
	if flags.Changed("send-download-redundancy") {
		c.SendDownloadRedundancy = flagSendRedundancy
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = flagMetricsAddr
	}
	if flags.Changed("attempts") {
		c.Bench.Attempts = flagAttempts
	}
	if flags.Changed("feeds") {
		c.Bench.Feeds = flagFeeds
	}
	if flags.Changed("updates") {
		c.Bench.Updates = flagUpdates
	}
	if flags.Changed("settle") {
		c.Bench.Settle = flagSettle
	}
	if flags.Changed("concurrency") {
		c.Bench.Concurrency = flagConcurrency
	}
	if flags.Changed("rate-limit") {
		c.Bench.RateLimit = flagRateLimit
	}
	if flags.Changed("verify") {
		c.Bench.Verify = flagVerify
	}
	if flags.Changed("min-level") {
		if c.Bench.MinLevel, err = redundancy.Parse(flagMinLevel); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("max-level") {
		if c.Bench.MaxLevel, err = redundancy.Parse(flagMaxLevel); err != nil {
			return config.Config{}, err
		}
	}
	return c, nil
}

func mustLoadStore() *state.Store {
	s, err := state.New(dataDir)
	if err != nil {
		logger.Fatal("failed to load session", zap.String("dir", dataDir), zap.Error(err))
	}
	return s
}

func mustNewClient() *bee.Client {
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	c, err := bee.New(cfg.BeeConfig(),
		bee.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		bee.WithLogger(logger.Named("bee")))
	if err != nil {
		logger.Fatal("failed to initialize client", zap.Error(err))
	}
	return c
}

// bindConfigFlags registers the flags shared by every command.
func bindConfigFlags(pf *pflag.FlagSet) {
	def := config.Default()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&flagLogLevel, "log-level", def.LogLevel, "log level")
	pf.StringVar(&flagUploadURL, "upload-url", def.UploadURL, "URL of the uploading node")
	pf.StringVar(&flagDownloadURL, "download-url", def.DownloadURL, "URL of the downloading node")
	pf.StringVar(&flagPostageBatch, "postage-batch", "", "postage batch id (or "+config.PostageBatchEnv+")")
	pf.StringVar(&flagUploadMethod, "upload-method", def.UploadMethod, "HTTP method of SOC uploads (POST or PUT)")
	pf.StringVar(&flagFormat, "format", def.Format.String(), "SOC upload format (header-based or self-contained)")
	pf.DurationVar(&flagTimeout, "timeout", def.RequestTimeout, "per request timeout")
	pf.BoolVar(&flagSendRedundancy, "send-download-redundancy", false, "send the redundancy level header on downloads")
}

// bindBenchFlags registers the measurement flags.
func bindBenchFlags(mf *pflag.FlagSet) {
	def := config.Default()
	mf.IntVar(&flagAttempts, "attempts", def.Bench.Attempts, "SOC round trips per redundancy level")
	mf.IntVar(&flagFeeds, "feeds", def.Bench.Feeds, "feeds per redundancy level")
	mf.IntVar(&flagUpdates, "updates", def.Bench.Updates, "updates per feed")
	mf.DurationVar(&flagSettle, "settle", def.Bench.Settle, "wait after the last feed update before downloading")
	mf.StringVar(&flagMinLevel, "min-level", def.Bench.MinLevel.String(), "lowest redundancy level")
	mf.StringVar(&flagMaxLevel, "max-level", def.Bench.MaxLevel.String(), "highest redundancy level")
	mf.IntVar(&flagConcurrency, "concurrency", def.Bench.Concurrency, "concurrent round trips")
	mf.Float64Var(&flagRateLimit, "rate-limit", 0, "maximum uploads per second, 0 for unlimited")
	mf.BoolVar(&flagVerify, "verify", false, "verify each envelope locally before upload")
	mf.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
}

func init() {
	defaultDataDir := "."
	switch runtime.GOOS {
	case "windows":
		defaultDataDir = filepath.Join(os.Getenv("LOCALAPPDATA"), "socbench")
	case "darwin":
		defaultDataDir = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "socbench")
	default:
		defaultDataDir = filepath.Join(os.Getenv("HOME"), ".local/socbench")
	}

	measureCmd.AddCommand(measureSOCCmd, measureFeedCmd)
	keyCmd.AddCommand(keyShowCmd, keyGenerateCmd, keyImportCmd)
	socCmd.AddCommand(socConstructCmd, socUploadCmd, socGetCmd)
	feedCmd.AddCommand(feedIDCmd, feedUpdateCmd, feedLookupCmd, feedGetCmd, feedListCmd)

	rootCmd.AddCommand(measureCmd, chunkCmd, socCmd, feedCmd, keyCmd)

	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", defaultDataDir, "data directory")

	bindConfigFlags(rootCmd.PersistentFlags())
	bindBenchFlags(measureCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}
