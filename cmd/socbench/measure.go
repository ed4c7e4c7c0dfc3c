package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"go.sia.tech/socbench/internal/bench"
	"go.sia.tech/socbench/internal/identifier"
	"go.sia.tech/socbench/internal/state"
	"go.sia.tech/socbench/internal/stats"
	"go.uber.org/zap"
)

var (
	useSession bool

	measureCmd = &cobra.Command{
		Use:   "measure",
		Short: "measure round trips across redundancy levels",
	}

	measureSOCCmd = &cobra.Command{
		Use:   "soc",
		Short: "upload and download single owner chunks",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			opts := runnerOptions(ctx)
			var (
				ids   *identifier.Locked
				store *state.Store
			)
			if useSession {
				store = mustLoadStore()
				gen, err := identifier.NewFrom(store.Counter())
				if err != nil {
					logger.Fatal("failed to resume identifiers", zap.Error(err))
				}
				ids = identifier.NewLocked(gen)
				opts = append(opts, bench.WithSession(&bench.Session{Signer: store.Signer(), IDs: ids}))
			}

			r := bench.NewRunner(mustNewClient(), cfg.Bench, opts...)
			reports, err := r.MeasureSOC(ctx)
			if store != nil {
				if err := store.SetCounter(ids.Counter()); err != nil {
					logger.Error("failed to save identifier counter", zap.Error(err))
				}
			}
			printReports(reports)
			if err != nil {
				logger.Fatal("failed to measure SOCs", zap.Error(err))
			}
		},
	}

	measureFeedCmd = &cobra.Command{
		Use:   "feed",
		Short: "write and read back sequential feeds",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			r := bench.NewRunner(mustNewClient(), cfg.Bench, runnerOptions(ctx)...)
			reports, err := r.MeasureFeed(ctx)
			printReports(reports)
			if err != nil {
				logger.Fatal("failed to measure feeds", zap.Error(err))
			}
		},
	}
)

// runnerOptions returns the shared runner options, starting the metrics
// server if one is configured. The server stops when ctx is done.
func runnerOptions(ctx context.Context) []bench.Option {
	opts := []bench.Option{
		bench.WithLogger(logger.Named("bench")),
		bench.WithFormat(cfg.Format),
	}
	if cfg.MetricsAddr == "" {
		return opts
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	po, err := bench.NewPrometheusObserver(reg)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	return append(opts, bench.WithObserver(po))
}

func formatSummary(s stats.Summary) string {
	if s.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f ± %.2f", stats.Milliseconds(s.Average), stats.Milliseconds(s.StdDev))
}

func formatRange(s stats.Summary) string {
	if s.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f-%.2f", stats.Milliseconds(s.Min), stats.Milliseconds(s.Max))
}

func printReports(reports []bench.Report) {
	if len(reports) == 0 {
		return
	}
	tbl := table.New("Level", "Attempts", "Failed", "Mismatched", "Stale", "Construction (ms)", "Upload (ms)", "Upload Range", "Download (ms)", "Download Range")
	for _, r := range reports {
		tbl.AddRow(r.Level, r.Attempts, r.Failures, r.Mismatches, r.Stale,
			formatSummary(r.Construction),
			formatSummary(r.Upload), formatRange(r.Upload),
			formatSummary(r.Download), formatRange(r.Download))
	}
	tbl.Print()
}

func init() {
	measureSOCCmd.Flags().BoolVar(&useSession, "session", false, "write as the persisted session key and continue its identifiers")
}
