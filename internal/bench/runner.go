package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.sia.tech/socbench/internal/config"
	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/identifier"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
	"go.sia.tech/socbench/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type (
	// A Report summarizes one benchmark at one redundancy level.
	Report struct {
		Kind     Kind
		Level    redundancy.Level
		Attempts int
		// Failures counts attempts that returned an error, including
		// integrity mismatches.
		Failures   int
		Mismatches int
		// Stale counts feed downloads that did not return the latest
		// update.
		Stale int

		Construction stats.Summary
		Upload       stats.Summary
		Download     stats.Summary
	}

	// A Session supplies a persistent signer and identifier source. Without
	// one every redundancy level uses a fresh key.
	Session struct {
		Signer soc.Signer
		IDs    *identifier.Locked
	}

	// An Option configures a Runner.
	Option func(*Runner)

	// A Runner measures SOC and feed round trips across redundancy levels.
	Runner struct {
		backend  Backend
		settings config.Bench
		format   soc.Format
		session  *Session
		log      *zap.Logger
		obs      Observer
		limiter  *rate.Limiter
	}

	attempt struct {
		upload   UploadResult
		download time.Duration
		err      error
	}
)

// WithLogger sets the logger used by the runner.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithObserver sets an observer notified of every timed step.
func WithObserver(obs Observer) Option {
	return func(r *Runner) {
		r.obs = obs
	}
}

// WithFormat sets the SOC wire format.
func WithFormat(f soc.Format) Option {
	return func(r *Runner) {
		r.format = f
	}
}

// WithSession makes every SOC benchmark write as the session's signer and
// continue its identifier sequence.
func WithSession(s *Session) Option {
	return func(r *Runner) {
		r.session = s
	}
}

func (r *Runner) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (r *Runner) newSOCUploader() *SOCUploader {
	var u *SOCUploader
	if r.session != nil {
		u = NewSOCUploader(r.backend, r.session.Signer, r.session.IDs, r.format)
	} else {
		u = NewSOCUploader(r.backend, soc.GenerateKeySigner(), identifier.NewLocked(identifier.New()), r.format)
	}
	u.verify = r.settings.Verify
	u.obs = r.obs
	return u
}

func (r *Runner) socAttempt(ctx context.Context, u *SOCUploader, level redundancy.Level) (a attempt) {
	if err := r.wait(ctx); err != nil {
		a.err = err
		return
	}
	a.upload, a.err = u.Upload(ctx, level)
	if a.err != nil {
		return
	}

	start := time.Now()
	data, err := u.backend.DownloadSOC(ctx, u.Owner(), a.upload.ID, level)
	a.download = time.Since(start)
	r.obs.Observe(Sample{Kind: KindSOC, Phase: PhaseDownload, Level: level, Duration: a.download, Err: err})
	if err != nil {
		a.err = err
		return
	}
	if !bytes.Equal(data, a.upload.Payload) {
		a.err = fmt.Errorf("%w: SOC %v returned %d bytes, expected %q", soc.ErrIntegrityMismatch, a.upload.ID, len(data), a.upload.Payload)
	}
	return
}

func (r *Runner) socWorker(ctx context.Context, u *SOCUploader, level redundancy.Level, workChan <-chan int, resultsChan chan<- attempt) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-workChan:
			if !ok {
				return
			}
			resultsChan <- r.socAttempt(ctx, u, level)
		}
	}
}

func (r *Runner) measureSOCLevel(ctx context.Context, log *zap.Logger, level redundancy.Level) (Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u := r.newSOCUploader()
	log = log.With(zap.Stringer("level", level), zap.Stringer("owner", u.Owner()))
	log.Info("measuring SOC round trips", zap.Int("attempts", r.settings.Attempts))

	workers := max(1, r.settings.Concurrency)
	workChan := make(chan int, workers)
	resultsChan := make(chan attempt, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r.socWorker(ctx, u, level, workChan, resultsChan)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	go func() {
		defer close(workChan)
		for i := 0; i < r.settings.Attempts; i++ {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	report := Report{Kind: KindSOC, Level: level}
	var construction, upload, download []time.Duration
	for a := range resultsChan {
		report.Attempts++
		switch {
		case a.err == nil:
			construction = append(construction, a.upload.ConstructionTime)
			upload = append(upload, a.upload.UploadTime)
			download = append(download, a.download)
			log.Debug("round trip complete", zap.Stringer("id", a.upload.ID), zap.Duration("upload", a.upload.UploadTime), zap.Duration("download", a.download))
		case errors.Is(a.err, context.Canceled), errors.Is(a.err, context.DeadlineExceeded):
			report.Attempts--
		case errors.Is(a.err, soc.ErrIntegrityMismatch):
			report.Failures++
			report.Mismatches++
			log.Warn("integrity mismatch", zap.Error(a.err))
		default:
			report.Failures++
			log.Warn("attempt failed", zap.Error(a.err))
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Construction = stats.Calculate(construction)
	report.Upload = stats.Calculate(upload)
	report.Download = stats.Calculate(download)
	return report, nil
}

// MeasureSOC uploads and downloads Attempts SOCs at every configured
// redundancy level. Failed attempts are counted, not returned.
func (r *Runner) MeasureSOC(ctx context.Context) ([]Report, error) {
	var reports []Report
	log := r.log.With(zap.String("run", uuid.NewString()))
	for _, level := range redundancy.Range(r.settings.MinLevel, r.settings.MaxLevel) {
		report, err := r.measureSOCLevel(ctx, log, level)
		if err != nil {
			return reports, fmt.Errorf("failed to measure SOCs at level %v: %w", level, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

type feedResult struct {
	construction time.Duration
	upload       time.Duration
	download     time.Duration
	stale        bool
}

func (r *Runner) settle(ctx context.Context) error {
	if r.settings.Settle <= 0 {
		return nil
	}
	t := time.NewTimer(r.settings.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) measureFeed(ctx context.Context, u *FeedUploader, level redundancy.Level) (res feedResult, err error) {
	var last []byte
	for i := 0; i < r.settings.Updates; i++ {
		if err := r.wait(ctx); err != nil {
			return res, err
		}
		up, err := u.Upload(ctx, level)
		if err != nil {
			return res, fmt.Errorf("failed to write update %d: %w", u.Index(), err)
		}
		res.construction += up.ConstructionTime
		res.upload += up.UploadTime
		last = up.Payload
	}

	if err := r.settle(ctx); err != nil {
		return res, err
	}

	start := time.Now()
	data, err := u.backend.DownloadFeed(ctx, u.Owner(), u.Topic(), level)
	res.download = time.Since(start)
	r.obs.Observe(Sample{Kind: KindFeed, Phase: PhaseDownload, Level: level, Duration: res.download, Err: err})
	if err != nil {
		return res, fmt.Errorf("failed to download feed: %w", err)
	}
	res.stale = last != nil && !bytes.Equal(data, last)
	return res, nil
}

func (r *Runner) measureFeedLevel(ctx context.Context, log *zap.Logger, level redundancy.Level) (Report, error) {
	log = log.With(zap.Stringer("level", level))
	log.Info("measuring feed round trips", zap.Int("feeds", r.settings.Feeds), zap.Int("updates", r.settings.Updates))

	topics := identifier.New()
	var uploaders []*FeedUploader
	for i := 0; i < r.settings.Feeds; i++ {
		id, err := topics.Next()
		if err != nil {
			return Report{}, err
		}
		u := NewFeedUploader(r.backend, soc.GenerateKeySigner(), feed.Topic(id), 0, r.format)
		u.verify = r.settings.Verify
		u.obs = r.obs
		uploaders = append(uploaders, u)
	}

	var mu sync.Mutex
	report := Report{Kind: KindFeed, Level: level}
	var construction, upload, download []time.Duration

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.settings.Concurrency))
	for _, u := range uploaders {
		u := u
		g.Go(func() error {
			log := log.With(zap.Stringer("owner", u.Owner()), zap.Stringer("topic", u.Topic()))
			res, err := r.measureFeed(ctx, u, level)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Attempts++
			if err != nil {
				report.Failures++
				log.Warn("feed failed", zap.Error(err))
				return nil
			}
			if res.stale {
				report.Stale++
				log.Warn("feed did not return the latest update", zap.Uint64("index", u.Index()))
			}
			construction = append(construction, res.construction)
			upload = append(upload, res.upload)
			download = append(download, res.download)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Construction = stats.Calculate(construction)
	report.Upload = stats.Calculate(upload)
	report.Download = stats.Calculate(download)
	return report, nil
}

// MeasureFeed writes Updates updates to each of Feeds fresh feeds at every
// configured redundancy level, then reads each feed back once. Upload and
// construction times are totals per feed.
func (r *Runner) MeasureFeed(ctx context.Context) ([]Report, error) {
	var reports []Report
	log := r.log.With(zap.String("run", uuid.NewString()))
	for _, level := range redundancy.Range(r.settings.MinLevel, r.settings.MaxLevel) {
		report, err := r.measureFeedLevel(ctx, log, level)
		if err != nil {
			return reports, fmt.Errorf("failed to measure feeds at level %v: %w", level, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// NewRunner returns a runner measuring backend with the given settings.
func NewRunner(backend Backend, settings config.Bench, opts ...Option) *Runner {
	r := &Runner{
		backend:  backend,
		settings: settings,
		format:   soc.FormatHeaderBased,
		log:      zap.NewNop(),
		obs:      nopObserver{},
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	if settings.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(settings.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
