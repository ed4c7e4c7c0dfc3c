package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/identifier"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
)

type (
	// A Backend stores and retrieves SOCs and feeds.
	Backend interface {
		UploadSOC(ctx context.Context, e *soc.Envelope, level redundancy.Level) error
		DownloadSOC(ctx context.Context, owner soc.Owner, id soc.ID, level redundancy.Level) ([]byte, error)
		DownloadFeed(ctx context.Context, owner soc.Owner, topic feed.Topic, level redundancy.Level) ([]byte, error)
	}

	// An UploadResult describes a single SOC write.
	UploadResult struct {
		Payload          []byte
		ID               soc.ID
		ConstructionTime time.Duration
		UploadTime       time.Duration
	}

	// uploader holds what SOC and feed uploaders share.
	uploader struct {
		signer  soc.Signer
		format  soc.Format
		backend Backend
		verify  bool
		kind    Kind
		obs     Observer
	}

	// A SOCUploader writes SOCs under sequential identifiers.
	SOCUploader struct {
		uploader
		ids *identifier.Locked
	}

	// A FeedUploader writes consecutive updates to one feed. The first
	// update is written at index 1.
	FeedUploader struct {
		uploader
		topic feed.Topic

		mu    sync.Mutex
		index uint64
	}
)

// Owner returns the address the uploader writes as.
func (u *uploader) Owner() soc.Owner {
	return u.signer.Owner()
}

func (u *uploader) upload(ctx context.Context, id soc.ID, payload []byte, level redundancy.Level) (UploadResult, error) {
	e, err := soc.Construct(u.signer, id, payload, u.format)
	if err != nil {
		u.obs.Observe(Sample{Kind: u.kind, Phase: PhaseConstruction, Level: level, Err: err})
		return UploadResult{}, fmt.Errorf("failed to construct SOC: %w", err)
	}
	u.obs.Observe(Sample{Kind: u.kind, Phase: PhaseConstruction, Level: level, Duration: e.ConstructionTime})

	if u.verify {
		if err := soc.Verify(e); err != nil {
			return UploadResult{}, fmt.Errorf("constructed SOC failed verification: %w", err)
		}
	}

	start := time.Now()
	err = u.backend.UploadSOC(ctx, e, level)
	elapsed := time.Since(start)
	u.obs.Observe(Sample{Kind: u.kind, Phase: PhaseUpload, Level: level, Duration: elapsed, Err: err})
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{
		Payload:          payload,
		ID:               id,
		ConstructionTime: e.ConstructionTime,
		UploadTime:       elapsed,
	}, nil
}

// Upload writes the next SOC. Its payload names the identifier it is
// stored under.
func (u *SOCUploader) Upload(ctx context.Context, level redundancy.Level) (UploadResult, error) {
	id, err := u.ids.Next()
	if err != nil {
		return UploadResult{}, err
	}
	payload := []byte(fmt.Sprintf("This is write number %s", id))
	return u.upload(ctx, id, payload, level)
}

// Topic returns the feed's topic.
func (u *FeedUploader) Topic() feed.Topic {
	return u.topic
}

// Index returns the index of the latest update written.
func (u *FeedUploader) Index() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.index
}

// Upload writes the next feed update.
func (u *FeedUploader) Upload(ctx context.Context, level redundancy.Level) (UploadResult, error) {
	u.mu.Lock()
	u.index++
	index := u.index
	u.mu.Unlock()

	payload := []byte(fmt.Sprintf("This is write number %d", index))
	return u.upload(ctx, feed.Identifier(u.topic, index), payload, level)
}

// NewSOCUploader returns an uploader writing as signer with identifiers
// from ids.
func NewSOCUploader(backend Backend, signer soc.Signer, ids *identifier.Locked, format soc.Format) *SOCUploader {
	return &SOCUploader{
		uploader: uploader{signer: signer, format: format, backend: backend, kind: KindSOC, obs: nopObserver{}},
		ids:      ids,
	}
}

// NewFeedUploader returns an uploader for the feed (signer, topic)
// continuing after index start.
func NewFeedUploader(backend Backend, signer soc.Signer, topic feed.Topic, start uint64, format soc.Format) *FeedUploader {
	return &FeedUploader{
		uploader: uploader{signer: signer, format: format, backend: backend, kind: KindFeed, obs: nopObserver{}},
		topic:    topic,
		index:    start,
	}
}
