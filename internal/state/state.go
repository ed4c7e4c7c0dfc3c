// Package state persists an uploader session: the owner key, the SOC
// identifier counter and the latest index written to each feed.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/soc"
)

const fileName = "session.json"

type (
	saveMeta struct {
		OwnerKey   string     `json:"ownerKey"`
		SOCCounter *big.Int   `json:"socCounter"`
		Feeds      []FeedMeta `json:"feeds"`
	}

	// FeedMeta records the latest index written to a feed.
	FeedMeta struct {
		Topic feed.Topic `json:"topic"`
		Index uint64     `json:"index"`
	}

	// A Store is a session persisted in a data directory.
	Store struct {
		dir string

		mu      sync.Mutex
		signer  *soc.KeySigner
		counter *big.Int
		feeds   map[feed.Topic]uint64
	}
)

func (s *Store) save() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	s.mu.Lock()
	meta := saveMeta{
		OwnerKey:   s.signer.PrivateKeyHex(),
		SOCCounter: new(big.Int).Set(s.counter),
		Feeds:      make([]FeedMeta, 0, len(s.feeds)),
	}
	for topic, index := range s.feeds {
		meta.Feeds = append(meta.Feeds, FeedMeta{Topic: topic, Index: index})
	}
	s.mu.Unlock()
	sort.Slice(meta.Feeds, func(i, j int) bool {
		return meta.Feeds[i].Topic.String() < meta.Feeds[j].Topic.String()
	})

	tmpFile := filepath.Join(s.dir, fileName+".tmp")
	outputFile := filepath.Join(s.dir, fileName)
	f, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	// sync and atomically replace the old file
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync session file: %w", err)
	} else if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	} else if err := os.Rename(tmpFile, outputFile); err != nil {
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	f, err := os.Open(filepath.Join(s.dir, fileName))
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	var meta saveMeta
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	signer, err := soc.KeySignerFromHex(meta.OwnerKey)
	if err != nil {
		return fmt.Errorf("failed to load owner key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
	if meta.SOCCounter != nil {
		if meta.SOCCounter.Sign() < 0 {
			return fmt.Errorf("negative SOC counter %v", meta.SOCCounter)
		}
		s.counter = meta.SOCCounter
	}
	s.feeds = make(map[feed.Topic]uint64)
	for _, fm := range meta.Feeds {
		s.feeds[fm.Topic] = fm.Index
	}
	return nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Signer returns the session's owner key.
func (s *Store) Signer() *soc.KeySigner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer
}

// SetSigner replaces the session key. Identifiers and feed indices belong
// to the previous owner and are reset.
func (s *Store) SetSigner(signer *soc.KeySigner) error {
	s.mu.Lock()
	s.signer = signer
	s.counter = new(big.Int)
	s.feeds = make(map[feed.Topic]uint64)
	s.mu.Unlock()
	return s.save()
}

// Counter returns the next sequential identifier counter.
func (s *Store) Counter() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.counter)
}

// SetCounter records the next sequential identifier counter.
func (s *Store) SetCounter(counter *big.Int) error {
	if counter.Sign() < 0 {
		return fmt.Errorf("negative counter %v", counter)
	}
	s.mu.Lock()
	s.counter = new(big.Int).Set(counter)
	s.mu.Unlock()
	return s.save()
}

// FeedIndex returns the latest index written to the feed with topic.
func (s *Store) FeedIndex(topic feed.Topic) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.feeds[topic]
	return index, ok
}

// SetFeedIndex records the latest index written to the feed with topic.
func (s *Store) SetFeedIndex(topic feed.Topic, index uint64) error {
	s.mu.Lock()
	s.feeds[topic] = index
	s.mu.Unlock()
	return s.save()
}

// Feeds returns the recorded feeds.
func (s *Store) Feeds() (feeds []FeedMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, index := range s.feeds {
		feeds = append(feeds, FeedMeta{Topic: topic, Index: index})
	}
	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].Topic.String() < feeds[j].Topic.String()
	})
	return feeds
}

// New opens the session in dir, creating one with a fresh key if none
// exists.
func New(dir string) (*Store, error) {
	s := &Store{
		dir:     dir,
		signer:  soc.GenerateKeySigner(),
		counter: new(big.Int),
		feeds:   make(map[feed.Topic]uint64),
	}
	// key, counter and feeds will be overwritten if the file exists
	if err := s.load(); errors.Is(err, os.ErrNotExist) {
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("failed to initialize session: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}
