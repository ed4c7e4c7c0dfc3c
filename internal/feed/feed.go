// Package feed derives the identifiers of sequential feed updates. A feed
// is the series of SOCs an owner writes under one topic; update i is stored
// under identifier keccak256(topic || uint64BE(i)), so readers that know
// the topic and owner can locate any update without an index.
package feed

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"go.sia.tech/socbench/internal/soc"
)

// TopicSize is the size of a feed topic.
const TopicSize = 32

// ErrNoUpdates is returned by Lookup when the feed has no update at the
// starting index.
var ErrNoUpdates = errors.New("feed has no updates")

type (
	// A Topic names a feed within an owner's namespace.
	Topic [TopicSize]byte

	// A Getter fetches the payload stored under a SOC key.
	Getter interface {
		GetSOC(ctx context.Context, owner soc.Owner, id soc.ID) ([]byte, error)
	}
)

// NewTopic derives a topic from a human readable name.
func NewTopic(name string) (t Topic) {
	copy(t[:], crypto.Keccak256([]byte(name)))
	return
}

// String implements fmt.Stringer.
func (t Topic) String() string {
	return hex.EncodeToString(t[:])
}

// MarshalText implements encoding.TextMarshaler.
func (t Topic) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Topic) UnmarshalText(b []byte) error {
	var id soc.ID
	if err := id.UnmarshalText(b); err != nil {
		return fmt.Errorf("failed to decode topic: %w", err)
	}
	*t = Topic(id)
	return nil
}

// Identifier returns the SOC identifier of the update at index. The index
// is encoded big-endian.
func Identifier(topic Topic, index uint64) (id soc.ID) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	copy(id[:], crypto.Keccak256(topic[:], buf[:]))
	return
}

// Update constructs the SOC for the update at index.
func Update(signer soc.Signer, topic Topic, index uint64, payload []byte, format soc.Format) (*soc.Envelope, error) {
	return soc.Construct(signer, Identifier(topic, index), payload, format)
}

// isMiss reports whether err signals that no SOC exists under the probed
// key.
func isMiss(err error) bool {
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}

// Lookup finds the latest update by probing consecutive indices from start
// until the getter reports a miss. It returns the index and payload of the
// last update found.
func Lookup(ctx context.Context, g Getter, owner soc.Owner, topic Topic, start uint64) (uint64, []byte, error) {
	var (
		latest uint64
		data   []byte
		found  bool
	)
	for index := start; ; index++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		buf, err := g.GetSOC(ctx, owner, Identifier(topic, index))
		if isMiss(err) {
			break
		} else if err != nil {
			return 0, nil, fmt.Errorf("failed to get update %d: %w", index, err)
		}
		latest, data, found = index, buf, true

		if index == ^uint64(0) {
			break
		}
	}
	if !found {
		return 0, nil, ErrNoUpdates
	}
	return latest, data, nil
}
