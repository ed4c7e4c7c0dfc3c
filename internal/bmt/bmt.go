// Package bmt implements the binary Merkle tree hash used to address chunks.
//
// The tree is built over a fixed number of 32 byte segments. Input shorter
// than the tree's capacity is zero padded, so the root only depends on the
// padded contents; callers that need length binding (content addressed
// chunks) hash the span together with the root.
package bmt

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

const (
	// SegmentSize is the size of a leaf segment, equal to the base hash size.
	SegmentSize = 32
	// SegmentCount is the number of leaf segments in a chunk tree.
	SegmentCount = 128
	// Capacity is the maximum amount of data covered by one tree.
	Capacity = SegmentSize * SegmentCount
)

// A BaseHasherFunc returns a new instance of the hash used for tree nodes.
type BaseHasherFunc func() hash.Hash

// A Hasher computes BMT roots. It holds no state between calls and is
// safe for concurrent use.
type Hasher struct {
	base     BaseHasherFunc
	capacity int
}

// Root returns the root of the tree over data. Data longer than the
// hasher's capacity is truncated.
func (h *Hasher) Root(data []byte) []byte {
	padded := make([]byte, h.capacity)
	copy(padded, data)
	return h.node(h.base(), padded)
}

// node hashes a subtree. Once the slice is down to a pair of segments the
// pair itself is hashed, otherwise both halves are hashed recursively and
// their roots concatenated.
func (h *Hasher) node(hasher hash.Hash, data []byte) []byte {
	var section []byte
	if len(data) == 2*SegmentSize {
		section = data
	} else {
		half := len(data) / 2
		section = append(h.node(hasher, data[:half]), h.node(hasher, data[half:])...)
	}
	hasher.Reset()
	hasher.Write(section)
	return hasher.Sum(nil)
}

// NewHasher returns a Hasher with the given base hash covering count
// segments. count is rounded up to a power of two of at least 2.
func NewHasher(base BaseHasherFunc, count int) *Hasher {
	c := 2
	for c < count {
		c *= 2
	}
	return &Hasher{
		base:     base,
		capacity: c * base().Size(),
	}
}

// New returns the keccak256 chunk hasher used by the storage network.
func New() *Hasher {
	return NewHasher(sha3.NewLegacyKeccak256, SegmentCount)
}
