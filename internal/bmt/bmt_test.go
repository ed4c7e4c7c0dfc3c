package bmt

import (
	"bytes"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/frand"
)

func keccak(b ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range b {
		h.Write(p)
	}
	return h.Sum(nil)
}

func TestRootTwoSegments(t *testing.T) {
	h := NewHasher(sha3.NewLegacyKeccak256, 2)
	data := frand.Bytes(2 * SegmentSize)
	require.Equal(t, keccak(data), h.Root(data))
}

func TestRootFourSegments(t *testing.T) {
	h := NewHasher(sha3.NewLegacyKeccak256, 3) // rounded up to 4
	data := frand.Bytes(3 * SegmentSize)

	padded := make([]byte, 4*SegmentSize)
	copy(padded, data)
	left := keccak(padded[:2*SegmentSize])
	right := keccak(padded[2*SegmentSize:])
	require.Equal(t, keccak(left, right), h.Root(data))
}

func TestRootPadding(t *testing.T) {
	h := New()
	data := []byte("foo")
	padded := make([]byte, Capacity)
	copy(padded, data)
	require.Equal(t, h.Root(data), h.Root(padded))
}

func TestRootTruncates(t *testing.T) {
	h := New()
	data := frand.Bytes(Capacity + 10)
	require.Equal(t, h.Root(data[:Capacity]), h.Root(data))
}

func TestRootEmptyChunk(t *testing.T) {
	// root of 4096 zero bytes
	h := New()
	zero := make([]byte, SegmentSize*2)
	node := keccak(zero)
	for i := 2; i < SegmentCount; i *= 2 {
		node = keccak(node, node)
	}
	require.Equal(t, hex.EncodeToString(node), hex.EncodeToString(h.Root(nil)))
}

func TestRootConcurrent(t *testing.T) {
	h := New()
	data := frand.Bytes(Capacity)
	want := h.Root(data)

	var wg sync.WaitGroup
	errs := make(chan []byte, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := h.Root(data); !bytes.Equal(got, want) {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Fatalf("concurrent root mismatch: %x", got)
	}
}
