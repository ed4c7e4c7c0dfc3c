// Package cac builds content-addressed chunks: a payload prefixed with its
// little-endian length (the span) and addressed by the hash of
// span and the BMT root of the payload.
package cac

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"go.sia.tech/socbench/internal/bmt"
	"golang.org/x/crypto/sha3"
)

const (
	// SpanSize is the size of the length prefix of a chunk.
	SpanSize = 8
	// MaxChunkSize is the maximum payload size of a single chunk.
	MaxChunkSize = bmt.Capacity
	// AddressSize is the size of a chunk address.
	AddressSize = 32
)

var (
	// ErrPayloadTooLarge is returned when a payload does not fit in a chunk.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidAddress is returned when recomputing a chunk's address does
	// not match the expected address.
	ErrInvalidAddress = errors.New("chunk address mismatch")
	// ErrTooShort is returned when serialized chunk data has no span.
	ErrTooShort = errors.New("chunk data shorter than span")
)

var hasher = bmt.New()

type (
	// A Span is the little-endian encoded length of a chunk's payload.
	Span [SpanSize]byte

	// An Address is the content address of a chunk.
	Address [AddressSize]byte

	// A Chunk is an immutable content-addressed piece of data.
	Chunk struct {
		Span    Span
		Data    []byte
		Address Address
	}
)

// NewSpan encodes n as a span.
func NewSpan(n uint64) (s Span) {
	binary.LittleEndian.PutUint64(s[:], n)
	return
}

// Length returns the length encoded in the span.
func (s Span) Length() uint64 {
	return binary.LittleEndian.Uint64(s[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	b = bytes.TrimPrefix(b, []byte("0x"))
	if n, err := hex.Decode(a[:], b); err != nil {
		return fmt.Errorf("failed to decode address: %w", err)
	} else if n != AddressSize {
		return fmt.Errorf("invalid address length: %d", n)
	}
	return nil
}

// Bytes returns the serialized chunk, span followed by data.
func (c Chunk) Bytes() []byte {
	buf := make([]byte, 0, SpanSize+len(c.Data))
	buf = append(buf, c.Span[:]...)
	return append(buf, c.Data...)
}

// Hash returns the content address of a chunk with the given span and
// payload.
func Hash(span Span, data []byte) (addr Address) {
	h := sha3.NewLegacyKeccak256()
	h.Write(span[:])
	h.Write(hasher.Root(data))
	h.Sum(addr[:0])
	return
}

// NewWithSpan builds a chunk with an explicit span. The span may exceed the
// payload length for intermediate chunks of larger files.
func NewWithSpan(span uint64, payload []byte) (Chunk, error) {
	if len(payload) > MaxChunkSize {
		return Chunk{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxChunkSize)
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	s := NewSpan(span)
	return Chunk{
		Span:    s,
		Data:    data,
		Address: Hash(s, data),
	}, nil
}

// New builds a content-addressed chunk from payload.
func New(payload []byte) (Chunk, error) {
	return NewWithSpan(uint64(len(payload)), payload)
}

// FromBytes parses serialized chunk data (span followed by payload) and
// computes its address.
func FromBytes(b []byte) (Chunk, error) {
	if len(b) < SpanSize {
		return Chunk{}, ErrTooShort
	}
	var s Span
	copy(s[:], b[:SpanSize])
	return NewWithSpan(s.Length(), b[SpanSize:])
}

// Valid checks that b, serialized as span followed by payload, hashes to
// addr.
func Valid(addr Address, b []byte) error {
	c, err := FromBytes(b)
	if err != nil {
		return err
	} else if c.Address != addr {
		return fmt.Errorf("%w: %v != %v", ErrInvalidAddress, c.Address, addr)
	}
	return nil
}
