// Package soc constructs and verifies single-owner chunks. A SOC wraps a
// content-addressed chunk in an envelope signed by its owner and is
// addressed by (owner, identifier) rather than by content.
package soc

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.sia.tech/socbench/internal/cac"
)

// HeaderSize is the size of the identifier and signature prefix of a
// self-contained envelope.
const HeaderSize = IDSize + SignatureSize

var (
	// ErrSigning is returned when the owner's key fails to sign a chunk.
	ErrSigning = errors.New("failed to sign chunk")
	// ErrIntegrityMismatch is returned when a chunk address or signature
	// does not match the data it claims to cover.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrMalformed is returned when serialized envelope data is too short.
	ErrMalformed = errors.New("malformed envelope")
)

// An Envelope is a signed single-owner chunk ready for upload.
type Envelope struct {
	Owner     Owner
	ID        ID
	Signature Signature
	Chunk     cac.Chunk
	Format    Format

	// Body is the serialized request body for Format.
	Body []byte
	// ConstructionTime is informational and excluded from verification.
	ConstructionTime time.Duration
}

func signedData(id ID, addr cac.Address) []byte {
	buf := make([]byte, 0, IDSize+cac.AddressSize)
	buf = append(buf, id[:]...)
	return append(buf, addr[:]...)
}

// Address returns the network address of the SOC, the keccak256 hash of
// identifier and owner.
func Address(id ID, owner Owner) (addr cac.Address) {
	copy(addr[:], crypto.Keccak256(id[:], owner[:]))
	return
}

// Address returns the network address of the envelope.
func (e *Envelope) Address() cac.Address {
	return Address(e.ID, e.Owner)
}

// encode serializes the envelope body for the given format.
func (e *Envelope) encode(format Format) ([]byte, error) {
	switch format {
	case FormatHeaderBased:
		return e.Chunk.Bytes(), nil
	case FormatSelfContained:
		buf := make([]byte, 0, HeaderSize+cac.SpanSize+len(e.Chunk.Data))
		buf = append(buf, e.ID[:]...)
		buf = append(buf, e.Signature[:]...)
		return append(buf, e.Chunk.Bytes()...), nil
	default:
		return nil, fmt.Errorf("unknown envelope format %v", format)
	}
}

// Construct builds a content-addressed chunk from payload, signs
// id||address with signer and serializes the result in format.
func Construct(signer Signer, id ID, payload []byte, format Format) (*Envelope, error) {
	start := time.Now()

	chunk, err := cac.New(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunk: %w", err)
	}

	sig, err := signer.Sign(signedData(id, chunk.Address))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	e := &Envelope{
		Owner:     signer.Owner(),
		ID:        id,
		Signature: sig,
		Chunk:     chunk,
		Format:    format,
	}
	if e.Body, err = e.encode(format); err != nil {
		return nil, err
	}
	e.ConstructionTime = time.Since(start)
	return e, nil
}

// Verify recomputes the chunk address from span and data and checks that
// the signature over id||address recovers the envelope's owner.
func Verify(e *Envelope) error {
	chunk, err := cac.NewWithSpan(e.Chunk.Span.Length(), e.Chunk.Data)
	if err != nil {
		return fmt.Errorf("failed to rebuild chunk: %w", err)
	} else if chunk.Address != e.Chunk.Address {
		return fmt.Errorf("%w: chunk address %v != %v", ErrIntegrityMismatch, chunk.Address, e.Chunk.Address)
	}

	owner, err := RecoverOwner(signedData(e.ID, chunk.Address), e.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrityMismatch, err)
	} else if owner != e.Owner {
		return fmt.Errorf("%w: signed by %v, expected %v", ErrIntegrityMismatch, owner, e.Owner)
	}
	return nil
}

// Unmarshal parses a self-contained envelope owned by owner and verifies
// it.
func Unmarshal(owner Owner, data []byte) (*Envelope, error) {
	if len(data) < HeaderSize+cac.SpanSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}

	e := &Envelope{
		Owner:  owner,
		Format: FormatSelfContained,
		Body:   append([]byte(nil), data...),
	}
	copy(e.ID[:], data[:IDSize])
	copy(e.Signature[:], data[IDSize:HeaderSize])

	chunk, err := cac.FromBytes(data[HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunk: %w", err)
	}
	e.Chunk = chunk
	if err := Verify(e); err != nil {
		return nil, err
	}
	return e, nil
}

// FromHeaderBased reassembles an envelope whose identifier and signature
// were carried outside the body and verifies it.
func FromHeaderBased(owner Owner, id ID, sig Signature, body []byte) (*Envelope, error) {
	chunk, err := cac.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	e := &Envelope{
		Owner:     owner,
		ID:        id,
		Signature: sig,
		Chunk:     chunk,
		Format:    FormatHeaderBased,
		Body:      append([]byte(nil), body...),
	}
	if err := Verify(e); err != nil {
		return nil, err
	}
	return e, nil
}
