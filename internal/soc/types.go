package soc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// IDSize is the size of a SOC identifier.
	IDSize = 32
	// OwnerSize is the size of an owner address.
	OwnerSize = 20
	// SignatureSize is the size of a recoverable secp256k1 signature.
	SignatureSize = 65
)

// Envelope formats.
const (
	// FormatHeaderBased serializes only span and payload; the identifier and
	// signature travel in the request URL.
	FormatHeaderBased Format = iota
	// FormatSelfContained serializes identifier, signature, span and payload.
	FormatSelfContained
)

type (
	// An ID identifies a SOC within its owner's namespace.
	ID [IDSize]byte

	// An Owner is the address of the key that signs a SOC.
	Owner [OwnerSize]byte

	// A Signature is a 65 byte r||s||v secp256k1 signature with v in {27, 28}.
	Signature [SignatureSize]byte

	// A Format selects how an Envelope is serialized.
	Format uint8
)

func decodeHex(dst []byte, b []byte, name string) error {
	b = bytes.TrimPrefix(b, []byte("0x"))
	if n, err := hex.Decode(dst, b); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	} else if n != len(dst) {
		return fmt.Errorf("invalid %s length: %d", name, n)
	}
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error { return decodeHex(id[:], b, "identifier") }

// String implements fmt.Stringer.
func (o Owner) String() string { return hex.EncodeToString(o[:]) }

// MarshalText implements encoding.TextMarshaler.
func (o Owner) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Owner) UnmarshalText(b []byte) error { return decodeHex(o[:], b, "owner") }

// String implements fmt.Stringer.
func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(b []byte) error { return decodeHex(s[:], b, "signature") }

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatHeaderBased:
		return "header-based"
	case FormatSelfContained:
		return "self-contained"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	switch f {
	case FormatHeaderBased, FormatSelfContained:
		return []byte(f.String()), nil
	}
	return nil, fmt.Errorf("unknown envelope format %d", uint8(f))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "header-based", "header":
		*f = FormatHeaderBased
	case "self-contained", "inline":
		*f = FormatSelfContained
	default:
		return fmt.Errorf("unknown envelope format %q", string(b))
	}
	return nil
}
