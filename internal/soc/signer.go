package soc

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/frand"
)

// ErrMissingKey is returned when signing with a KeySigner that holds no
// private key.
var ErrMissingKey = errors.New("signer has no private key")

type (
	// A Signer signs SOC digests on behalf of an owner. Implementations must
	// be safe for concurrent use.
	Signer interface {
		Owner() Owner
		Sign(data []byte) (Signature, error)
	}

	// A KeySigner signs with an in-memory secp256k1 private key. The key is
	// never mutated after creation.
	KeySigner struct {
		priv  *ecdsa.PrivateKey
		owner Owner
	}
)

// digest returns the hash that is actually signed for data: the keccak256
// of data wrapped in the Ethereum signed message prefix.
func digest(data []byte) []byte {
	return accounts.TextHash(crypto.Keccak256(data))
}

// OwnerFromPublicKey derives the owner address of a public key.
func OwnerFromPublicKey(pub ecdsa.PublicKey) Owner {
	return Owner(crypto.PubkeyToAddress(pub))
}

// Owner returns the address derived from the signer's public key.
func (ks *KeySigner) Owner() Owner {
	return ks.owner
}

// Sign signs the Ethereum prefixed keccak256 digest of data.
func (ks *KeySigner) Sign(data []byte) (sig Signature, err error) {
	if ks == nil || ks.priv == nil {
		return Signature{}, ErrMissingKey
	}
	buf, err := crypto.Sign(digest(data), ks.priv)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign digest: %w", err)
	}
	copy(sig[:], buf)
	sig[64] += 27
	return sig, nil
}

// PrivateKeyHex returns the hex encoded private key.
func (ks *KeySigner) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(ks.priv))
}

// NewKeySigner wraps an existing private key.
func NewKeySigner(priv *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		priv:  priv,
		owner: OwnerFromPublicKey(priv.PublicKey),
	}
}

// KeySignerFromHex parses a hex encoded secp256k1 private key.
func KeySignerFromHex(s string) (*KeySigner, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewKeySigner(priv), nil
}

// GenerateKeySigner returns a signer with a fresh random key.
func GenerateKeySigner() *KeySigner {
	for {
		// ToECDSA rejects the negligible set of scalars outside the curve
		// order; draw again in that case.
		priv, err := crypto.ToECDSA(frand.Bytes(32))
		if err == nil {
			return NewKeySigner(priv)
		}
	}
}

// RecoverOwner returns the owner whose key produced sig over data.
func RecoverOwner(data []byte, sig Signature) (Owner, error) {
	if v := sig[64]; v != 27 && v != 28 {
		return Owner{}, fmt.Errorf("invalid signature recovery id %d", v)
	}
	raw := sig
	raw[64] -= 27
	pub, err := crypto.SigToPub(digest(data), raw[:])
	if err != nil {
		return Owner{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return OwnerFromPublicKey(*pub), nil
}
