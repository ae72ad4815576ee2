// Package multisig derives joint 1-of-2 addresses from Ed25519 keys and
// combines partial signatures into a ledger-acceptable multisig authorization.
package multisig

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"go.dedis.ch/kyber/v4/suites"
	"golang.org/x/crypto/blake2b"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

// Signature scheme flags.
const (
	FlagEd25519  byte = 0x00
	FlagMultiSig byte = 0x03
)

const PublicKeySize = ed25519.PublicKeySize

var suite = suites.MustFind("Ed25519")

// PublicKey is an Ed25519 public key known to decode to a curve point.
type PublicKey struct {
	raw [PublicKeySize]byte
}

// ParsePublicKey accepts base64 of either flag||key (33 bytes) or the bare key (32 bytes).
func ParsePublicKey(encoded string) (PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: not base64: %w", apperror.ErrInvalidKey, err)
	}

	switch len(raw) {
	case PublicKeySize + 1:
		if raw[0] != FlagEd25519 {
			return PublicKey{}, fmt.Errorf("%w: unsupported scheme flag 0x%02x", apperror.ErrInvalidKey, raw[0])
		}

		return PublicKeyFromBytes(raw[1:])
	case PublicKeySize:
		return PublicKeyFromBytes(raw)
	default:
		return PublicKey{}, fmt.Errorf("%w: unexpected length %d", apperror.ErrInvalidKey, len(raw))
	}
}

func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if len(raw) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: unexpected length %d", apperror.ErrInvalidKey, len(raw))
	}

	if err := suite.Point().UnmarshalBinary(raw); err != nil {
		return PublicKey{}, fmt.Errorf("%w: not a curve point: %w", apperror.ErrInvalidKey, err)
	}

	var key PublicKey
	copy(key.raw[:], raw)

	return key, nil
}

func (that PublicKey) Bytes() []byte {
	return bytes.Clone(that.raw[:])
}

func (that PublicKey) Ed25519() ed25519.PublicKey {
	return ed25519.PublicKey(that.Bytes())
}

func (that PublicKey) IsZero() bool {
	return that == PublicKey{}
}

// String renders the flag-prefixed base64 form used by wallets.
func (that PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(append([]byte{FlagEd25519}, that.raw[:]...))
}

// Address is the single-signer account address of the key.
func (that PublicKey) Address() entity.Address {
	return entity.AddressFromBytes(blake2b.Sum256(append([]byte{FlagEd25519}, that.raw[:]...)))
}
