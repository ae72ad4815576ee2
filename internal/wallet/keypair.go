package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
)

// intentPrefix marks a transaction-data intent (scope 0, version 0, app 0).
var intentPrefix = []byte{0, 0, 0}

type KeyPair struct {
	private ed25519.PrivateKey
	public  multisig.PublicKey
}

// ParsePrivateKey reads the keystore form base64(0x00 || seed). A bare seed or an
// expanded 64-byte key is also accepted.
func ParsePrivateKey(encoded string) (KeyPair, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: private key is not base64", apperror.ErrInvalidKey)
	}

	switch len(raw) {
	case ed25519.SeedSize + 1:
		if raw[0] != multisig.FlagEd25519 {
			return KeyPair{}, fmt.Errorf("%w: unsupported scheme flag 0x%02x", apperror.ErrInvalidKey, raw[0])
		}

		return NewKeyPair(raw[1:])
	case ed25519.SeedSize:
		return NewKeyPair(raw)
	case ed25519.PrivateKeySize:
		return NewKeyPair(raw[:ed25519.SeedSize])
	default:
		return KeyPair{}, fmt.Errorf("%w: private key has %d bytes", apperror.ErrInvalidKey, len(raw))
	}
}

func NewKeyPair(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("%w: seed has %d bytes", apperror.ErrInvalidKey, len(seed))
	}

	private := ed25519.NewKeyFromSeed(seed)

	public, err := multisig.PublicKeyFromBytes(private.Public().(ed25519.PublicKey))
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{private: private, public: public}, nil
}

func (that KeyPair) PublicKey() multisig.PublicKey {
	return that.public
}

func (that KeyPair) Address() entity.Address {
	return that.public.Address()
}

// Sign signs txBytes under the transaction intent and returns the serialized partial signature.
func (that KeyPair) Sign(txBytes []byte) string {
	digest := IntentDigest(txBytes)

	return multisig.EncodePartialSignature(ed25519.Sign(that.private, digest[:]), that.public)
}

// IntentDigest is blake2b-256 of the intent prefix followed by txBytes.
func IntentDigest(txBytes []byte) [32]byte {
	message := make([]byte, 0, len(intentPrefix)+len(txBytes))
	message = append(message, intentPrefix...)
	message = append(message, txBytes...)

	return blake2b.Sum256(message)
}
