package multisig

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/bcs"
)

const partialSignatureSize = 1 + ed25519.SignatureSize + PublicKeySize

var (
	ErrInvalidSignature = errors.New("invalid partial signature")
	ErrUnknownSigner    = errors.New("signer is not a member of the joint key")
	ErrBelowThreshold   = errors.New("collected signature weight is below threshold")
)

// PartialSignature is one participant's signature over transaction bytes.
type PartialSignature struct {
	Signature [ed25519.SignatureSize]byte
	PublicKey PublicKey
}

// EncodePartialSignature renders base64(flag || signature || public key).
func EncodePartialSignature(signature []byte, key PublicKey) string {
	raw := make([]byte, 0, partialSignatureSize)
	raw = append(raw, FlagEd25519)
	raw = append(raw, signature...)
	raw = append(raw, key.raw[:]...)

	return base64.StdEncoding.EncodeToString(raw)
}

func ParsePartialSignature(encoded string) (PartialSignature, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return PartialSignature{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if len(raw) != partialSignatureSize {
		return PartialSignature{}, fmt.Errorf("%w: unexpected length %d", ErrInvalidSignature, len(raw))
	}

	if raw[0] != FlagEd25519 {
		return PartialSignature{}, fmt.Errorf("%w: unsupported scheme flag 0x%02x", ErrInvalidSignature, raw[0])
	}

	key, err := PublicKeyFromBytes(raw[1+ed25519.SignatureSize:])
	if err != nil {
		return PartialSignature{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	var partial PartialSignature
	copy(partial.Signature[:], raw[1:1+ed25519.SignatureSize])
	partial.PublicKey = key

	return partial, nil
}

// CombinePartialSignatures merges partial signatures of the joint key members
// into base64(0x03 || BCS(MultiSig)). With threshold 1 a single signature suffices.
func CombinePartialSignatures(joint JointKey, partials ...string) (string, error) {
	var (
		collected [2]*PartialSignature
		bitmap    uint16
		weight    uint16
	)

	for _, encoded := range partials {
		partial, err := ParsePartialSignature(encoded)
		if err != nil {
			return "", err
		}

		index, ok := joint.IndexOf(partial.PublicKey)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownSigner, partial.PublicKey)
		}

		if collected[index] != nil {
			continue
		}

		collected[index] = &partial
		bitmap |= 1 << index
		weight += uint16(joint.weights[index])
	}

	if weight < joint.threshold {
		return "", fmt.Errorf("%w: %d < %d", ErrBelowThreshold, weight, joint.threshold)
	}

	enc := bcs.NewEncoder().U8(FlagMultiSig)

	enc.Length(countSigned(collected))
	for _, partial := range collected {
		if partial == nil {
			continue
		}

		enc.Variant(0).Fixed(partial.Signature[:])
	}

	enc.U16(bitmap)
	encodePublicKey(enc, joint)

	return base64.StdEncoding.EncodeToString(enc.Result()), nil
}

func countSigned(collected [2]*PartialSignature) int {
	n := 0
	for _, partial := range collected {
		if partial != nil {
			n++
		}
	}

	return n
}

// encodePublicKey writes MultiSigPublicKey{pk_map: [(PublicKey::Ed25519, weight)], threshold}.
func encodePublicKey(enc *bcs.Encoder, joint JointKey) {
	enc.Length(len(joint.members))

	for i, member := range joint.members {
		enc.Variant(0).Fixed(member.raw[:]).U8(joint.weights[i])
	}

	enc.U16(joint.Threshold())
}
