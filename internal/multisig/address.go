package multisig

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

// A single partial signature authorizes the joint address.
const (
	Threshold uint16 = 1
	Weight    uint8  = 1
)

// JointKey is an ordered pair of participant keys: the X player first, the O player second.
type JointKey struct {
	members   [2]PublicKey
	weights   [2]uint8
	threshold uint16
}

func NewJointKey(first, second PublicKey) JointKey {
	return JointKey{
		members:   [2]PublicKey{first, second},
		weights:   [2]uint8{Weight, Weight},
		threshold: Threshold,
	}
}

// Derive is the joint address of two encoded public keys. Swapping them changes the result.
func Derive(first, second string) (entity.Address, error) {
	a, err := ParsePublicKey(first)
	if err != nil {
		return "", fmt.Errorf("failed to decode first key: %w", err)
	}

	b, err := ParsePublicKey(second)
	if err != nil {
		return "", fmt.Errorf("failed to decode second key: %w", err)
	}

	return NewJointKey(a, b).Address(), nil
}

// Orderings lists both role orderings a game between local and opponent may use:
// local playing O first, then local playing X.
func Orderings(local, opponent PublicKey) [2]JointKey {
	return [2]JointKey{
		NewJointKey(opponent, local),
		NewJointKey(local, opponent),
	}
}

func (that JointKey) Members() [2]PublicKey {
	return that.members
}

func (that JointKey) Threshold() uint16 {
	return that.threshold
}

func (that JointKey) IndexOf(key PublicKey) (int, bool) {
	for i, member := range that.members {
		if member == key {
			return i, true
		}
	}

	return 0, false
}

func (that JointKey) Contains(key PublicKey) bool {
	_, ok := that.IndexOf(key)
	return ok
}

// Address hashes flag || threshold || (flag || key || weight)* with blake2b-256.
func (that JointKey) Address() entity.Address {
	h, _ := blake2b.New256(nil) // only fails for oversized keys

	h.Write([]byte{FlagMultiSig})

	var threshold [2]byte
	binary.LittleEndian.PutUint16(threshold[:], that.Threshold())
	h.Write(threshold[:])

	for i, member := range that.members {
		h.Write([]byte{FlagEd25519})
		h.Write(member.raw[:])
		h.Write([]byte{that.weights[i]})
	}

	var digest [entity.AddressLength]byte
	copy(digest[:], h.Sum(nil))

	return entity.AddressFromBytes(digest)
}
