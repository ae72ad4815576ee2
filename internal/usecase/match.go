package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/wallet"
)

type signer interface {
	Address() entity.Address
	PublicKey() multisig.PublicKey
	SignTransaction(ctx context.Context, tx *txbuilder.Transaction) (*wallet.SignedTransaction, error)
	SignAndExecuteTransaction(ctx context.Context, tx *txbuilder.Transaction) (*ledger.ExecutionResult, error)
}

// Match binds a game to the joint key that owns it and the side the local player takes.
type Match struct {
	GameID    entity.ObjectID   `json:"game_id"`
	Joint     multisig.JointKey `json:"-"`
	PlayingAs entity.Marker     `json:"playing_as"`
}

func (that Match) JointAddress() entity.Address {
	return that.Joint.Address()
}

// executeAsJoint signs tx locally, turns the partial signature into a joint one
// and submits both: the joint signature authorizes the sender, the partial one the gas.
func executeAsJoint(
	ctx context.Context,
	client ledger.Client,
	signer signer,
	joint multisig.JointKey,
	tx *txbuilder.Transaction,
) (*ledger.ExecutionResult, error) {
	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	combined, err := multisig.CombinePartialSignatures(joint, signed.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to combine signatures: %w", err)
	}

	result, err := client.ExecuteTransaction(ctx, signed.Bytes, []string{combined, signed.Signature})
	if err != nil {
		return nil, err
	}

	if err = result.Err(); err != nil {
		return result, err
	}

	return result, nil
}

// findOwned returns the first object of structType owned by owner that pick accepts.
func findOwned[T any](
	ctx context.Context,
	client ledger.Client,
	owner entity.Address,
	structType string,
	pick func(ledger.Content) (T, bool),
) (T, bool, error) {
	var zero T

	objects, err := client.GetOwnedObjects(ctx, owner, structType)
	if err != nil {
		return zero, false, err
	}

	for _, object := range objects {
		if value, ok := pick(object.Content); ok {
			return value, true, nil
		}
	}

	return zero, false, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
