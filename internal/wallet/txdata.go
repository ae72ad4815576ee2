package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mr-tron/base58"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/bcs"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
)

var ErrInsufficientGas = errors.New("no gas coin covers the budget")

type objectReader interface {
	GetObject(ctx context.Context, id entity.ObjectID) (*ledger.Object, error)
}

// dataEncoder resolves an intent against current ledger state and writes TransactionData V1.
type dataEncoder struct {
	objects  objectReader
	resolver ledger.Resolver
}

func (that *dataEncoder) Encode(ctx context.Context, tx *txbuilder.Transaction) ([]byte, error) {
	gasOwner := tx.Sender
	if tx.IsSponsored() {
		gasOwner = tx.GasOwner
	}

	inputs := make([]callArg, 0, len(tx.Call.Args))
	for _, arg := range tx.Call.Args {
		input, err := that.resolveArg(ctx, arg)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, input)
	}

	gas, err := that.selectGas(ctx, gasOwner, tx.GasBudget, tx.Objects())
	if err != nil {
		return nil, err
	}

	price, err := that.resolver.ReferenceGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference gas price: %w", err)
	}

	return encodeTransactionData(tx, inputs, gas, gasOwner, price)
}

type callArg struct {
	pure   []byte
	object *ledger.Object
}

func (that *dataEncoder) resolveArg(ctx context.Context, arg txbuilder.Arg) (callArg, error) {
	switch arg.Kind {
	case txbuilder.ArgObject:
		object, err := that.objects.GetObject(ctx, arg.Object)
		if err != nil {
			return callArg{}, fmt.Errorf("failed to resolve object %s: %w", arg.Object, err)
		}

		return callArg{object: object}, nil
	case txbuilder.ArgAddress:
		raw, err := arg.Address.Bytes()
		if err != nil {
			return callArg{}, fmt.Errorf("failed to encode address argument: %w", err)
		}

		return callArg{pure: raw[:]}, nil
	case txbuilder.ArgU8:
		return callArg{pure: []byte{arg.U8}}, nil
	default:
		return callArg{}, fmt.Errorf("unsupported argument kind %d", arg.Kind)
	}
}

// selectGas picks the first coin of owner that covers budget and is not already an input.
func (that *dataEncoder) selectGas(
	ctx context.Context,
	owner entity.Address,
	budget uint64,
	exclude []entity.ObjectID,
) (ledger.ObjectRef, error) {
	coins, err := that.resolver.GetCoins(ctx, owner)
	if err != nil {
		return ledger.ObjectRef{}, fmt.Errorf("failed to list gas coins: %w", err)
	}

	for _, coin := range coins {
		if coin.Balance >= budget && !slices.Contains(exclude, coin.Ref.ID) {
			return coin.Ref, nil
		}
	}

	return ledger.ObjectRef{}, fmt.Errorf("%w: owner %s budget %d", ErrInsufficientGas, owner, budget)
}

func encodeTransactionData(
	tx *txbuilder.Transaction,
	inputs []callArg,
	gas ledger.ObjectRef,
	gasOwner entity.Address,
	price uint64,
) ([]byte, error) {
	enc := bcs.NewEncoder()

	// TransactionData::V1, TransactionKind::ProgrammableTransaction
	enc.Variant(0).Variant(0)

	enc.Length(len(inputs))
	for _, input := range inputs {
		if err := encodeCallArg(enc, input); err != nil {
			return nil, err
		}
	}

	pkg, err := tx.Call.Package.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode package: %w", err)
	}

	// one Command::MoveCall without type arguments
	enc.Length(1).Variant(0).
		Fixed(pkg[:]).
		String(tx.Call.Module).
		String(tx.Call.Function).
		Length(0)

	enc.Length(len(inputs))
	for i := range inputs {
		enc.Variant(1).U16(uint16(i)) //nolint:gosec // a handful of inputs
	}

	sender, err := tx.Sender.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode sender: %w", err)
	}

	enc.Fixed(sender[:])

	owner, err := gasOwner.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode gas owner: %w", err)
	}

	enc.Length(1)
	if err = encodeObjectRef(enc, gas); err != nil {
		return nil, err
	}

	enc.Fixed(owner[:]).U64(price).U64(tx.GasBudget)

	// TransactionExpiration::None
	enc.Variant(0)

	return enc.Result(), nil
}

func encodeCallArg(enc *bcs.Encoder, input callArg) error {
	if input.object == nil {
		enc.Variant(0).Bytes(input.pure)
		return nil
	}

	enc.Variant(1)

	if input.object.Owner.IsShared() {
		id, err := input.object.Ref.ID.Bytes()
		if err != nil {
			return fmt.Errorf("failed to encode shared object: %w", err)
		}

		enc.Variant(1).Fixed(id[:]).U64(input.object.Owner.InitialSharedVersion).Bool(true)

		return nil
	}

	enc.Variant(0)

	return encodeObjectRef(enc, input.object.Ref)
}

func encodeObjectRef(enc *bcs.Encoder, ref ledger.ObjectRef) error {
	id, err := ref.ID.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode object id: %w", err)
	}

	digest, err := base58.Decode(ref.Digest)
	if err != nil {
		return fmt.Errorf("failed to decode digest of %s: %w", ref.ID, err)
	}

	enc.Fixed(id[:]).U64(ref.Version).Bytes(digest)

	return nil
}
