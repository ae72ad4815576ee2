// Package txbuilder constructs the move-call intents of the game module.
// Intents are ledger-agnostic values; a signer turns them into transaction bytes.
package txbuilder

import (
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/tictactoe"
)

// Move-call targets in the game module.
const (
	FunctionCreateGame     = "create_game"
	FunctionStageMoveToken = "send_mark_to_game"
	FunctionApplyMove      = "place_mark"
	FunctionDeleteGame     = "delete_game"
)

const DefaultGasBudget uint64 = 10_000_000

type ArgKind int

const (
	ArgObject ArgKind = iota
	ArgAddress
	ArgU8
)

// Arg is a single move-call argument.
type Arg struct {
	Kind    ArgKind
	Object  entity.ObjectID
	Address entity.Address
	U8      uint8
}

func Object(id entity.ObjectID) Arg { return Arg{Kind: ArgObject, Object: id} }

func Address(address entity.Address) Arg { return Arg{Kind: ArgAddress, Address: address} }

func U8(v uint8) Arg { return Arg{Kind: ArgU8, U8: v} }

type MoveCall struct {
	Package  entity.ObjectID
	Module   string
	Function string
	Args     []Arg
}

// Transaction is an intent: who executes it, who pays for it and what it calls.
type Transaction struct {
	Sender    entity.Address
	GasOwner  entity.Address
	GasBudget uint64
	Call      MoveCall
}

// IsSponsored reports a transaction whose gas is paid by someone other than the sender.
func (that *Transaction) IsSponsored() bool {
	return that.GasOwner != "" && that.GasOwner != that.Sender
}

// Objects lists the object ids the transaction takes as inputs.
func (that *Transaction) Objects() []entity.ObjectID {
	var ids []entity.ObjectID

	for _, arg := range that.Call.Args {
		if arg.Kind == ArgObject {
			ids = append(ids, arg.Object)
		}
	}

	return ids
}

type Builder struct {
	pkg       entity.ObjectID
	module    string
	gasBudget uint64
}

func New(pkg entity.ObjectID, module string, gasBudget uint64) *Builder {
	if gasBudget == 0 {
		gasBudget = DefaultGasBudget
	}

	return &Builder{
		pkg:       pkg,
		module:    module,
		gasBudget: gasBudget,
	}
}

// CreateGame creates a game between xAddr and oAddr, executed as the joint sender.
func (that *Builder) CreateGame(sender, gasOwner, xAddr, oAddr entity.Address) *Transaction {
	return that.transaction(sender, gasOwner, FunctionCreateGame, Address(xAddr), Address(oAddr))
}

// StageMoveToken transfers token to the game's joint address, targeting placement.
func (that *Builder) StageMoveToken(sender entity.Address, token entity.ObjectID, placement int) (*Transaction, error) {
	row, col, err := tictactoe.PlacementToCoordinates(placement)
	if err != nil {
		return nil, fmt.Errorf("failed to stage move token: %w", err)
	}

	return that.transaction(sender, sender, FunctionStageMoveToken, Object(token), U8(row), U8(col)), nil
}

// ApplyMove consumes token against game. sender is the joint address, gasOwner the acting participant.
func (that *Builder) ApplyMove(sender, gasOwner entity.Address, game, token entity.ObjectID) *Transaction {
	return that.transaction(sender, gasOwner, FunctionApplyMove, Object(game), Object(token))
}

// DeleteGame removes a finished game. Ongoing games are refused locally.
func (that *Builder) DeleteGame(sender, gasOwner entity.Address, game *entity.Game) (*Transaction, error) {
	if game == nil || game.IsOngoing() {
		return nil, fmt.Errorf("%w: cannot delete a game in progress", apperror.ErrState)
	}

	return that.transaction(sender, gasOwner, FunctionDeleteGame, Object(game.ID)), nil
}

func (that *Builder) transaction(sender, gasOwner entity.Address, function string, args ...Arg) *Transaction {
	return &Transaction{
		Sender:    sender,
		GasOwner:  gasOwner,
		GasBudget: that.gasBudget,
		Call: MoveCall{
			Package:  that.pkg,
			Module:   that.module,
			Function: function,
			Args:     args,
		},
	}
}
