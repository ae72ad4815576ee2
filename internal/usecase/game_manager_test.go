package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/wallet"
)

type managerFixture struct {
	local, opponent wallet.KeyPair
	client          *mockLedger
	signer          *mockSigner
	sut             *GameManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	local, opponent := players(t)
	client := &mockLedger{}
	signer := &mockSigner{key: local}

	t.Cleanup(func() {
		client.AssertExpectations(t)
		signer.AssertExpectations(t)
	})

	return &managerFixture{
		local:    local,
		opponent: opponent,
		client:   client,
		signer:   signer,
		sut:      NewGameManager(discardLogger(), client, signer, txbuilder.New(testPackage, testModule, 0), catalog),
	}
}

func (that *managerFixture) gamesAt(owner entity.Address, games ...entity.Game) {
	objects := make([]ledger.Object, 0, len(games))
	for _, game := range games {
		objects = append(objects, *gameObject(game))
	}

	that.client.On("GetOwnedObjects", mock.Anything, owner, catalog.GameType()).Return(objects, nil).Once()
}

func TestGameManager_CreateGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Creator plays X under the (creator, opponent) joint key", func(t *testing.T) {
		// Given: a ledger that creates the game
		f := newManagerFixture(t)
		joint := multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey())

		var created *txbuilder.Transaction
		f.signer.On("SignTransaction", mock.Anything, functionIs(txbuilder.FunctionCreateGame)).
			Run(func(args mock.Arguments) { created = args.Get(1).(*txbuilder.Transaction) }).
			Return(nil).
			Once()
		f.client.On("ExecuteTransaction", mock.Anything, mock.Anything, mock.Anything).Return(&ledger.ExecutionResult{
			Digest: "C1",
			Status: ledger.StatusSuccess,
			ObjectChanges: []ledger.ObjectChange{
				{Type: "created", ObjectID: gameID, ObjectType: catalog.GameType()},
			},
		}, nil).Once()

		// When: creating
		match, err := f.sut.CreateGame(ctx, f.opponent.PublicKey())

		// Then: the match points at the new game and the call is sponsored by the creator
		require.NoError(t, err)
		assert.Equal(t, gameID, match.GameID)
		assert.Equal(t, entity.MarkerX, match.PlayingAs)
		assert.Equal(t, joint.Address(), match.JointAddress())

		require.NotNil(t, created)
		assert.Equal(t, joint.Address(), created.Sender)
		assert.Equal(t, f.local.Address(), created.GasOwner)
		assert.Equal(t, []txbuilder.Arg{
			txbuilder.Address(f.local.Address()),
			txbuilder.Address(f.opponent.Address()),
		}, created.Call.Args)
	})

	t.Run("No created game in the changes is ErrGameNotFound", func(t *testing.T) {
		// Given: a success without object changes
		f := newManagerFixture(t)
		f.signer.On("SignTransaction", mock.Anything, mock.Anything).Return(nil).Once()
		f.client.On("ExecuteTransaction", mock.Anything, mock.Anything, mock.Anything).Return(success("C2"), nil).Once()

		// When: creating
		_, err := f.sut.CreateGame(ctx, f.opponent.PublicKey())

		// Then: the game is not found
		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Playing against yourself is an invalid key", func(t *testing.T) {
		f := newManagerFixture(t)

		_, err := f.sut.CreateGame(ctx, f.local.PublicKey())

		assert.ErrorIs(t, err, apperror.ErrInvalidKey)
	})
}

func TestGameManager_FindGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Prefers the ordering where the local player is O", func(t *testing.T) {
		// Given: ongoing games under both orderings
		f := newManagerFixture(t)
		asO := multisig.NewJointKey(f.opponent.PublicKey(), f.local.PublicKey())
		asX := multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey())

		f.gamesAt(asO.Address(), entity.Game{ID: gameID, XAddr: f.opponent.Address(), OAddr: f.local.Address()})
		f.gamesAt(asX.Address(), entity.Game{ID: otherGameID, XAddr: f.local.Address(), OAddr: f.opponent.Address()})

		// When: searching
		match, game, err := f.sut.FindGame(ctx, f.opponent.PublicKey())

		// Then: the O game is joined
		require.NoError(t, err)
		assert.Equal(t, gameID, match.GameID)
		assert.Equal(t, gameID, game.ID)
		assert.Equal(t, entity.MarkerO, match.PlayingAs)
		assert.Equal(t, asO.Address(), match.JointAddress())
	})

	t.Run("Falls back to the ordering where the local player is X", func(t *testing.T) {
		// Given: only a finished game as O and an ongoing one as X
		f := newManagerFixture(t)
		asO := multisig.NewJointKey(f.opponent.PublicKey(), f.local.PublicKey())
		asX := multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey())

		f.gamesAt(asO.Address(), entity.Game{ID: gameID, Finished: entity.OutcomeDraw})
		f.gamesAt(asX.Address(), entity.Game{ID: otherGameID, XAddr: f.local.Address(), OAddr: f.opponent.Address()})

		// When: searching
		match, _, err := f.sut.FindGame(ctx, f.opponent.PublicKey())

		// Then: the X game is joined
		require.NoError(t, err)
		assert.Equal(t, otherGameID, match.GameID)
		assert.Equal(t, entity.MarkerX, match.PlayingAs)
	})

	t.Run("No ongoing game is ErrGameNotFound", func(t *testing.T) {
		// Given: nothing under either ordering
		f := newManagerFixture(t)
		for _, joint := range multisig.Orderings(f.local.PublicKey(), f.opponent.PublicKey()) {
			f.gamesAt(joint.Address())
		}

		// When: searching
		_, _, err := f.sut.FindGame(ctx, f.opponent.PublicKey())

		// Then: not found
		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("A failed lookup fails the search", func(t *testing.T) {
		// Given: a ledger failing every lookup
		f := newManagerFixture(t)
		f.client.On("GetOwnedObjects", mock.Anything, mock.Anything, catalog.GameType()).
			Return(nil, fmt.Errorf("%w: refused", apperror.ErrNetwork)).
			Maybe()

		// When: searching
		_, _, err := f.sut.FindGame(ctx, f.opponent.PublicKey())

		// Then: the network error surfaces
		assert.ErrorIs(t, err, apperror.ErrNetwork)
	})
}

func TestGameManager_MatchFor(t *testing.T) {
	t.Run("The X address decides the ordering", func(t *testing.T) {
		// Given: one game where the local player is X and one where they are O
		f := newManagerFixture(t)
		asX := &entity.Game{ID: gameID, XAddr: f.local.Address(), OAddr: f.opponent.Address()}
		asO := &entity.Game{ID: gameID, XAddr: f.opponent.Address(), OAddr: f.local.Address()}

		// When: resolving both
		matchX, err := f.sut.MatchFor(asX, f.opponent.PublicKey())
		require.NoError(t, err)

		matchO, err := f.sut.MatchFor(asO, f.opponent.PublicKey())
		require.NoError(t, err)

		// Then: each gets the key ordering that owns it
		assert.Equal(t, entity.MarkerX, matchX.PlayingAs)
		assert.Equal(t, multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey()).Address(), matchX.JointAddress())
		assert.Equal(t, entity.MarkerO, matchO.PlayingAs)
		assert.Equal(t, multisig.NewJointKey(f.opponent.PublicKey(), f.local.PublicKey()).Address(), matchO.JointAddress())
	})

	t.Run("Strangers' games are refused", func(t *testing.T) {
		f := newManagerFixture(t)
		stranger := keyPair(t, "stranger")

		_, err := f.sut.MatchFor(&entity.Game{ID: gameID, XAddr: stranger.Address(), OAddr: f.opponent.Address()}, f.opponent.PublicKey())

		assert.ErrorIs(t, err, apperror.ErrState)
	})
}

func TestGameManager_LoadGame(t *testing.T) {
	t.Run("Missing game is ErrGameNotFound", func(t *testing.T) {
		f := newManagerFixture(t)
		f.client.On("GetObject", mock.Anything, gameID).Return(nil, apperror.ErrNotFound).Once()

		_, err := f.sut.LoadGame(context.Background(), gameID)

		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Returns the decoded game", func(t *testing.T) {
		f := newManagerFixture(t)
		f.client.On("GetObject", mock.Anything, gameID).Return(gameObject(entity.Game{ID: gameID, CurTurn: 3}), nil).Once()

		game, err := f.sut.LoadGame(context.Background(), gameID)

		require.NoError(t, err)
		assert.Equal(t, uint64(3), game.CurTurn)
	})
}

func TestGameManager_DeleteGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Ongoing games are refused without network", func(t *testing.T) {
		// Given: a game in progress
		f := newManagerFixture(t)
		match := Match{GameID: gameID, Joint: multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey())}

		// When: deleting
		_, err := f.sut.DeleteGame(ctx, match, &entity.Game{ID: gameID})

		// Then: it is a state error
		assert.ErrorIs(t, err, apperror.ErrState)
	})

	t.Run("Finished games are deleted by the joint sender", func(t *testing.T) {
		// Given: a won game
		f := newManagerFixture(t)
		match := Match{GameID: gameID, Joint: multisig.NewJointKey(f.local.PublicKey(), f.opponent.PublicKey())}

		var deleted *txbuilder.Transaction
		f.signer.On("SignTransaction", mock.Anything, functionIs(txbuilder.FunctionDeleteGame)).
			Run(func(args mock.Arguments) { deleted = args.Get(1).(*txbuilder.Transaction) }).
			Return(nil).
			Once()
		f.client.On("ExecuteTransaction", mock.Anything, mock.Anything, mock.Anything).Return(success("X1"), nil).Once()

		// When: deleting
		result, err := f.sut.DeleteGame(ctx, match, &entity.Game{ID: gameID, Finished: entity.OutcomeXWins})

		// Then: the deletion is sponsored by the local player
		require.NoError(t, err)
		assert.Equal(t, "X1", result.Digest)
		assert.Equal(t, match.JointAddress(), deleted.Sender)
		assert.Equal(t, f.local.Address(), deleted.GasOwner)
	})
}
