package usecase

import (
	"context"
	"errors"
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

type moveFixture struct {
	x, o      wallet.KeyPair
	match     Match
	game      *entity.Game
	client    *mockLedger
	signer    *mockSigner
	refresher *mockRefresher
	sut       *MoveCoordinator
}

// newMoveFixture acts as X on an empty board, X to move.
func newMoveFixture(t *testing.T) *moveFixture {
	t.Helper()

	x, o := players(t)
	fixture := &moveFixture{
		x:         x,
		o:         o,
		match:     Match{GameID: gameID, Joint: multisig.NewJointKey(x.PublicKey(), o.PublicKey()), PlayingAs: entity.MarkerX},
		game:      &entity.Game{ID: gameID, XAddr: x.Address(), OAddr: o.Address()},
		client:    &mockLedger{},
		signer:    &mockSigner{key: x},
		refresher: &mockRefresher{},
	}

	fixture.sut = NewMoveCoordinator(
		discardLogger(),
		fixture.client,
		fixture.signer,
		txbuilder.New(testPackage, testModule, 0),
		catalog,
		fixture.refresher,
	)

	t.Cleanup(func() {
		fixture.client.AssertExpectations(t)
		fixture.signer.AssertExpectations(t)
		fixture.refresher.AssertExpectations(t)
	})

	return fixture
}

func (that *moveFixture) tokensAt(owner entity.Address, tokens ...entity.MoveToken) {
	objects := make([]ledger.Object, 0, len(tokens))
	for _, token := range tokens {
		token.Owner = owner
		objects = append(objects, markObject(token))
	}

	that.client.On("GetOwnedObjects", mock.Anything, owner, catalog.MarkType()).Return(objects, nil).Once()
}

func (that *moveFixture) expectApply(result *ledger.ExecutionResult, err error) *[]string {
	var signatures []string

	that.signer.On("SignTransaction", mock.Anything, functionIs(txbuilder.FunctionApplyMove)).Return(nil).Once()
	that.client.On("ExecuteTransaction", mock.Anything, []byte(txbuilder.FunctionApplyMove), mock.Anything).
		Run(func(args mock.Arguments) { signatures = args.Get(2).([]string) }).
		Return(result, err).
		Once()

	return &signatures
}

func placement(n uint8) *uint8 {
	return &n
}

func TestMoveCoordinator_PlaceMark(t *testing.T) {
	ctx := context.Background()

	t.Run("Stages a fresh token and applies it as the joint sender", func(t *testing.T) {
		// Given: a token minted to X for this game
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address(), entity.MoveToken{ID: tokenID, GameID: gameID, DuringTurn: true})

		var staged *txbuilder.Transaction
		f.signer.On("SignAndExecuteTransaction", mock.Anything, functionIs(txbuilder.FunctionStageMoveToken)).
			Run(func(args mock.Arguments) { staged = args.Get(1).(*txbuilder.Transaction) }).
			Return(success("S1"), nil).
			Once()

		signatures := f.expectApply(success("A1"), nil)
		f.refresher.On("Refresh", mock.Anything).Return(entity.Snapshot{}, nil).Once()

		// When: placing at the center
		result, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: the token is staged at (1, 1) and applied with [joint, partial] signatures
		require.NoError(t, err)
		assert.Equal(t, &MoveResult{Token: tokenID, Placement: 4, StageDigest: "S1", ApplyDigest: "A1"}, result)

		require.NotNil(t, staged)
		assert.Equal(t, []txbuilder.Arg{txbuilder.Object(tokenID), txbuilder.U8(1), txbuilder.U8(1)}, staged.Call.Args)
		assert.Equal(t, f.x.Address(), staged.Sender)

		partial := f.x.Sign([]byte(txbuilder.FunctionApplyMove))
		combined, err := multisig.CombinePartialSignatures(f.match.Joint, partial)
		require.NoError(t, err)
		assert.Equal(t, []string{combined, partial}, *signatures)
	})

	t.Run("Resumes a token already staged to the joint address", func(t *testing.T) {
		// Given: nothing at X, a staged token for this game at the joint address
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address())
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: gameID, Placement: placement(4)})

		f.expectApply(success("A2"), nil)
		f.refresher.On("Refresh", mock.Anything).Return(entity.Snapshot{}, nil).Once()

		// When: placing again
		result, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: it goes straight to apply without staging
		require.NoError(t, err)
		assert.True(t, result.Resumed)
		assert.Equal(t, "A2", result.ApplyDigest)
		assert.Empty(t, result.StageDigest)
		f.signer.AssertNotCalled(t, "SignAndExecuteTransaction", mock.Anything, mock.Anything)
	})

	t.Run("Resume reports the cell the token was staged for", func(t *testing.T) {
		// Given: a token staged for cell 2
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address())
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: gameID, Placement: placement(2)})

		f.expectApply(success("A3"), nil)
		f.refresher.On("Refresh", mock.Anything).Return(entity.Snapshot{}, nil).Once()

		// When: the caller asks for cell 4
		result, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: the staged cell is what gets applied
		require.NoError(t, err)
		assert.Equal(t, 2, result.Placement)
	})

	t.Run("Tokens of other games are ignored", func(t *testing.T) {
		// Given: tokens for another game at both addresses
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address(), entity.MoveToken{ID: tokenID, GameID: otherGameID})
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: otherGameID, Placement: placement(0)})

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 0)

		// Then: no token is found
		require.ErrorIs(t, err, apperror.ErrTokenNotFound)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Stage failure stops before apply", func(t *testing.T) {
		// Given: a token at X and a failing stage transaction
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address(), entity.MoveToken{ID: tokenID, GameID: gameID})
		f.signer.On("SignAndExecuteTransaction", mock.Anything, functionIs(txbuilder.FunctionStageMoveToken)).
			Return(nil, fmt.Errorf("%w: connection reset", apperror.ErrNetwork)).
			Once()

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 3)

		// Then: the error is a stage failure keeping its cause, and nothing was applied
		require.ErrorIs(t, err, apperror.ErrStageFailed)
		assert.ErrorIs(t, err, apperror.ErrNetwork)
		assert.Equal(t, apperror.KindStageFailed, apperror.KindOf(err))
		f.client.AssertNotCalled(t, "ExecuteTransaction", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Ledger rejection of apply is ErrApplyRejected", func(t *testing.T) {
		// Given: a staged token and a ledger that aborts place_mark
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address())
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: gameID, Placement: placement(4)})
		f.expectApply(&ledger.ExecutionResult{Digest: "A4", Status: ledger.StatusFailure, Error: "MoveAbort(place_mark, 0)"}, nil)

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: the rejection is surfaced and no refresh happens
		require.ErrorIs(t, err, apperror.ErrApplyRejected)
		assert.ErrorIs(t, err, apperror.ErrValidationRejected)
		f.refresher.AssertNotCalled(t, "Refresh", mock.Anything)
	})

	t.Run("Network failure of apply is ErrNetwork", func(t *testing.T) {
		// Given: a staged token and an unreachable node
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address())
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: gameID, Placement: placement(4)})
		f.expectApply(nil, fmt.Errorf("%w: timeout", apperror.ErrNetwork))

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: it is a network error and not a rejection
		require.ErrorIs(t, err, apperror.ErrNetwork)
		assert.NotErrorIs(t, err, apperror.ErrValidationRejected)
	})

	t.Run("A failed refresh does not undo the move", func(t *testing.T) {
		// Given: a successful resume and a failing refresh
		f := newMoveFixture(t)
		f.tokensAt(f.x.Address())
		f.tokensAt(f.match.JointAddress(), entity.MoveToken{ID: tokenID, GameID: gameID, Placement: placement(4)})
		f.expectApply(success("A5"), nil)
		f.refresher.On("Refresh", mock.Anything).Return(entity.Snapshot{}, apperror.ErrNetwork).Once()

		// When: placing
		result, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: the move result stands
		require.NoError(t, err)
		assert.Equal(t, "A5", result.ApplyDigest)
	})

	t.Run("Occupied cell with a fresh token is refused before staging", func(t *testing.T) {
		// Given: cell 0 taken and a token at X
		f := newMoveFixture(t)
		f.game.Gameboard[0] = entity.CellO
		f.game.CurTurn = 2
		f.tokensAt(f.x.Address(), entity.MoveToken{ID: tokenID, GameID: gameID})

		// When: placing at 0
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 0)

		// Then: it is an invalid placement and nothing is written
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.ErrorIs(t, err, apperror.ErrInvalidPlacement)
		f.signer.AssertNotCalled(t, "SignAndExecuteTransaction", mock.Anything, mock.Anything)
	})
}

func TestMoveCoordinator_PlaceMark_LocalChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("Out of range placements never reach the ledger", func(t *testing.T) {
		for _, cell := range []int{-1, 9, 100} {
			// Given: a coordinator with no ledger expectations
			f := newMoveFixture(t)

			// When: placing outside the board
			_, err := f.sut.PlaceMark(ctx, f.match, f.game, cell)

			// Then: ErrOutOfRange is returned
			require.ErrorIs(t, err, apperror.ErrOutOfRange, cell)
			assert.ErrorIs(t, err, apperror.ErrInvalidPlacement, cell)
		}
	})

	t.Run("Not your turn", func(t *testing.T) {
		// Given: O to move while acting as X
		f := newMoveFixture(t)
		f.game.CurTurn = 1

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: the move is refused
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, apperror.KindState, apperror.KindOf(err))
	})

	t.Run("Finished games accept no moves", func(t *testing.T) {
		// Given: a drawn game
		f := newMoveFixture(t)
		f.game.Finished = entity.OutcomeDraw

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: it is finished
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("State of another game is refused", func(t *testing.T) {
		// Given: a game state that does not match the match
		f := newMoveFixture(t)
		f.game.ID = otherGameID

		// When: placing
		_, err := f.sut.PlaceMark(ctx, f.match, f.game, 4)

		// Then: it is a state error
		assert.ErrorIs(t, err, apperror.ErrState)
	})
}

func TestMoveCoordinator_Serialization(t *testing.T) {
	t.Run("A second attempt waits for the first and can give up", func(t *testing.T) {
		// Given: a first attempt blocked in its token lookup
		f := newMoveFixture(t)

		entered := make(chan struct{})
		release := make(chan struct{})
		errFirst := errors.New("lookup aborted")

		f.client.On("GetOwnedObjects", mock.Anything, f.x.Address(), catalog.MarkType()).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(nil, errFirst).
			Once()

		firstDone := make(chan error, 1)
		go func() {
			_, err := f.sut.PlaceMark(context.Background(), f.match, f.game, 4)
			firstDone <- err
		}()

		<-entered

		// When: a second attempt runs with a cancelled context
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.sut.PlaceMark(cancelled, f.match, f.game, 4)

		// Then: it gives up without touching the ledger, and the first finishes on its own
		require.ErrorIs(t, err, apperror.ErrMoveInProgress)
		assert.ErrorIs(t, err, context.Canceled)

		close(release)
		assert.ErrorIs(t, <-firstDone, errFirst)
	})
}
