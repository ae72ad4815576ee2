package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/tictactoe"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
)

type refresher interface {
	Refresh(ctx context.Context) (entity.Snapshot, error)
}

// MoveResult describes a recorded move.
type MoveResult struct {
	Token       entity.ObjectID `json:"token"`
	Placement   int             `json:"placement"`
	Resumed     bool            `json:"resumed"`
	StageDigest string          `json:"stage_digest,omitempty"`
	ApplyDigest string          `json:"apply_digest"`
}

// MoveCoordinator records moves in two phases: the move token is staged to the
// joint address, then applied to the game by a joint transaction. A token that is
// already staged is applied without staging it again.
type MoveCoordinator struct {
	logger    *slog.Logger
	client    ledger.Client
	signer    signer
	builder   *txbuilder.Builder
	catalog   ledger.Catalog
	refresher refresher

	inFlight chan struct{}
}

func NewMoveCoordinator(
	logger *slog.Logger,
	client ledger.Client,
	signer signer,
	builder *txbuilder.Builder,
	catalog ledger.Catalog,
	refresher refresher,
) *MoveCoordinator {
	return &MoveCoordinator{
		logger:    logger,
		client:    client,
		signer:    signer,
		builder:   builder,
		catalog:   catalog,
		refresher: refresher,
		inFlight:  make(chan struct{}, 1),
	}
}

// SetRefresher replaces the engine refreshed after a successful move.
func (that *MoveCoordinator) SetRefresher(refresher refresher) {
	that.refresher = refresher
}

// PlaceMark records placement on the game described by match. game is the last
// known state and is only used for local checks.
func (that *MoveCoordinator) PlaceMark(
	ctx context.Context,
	match Match,
	game *entity.Game,
	placement int,
) (*MoveResult, error) {
	log := that.logger.With("method", "PlaceMark", "game", match.GameID.Short(), "placement", placement)

	if err := that.validate(match, game, placement); err != nil {
		return nil, err
	}

	select {
	case that.inFlight <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", apperror.ErrMoveInProgress, ctx.Err())
	}
	defer func() { <-that.inFlight }()

	result := &MoveResult{Placement: placement}

	token, found, err := that.findToken(ctx, that.signer.Address(), match.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up move token: %w", err)
	}

	if found {
		if !game.IsCellEmpty(placement) {
			return nil, fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, placement)
		}

		if result.StageDigest, err = that.stage(ctx, token.ID, placement); err != nil {
			log.Error("failed to stage move token", "token", token.ID.Short(), "error", err)
			return nil, err
		}

		log.Debug("move token staged", "token", token.ID.Short(), "digest", result.StageDigest)
	} else {
		token, found, err = that.findToken(ctx, match.JointAddress(), match.GameID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up staged move token: %w", err)
		}

		if !found {
			return nil, fmt.Errorf("%w: game %s", apperror.ErrTokenNotFound, match.GameID)
		}

		result.Resumed = true

		if token.IsStaged() && int(*token.Placement) != placement {
			log.Warn("resuming a move staged for another cell", "staged", *token.Placement)
			result.Placement = int(*token.Placement)
		}
	}

	result.Token = token.ID

	if result.ApplyDigest, err = that.apply(ctx, match, token.ID); err != nil {
		log.Error("failed to apply move", "token", token.ID.Short(), "error", err)
		return nil, err
	}

	log.Info("move applied", "digest", result.ApplyDigest, "resumed", result.Resumed)

	if that.refresher != nil {
		if _, err = that.refresher.Refresh(ctx); err != nil {
			log.Warn("failed to refresh game after move", "error", err)
		}
	}

	return result, nil
}

func (that *MoveCoordinator) validate(match Match, game *entity.Game, placement int) error {
	if _, _, err := tictactoe.PlacementToCoordinates(placement); err != nil {
		return err
	}

	if game == nil || game.ID != match.GameID {
		return fmt.Errorf("%w: no state for game %s", apperror.ErrState, match.GameID)
	}

	if err := game.ConfirmOngoingState(); err != nil {
		return err
	}

	if !tictactoe.IsYourTurn(game, that.signer.Address()) {
		return apperror.ErrNotYourTurn
	}

	return nil
}

func (that *MoveCoordinator) findToken(
	ctx context.Context,
	owner entity.Address,
	gameID entity.ObjectID,
) (entity.MoveToken, bool, error) {
	return findOwned(ctx, that.client, owner, that.catalog.MarkType(), func(content ledger.Content) (entity.MoveToken, bool) {
		mark, ok := content.(ledger.MarkContent)
		return mark.Token, ok && mark.Token.BelongsTo(gameID)
	})
}

func (that *MoveCoordinator) stage(ctx context.Context, token entity.ObjectID, placement int) (string, error) {
	tx, err := that.builder.StageMoveToken(that.signer.Address(), token, placement)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrStageFailed, err)
	}

	result, err := that.signer.SignAndExecuteTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrStageFailed, err)
	}

	return result.Digest, nil
}

func (that *MoveCoordinator) apply(ctx context.Context, match Match, token entity.ObjectID) (string, error) {
	tx := that.builder.ApplyMove(match.JointAddress(), that.signer.Address(), match.GameID, token)

	result, err := executeAsJoint(ctx, that.client, that.signer, match.Joint, tx)
	if err != nil {
		if errors.Is(err, apperror.ErrValidationRejected) {
			return "", fmt.Errorf("%w: %w", apperror.ErrApplyRejected, err)
		}

		return "", fmt.Errorf("failed to apply move: %w", err)
	}

	return result.Digest, nil
}
