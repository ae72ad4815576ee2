package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
)

// GameSession is one local player's view of one match: the synced snapshot plus
// the operations that change it.
type GameSession struct {
	logger *slog.Logger
	match  Match
	sync   *GameSyncEngine
	moves  *MoveCoordinator
	games  *GameManager
}

func NewGameSession(
	logger *slog.Logger,
	match Match,
	sync *GameSyncEngine,
	moves *MoveCoordinator,
	games *GameManager,
) *GameSession {
	moves.SetRefresher(sync)

	return &GameSession{
		logger: logger,
		match:  match,
		sync:   sync,
		moves:  moves,
		games:  games,
	}
}

func (that *GameSession) Match() Match {
	return that.match
}

func (that *GameSession) Sync() *GameSyncEngine {
	return that.sync
}

func (that *GameSession) Snapshot() entity.Snapshot {
	return that.sync.Snapshot()
}

func (that *GameSession) Refresh(ctx context.Context) (entity.Snapshot, error) {
	return that.sync.Refresh(ctx)
}

// PlaceMark moves on the last synced state, fetching it first if nothing is cached yet.
func (that *GameSession) PlaceMark(ctx context.Context, placement int) (*MoveResult, error) {
	game, err := that.currentGame(ctx)
	if err != nil {
		return nil, err
	}

	return that.moves.PlaceMark(ctx, that.match, game, placement)
}

// DeleteGame removes the finished game and records its disappearance in the snapshot.
func (that *GameSession) DeleteGame(ctx context.Context) (*ledger.ExecutionResult, error) {
	game, err := that.currentGame(ctx)
	if err != nil {
		return nil, err
	}

	result, err := that.games.DeleteGame(ctx, that.match, game)
	if err != nil {
		return nil, err
	}

	if _, err = that.sync.Refresh(ctx); err != nil {
		that.logger.Warn("failed to refresh deleted game", "method", "DeleteGame", "game", that.match.GameID.Short(), "error", err)
	}

	return result, nil
}

// AwaitTrophy re-reads a won game whose trophy is still pending, up to attempts
// times spaced by interval. It returns the last snapshot, pending or not.
func (that *GameSession) AwaitTrophy(ctx context.Context, attempts int, interval time.Duration) (entity.Snapshot, error) {
	snapshot := that.sync.Snapshot()

	for attempt := 0; attempt < attempts && snapshot.TrophyPending; attempt++ {
		select {
		case <-ctx.Done():
			return snapshot, ctx.Err()
		case <-time.After(interval):
		}

		var err error
		if snapshot, err = that.sync.Refresh(ctx); err != nil {
			that.logger.Warn("failed to re-check trophy", "method", "AwaitTrophy", "game", that.match.GameID.Short(), "error", err)
		}
	}

	return snapshot, nil
}

func (that *GameSession) currentGame(ctx context.Context) (*entity.Game, error) {
	snapshot := that.sync.Snapshot()

	if snapshot.Game == nil && snapshot.State != entity.SyncDeleted {
		var err error
		if snapshot, err = that.sync.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	if snapshot.State == entity.SyncDeleted || snapshot.Game == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, that.match.GameID)
	}

	return snapshot.Game, nil
}
