package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
)

// TrophyResolver finds the trophy minted to the winner of a game.
type TrophyResolver struct {
	logger  *slog.Logger
	client  ledger.Client
	catalog ledger.Catalog
}

func NewTrophyResolver(logger *slog.Logger, client ledger.Client, catalog ledger.Catalog) *TrophyResolver {
	return &TrophyResolver{
		logger:  logger,
		client:  client,
		catalog: catalog,
	}
}

// Resolve returns nil without error for games that have no winner.
// A missing trophy is apperror.ErrTrophyNotFound, usually because the ledger has not indexed it yet.
func (that *TrophyResolver) Resolve(ctx context.Context, game *entity.Game) (*entity.Trophy, error) {
	if game == nil {
		return nil, nil
	}

	winner, ok := game.Winner()
	if !ok {
		return nil, nil
	}

	trophy, found, err := findOwned(ctx, that.client, winner, that.catalog.TrophyType(), func(content ledger.Content) (entity.Trophy, bool) {
		trophy, ok := content.(ledger.TrophyContent)
		return trophy.Trophy, ok && trophy.Trophy.GameID == game.ID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trophies of %s: %w", winner, err)
	}

	if !found {
		that.logger.Debug("trophy not indexed yet", "method", "Resolve", "game", game.ID.Short(), "winner", winner.Short())
		return nil, fmt.Errorf("%w: game %s", apperror.ErrTrophyNotFound, game.ID)
	}

	return &trophy, nil
}
