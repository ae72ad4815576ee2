package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
)

// GameManager creates, finds and deletes games owned by the joint address of two players.
type GameManager struct {
	logger  *slog.Logger
	client  ledger.Client
	signer  signer
	builder *txbuilder.Builder
	catalog ledger.Catalog
}

func NewGameManager(
	logger *slog.Logger,
	client ledger.Client,
	signer signer,
	builder *txbuilder.Builder,
	catalog ledger.Catalog,
) *GameManager {
	return &GameManager{
		logger:  logger,
		client:  client,
		signer:  signer,
		builder: builder,
		catalog: catalog,
	}
}

// CreateGame starts a game against opponent. The creator plays X.
func (that *GameManager) CreateGame(ctx context.Context, opponent multisig.PublicKey) (*Match, error) {
	log := that.logger.With("method", "CreateGame", "opponent", opponent.Address().Short())

	local := that.signer.PublicKey()
	if err := confirmOpponent(local, opponent); err != nil {
		return nil, err
	}

	joint := multisig.NewJointKey(local, opponent)
	tx := that.builder.CreateGame(joint.Address(), local.Address(), local.Address(), opponent.Address())

	result, err := executeAsJoint(ctx, that.client, that.signer, joint, tx)
	if err != nil {
		log.Error("failed to create game", "error", err)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	gameID, ok := result.CreatedOfType(that.catalog.GameType())
	if !ok {
		return nil, fmt.Errorf("%w: not among changes of %s", apperror.ErrGameNotFound, result.Digest)
	}

	log.Info("game created", "game", gameID.Short(), "joint", joint.Address().Short())

	return &Match{GameID: gameID, Joint: joint, PlayingAs: entity.MarkerX}, nil
}

// FindGame looks for an ongoing game with opponent under both key orderings.
// When both exist the one where the local player is O wins.
func (that *GameManager) FindGame(ctx context.Context, opponent multisig.PublicKey) (*Match, *entity.Game, error) {
	local := that.signer.PublicKey()
	if err := confirmOpponent(local, opponent); err != nil {
		return nil, nil, err
	}

	orderings := multisig.Orderings(local, opponent)

	var games [2]*entity.Game

	group, groupCtx := errgroup.WithContext(ctx)
	for i, joint := range orderings {
		group.Go(func() error {
			game, found, err := that.findOngoing(groupCtx, joint.Address())
			if err != nil {
				return fmt.Errorf("failed to list games of %s: %w", joint.Address(), err)
			}

			if found {
				games[i] = &game
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	for i, game := range games {
		if game == nil {
			continue
		}

		playingAs := entity.MarkerO
		if i == 1 {
			playingAs = entity.MarkerX
		}

		that.logger.Info("game found", "method", "FindGame", "game", game.ID.Short(), "playing_as", playingAs)

		return &Match{GameID: game.ID, Joint: orderings[i], PlayingAs: playingAs}, game, nil
	}

	return nil, nil, fmt.Errorf("%w: no ongoing game with %s", apperror.ErrGameNotFound, opponent.Address())
}

// LoadGame fetches the current state of gameID.
func (that *GameManager) LoadGame(ctx context.Context, gameID entity.ObjectID) (*entity.Game, error) {
	object, err := that.client.GetObject(ctx, gameID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, gameID)
		}

		return nil, fmt.Errorf("failed to fetch game: %w", err)
	}

	content, ok := object.Content.(ledger.GameContent)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", apperror.ErrGameNotFound, gameID, object.Type)
	}

	return &content.Game, nil
}

// MatchFor rebuilds the match of a fetched game. The X address decides the key ordering.
func (that *GameManager) MatchFor(game *entity.Game, opponent multisig.PublicKey) (*Match, error) {
	local := that.signer.PublicKey()
	if err := confirmOpponent(local, opponent); err != nil {
		return nil, err
	}

	switch {
	case game.XAddr == local.Address() && game.OAddr == opponent.Address():
		return &Match{GameID: game.ID, Joint: multisig.NewJointKey(local, opponent), PlayingAs: entity.MarkerX}, nil
	case game.XAddr == opponent.Address() && game.OAddr == local.Address():
		return &Match{GameID: game.ID, Joint: multisig.NewJointKey(opponent, local), PlayingAs: entity.MarkerO}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not played between %s and %s",
			apperror.ErrState, game.ID, local.Address().Short(), opponent.Address().Short())
	}
}

// DeleteGame removes a finished game from the ledger.
func (that *GameManager) DeleteGame(ctx context.Context, match Match, game *entity.Game) (*ledger.ExecutionResult, error) {
	tx, err := that.builder.DeleteGame(match.JointAddress(), that.signer.Address(), game)
	if err != nil {
		return nil, err
	}

	result, err := executeAsJoint(ctx, that.client, that.signer, match.Joint, tx)
	if err != nil {
		that.logger.Error("failed to delete game", "method", "DeleteGame", "game", match.GameID.Short(), "error", err)
		return nil, fmt.Errorf("failed to delete game: %w", err)
	}

	return result, nil
}

func (that *GameManager) findOngoing(ctx context.Context, owner entity.Address) (entity.Game, bool, error) {
	return findOwned(ctx, that.client, owner, that.catalog.GameType(), func(content ledger.Content) (entity.Game, bool) {
		game, ok := content.(ledger.GameContent)
		return game.Game, ok && game.Game.IsOngoing()
	})
}

func confirmOpponent(local, opponent multisig.PublicKey) error {
	if opponent.IsZero() {
		return fmt.Errorf("%w: opponent key is empty", apperror.ErrInvalidKey)
	}

	if opponent.Address() == local.Address() {
		return fmt.Errorf("%w: opponent key equals the local key", apperror.ErrInvalidKey)
	}

	return nil
}
