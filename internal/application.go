package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pterm/pterm"
	"github.com/samber/do/v2"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/config"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/repository"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/repository/storage"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/usecase"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/wallet"
	"github.com/rocketscienceinc/multisig-tictactoe/transport/rest"
	"github.com/rocketscienceinc/multisig-tictactoe/transport/suirpc"
	"github.com/rocketscienceinc/multisig-tictactoe/transport/websocket"
)

const (
	shutdownTimeout = 10 * time.Second
	trophyAttempts  = 5
)

var ErrCachedNeedsGame = errors.New("cached status needs a game id")

// App runs the command line operations of the local player.
type App struct {
	logger   *slog.Logger
	conf     *config.Config
	injector do.Injector
	redis    *storage.RedisStorage
}

func New(logger *slog.Logger, conf *config.Config) *App {
	return &App{
		logger:   logger,
		conf:     conf,
		injector: newInjector(logger, conf),
	}
}

// Close releases the connections opened while running a command.
func (that *App) Close() {
	if that.redis == nil {
		return
	}

	if err := that.redis.Close(); err != nil {
		that.logger.Error("could not close redis storage", "error", err)
	}
}

// Address prints the local address and public key to hand to the opponent.
func (that *App) Address() error {
	key, err := do.Invoke[wallet.KeyPair](that.injector)
	if err != nil {
		return err
	}

	pterm.Info.Printfln("address    %s", key.Address())
	pterm.Info.Printfln("public key %s", key.PublicKey())

	return nil
}

func (that *App) Create(ctx context.Context) error {
	games, opponent, err := that.gamesWithOpponent()
	if err != nil {
		return err
	}

	match, err := games.CreateGame(ctx, opponent)
	if err != nil {
		return err
	}

	printMatch(*match)

	return nil
}

func (that *App) Join(ctx context.Context) error {
	games, opponent, err := that.gamesWithOpponent()
	if err != nil {
		return err
	}

	match, game, err := games.FindGame(ctx, opponent)
	if err != nil {
		return err
	}

	printMatch(*match)

	return printSnapshot(entity.Snapshot{GameID: match.GameID, State: entity.SyncIdle, Game: game}, that.viewer())
}

// Status prints the game once. With cached it reads the last synced snapshot instead of the ledger.
func (that *App) Status(ctx context.Context, gameID string, cached bool) error {
	if cached {
		return that.cachedStatus(ctx, gameID)
	}

	session, err := that.openSession(ctx, gameID)
	if err != nil {
		return err
	}

	snapshot, err := session.Refresh(ctx)
	if err != nil {
		return err
	}

	printMatch(session.Match())

	return printSnapshot(snapshot, that.viewer())
}

func (that *App) Move(ctx context.Context, gameID string, placement int) error {
	session, err := that.openSession(ctx, gameID)
	if err != nil {
		return err
	}

	result, err := session.PlaceMark(ctx, placement)
	if err != nil {
		return err
	}

	if result.Resumed {
		pterm.Warning.Printfln("resumed a staged move on cell %d", result.Placement)
	}

	pterm.Success.Printfln("mark placed on cell %d (%s)", result.Placement, result.ApplyDigest)

	return printSnapshot(session.Snapshot(), that.viewer())
}

// Watch prints every change of the game until it finishes, is deleted or ctx is done.
// A won game is re-checked a few times when its trophy is not indexed yet.
func (that *App) Watch(ctx context.Context, gameID string) error {
	session, err := that.openSession(ctx, gameID)
	if err != nil {
		return err
	}

	engine := session.Sync()
	if err = engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	printMatch(session.Match())

	for {
		select {
		case snapshot := <-engine.Updates():
			if err = printSnapshot(snapshot, that.viewer()); err != nil {
				return err
			}
		case <-engine.Done():
			select {
			case snapshot := <-engine.Updates():
				if err = printSnapshot(snapshot, that.viewer()); err != nil {
					return err
				}
			default:
			}

			return that.awaitTrophy(ctx, session)
		case <-ctx.Done():
			return nil
		}
	}
}

// awaitTrophy keeps a won game on screen until its trophy is indexed or the attempts run out.
func (that *App) awaitTrophy(ctx context.Context, session *usecase.GameSession) error {
	if !session.Snapshot().TrophyPending {
		return nil
	}

	pterm.Info.Println("waiting for the trophy")

	snapshot, err := session.AwaitTrophy(ctx, trophyAttempts, that.conf.Sync.Interval)
	if err != nil {
		return nil //nolint:nilerr // interrupted by the user
	}

	return printSnapshot(snapshot, that.viewer())
}

func (that *App) Delete(ctx context.Context, gameID string) error {
	session, err := that.openSession(ctx, gameID)
	if err != nil {
		return err
	}

	result, err := session.DeleteGame(ctx)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("game %s deleted (%s)", session.Match().GameID.Short(), result.Digest)

	return nil
}

// Serve keeps the game synced and exposes it over HTTP until ctx is done.
func (that *App) Serve(ctx context.Context, gameID string) error {
	log := that.logger.With("method", "Serve")

	session, err := that.openSession(ctx, gameID)
	if err != nil {
		return err
	}

	stream := websocket.New(that.logger, session)
	server := rest.New(that.logger, that.conf.HTTPPort, rest.NewPingHandler(), rest.NewGameHandler(that.logger, session), stream)

	engine := session.Sync()
	if err = engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	go stream.Run(ctx, engine.Updates())

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Start()
	}()

	select {
	case err = <-serverErrCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func (that *App) cachedStatus(ctx context.Context, gameID string) error {
	if gameID == "" {
		return ErrCachedNeedsGame
	}

	id, err := entity.ParseObjectID(gameID)
	if err != nil {
		return fmt.Errorf("invalid game id: %w", err)
	}

	snapshots, err := that.snapshots()
	if err != nil {
		return err
	}

	snapshot, err := snapshots.GetByGameID(ctx, id)
	if err != nil {
		return err
	}

	pterm.Info.Printfln("cached at %s", snapshot.UpdatedAt.Format(time.RFC3339))

	return printSnapshot(*snapshot, that.viewer())
}

// openSession resolves the match either from an explicit game id or by searching
// the ongoing game with the configured opponent.
func (that *App) openSession(ctx context.Context, gameID string) (*usecase.GameSession, error) {
	games, opponent, err := that.gamesWithOpponent()
	if err != nil {
		return nil, err
	}

	var match *usecase.Match

	if gameID == "" {
		if match, _, err = games.FindGame(ctx, opponent); err != nil {
			return nil, err
		}
	} else {
		id, parseErr := entity.ParseObjectID(gameID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid game id: %w", parseErr)
		}

		game, loadErr := games.LoadGame(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}

		if match, err = games.MatchFor(game, opponent); err != nil {
			return nil, err
		}
	}

	var opts []usecase.SyncOption
	if that.conf.Redis.Enabled {
		snapshots, snapshotErr := that.snapshots()
		if snapshotErr != nil {
			return nil, snapshotErr
		}

		opts = append(opts, usecase.WithSnapshotStore(snapshots))
	}

	engine := usecase.NewGameSyncEngine(
		that.logger,
		do.MustInvoke[*suirpc.Client](that.injector),
		do.MustInvoke[*usecase.TrophyResolver](that.injector),
		match.GameID,
		that.viewer(),
		that.conf.Sync.Interval,
		opts...,
	)

	return usecase.NewGameSession(
		that.logger,
		*match,
		engine,
		do.MustInvoke[*usecase.MoveCoordinator](that.injector),
		games,
	), nil
}

func (that *App) gamesWithOpponent() (*usecase.GameManager, multisig.PublicKey, error) {
	games, err := do.Invoke[*usecase.GameManager](that.injector)
	if err != nil {
		return nil, multisig.PublicKey{}, err
	}

	opponent, err := do.InvokeNamed[multisig.PublicKey](that.injector, opponentKeyName)
	if err != nil {
		return nil, multisig.PublicKey{}, err
	}

	return games, opponent, nil
}

func (that *App) snapshots() (repository.SnapshotRepository, error) {
	snapshots, err := do.Invoke[repository.SnapshotRepository](that.injector)
	if err != nil {
		return nil, err
	}

	that.redis = do.MustInvoke[*storage.RedisStorage](that.injector)

	return snapshots, nil
}

// viewer is only called once the key pair resolved.
func (that *App) viewer() entity.Address {
	key, err := do.Invoke[wallet.KeyPair](that.injector)
	if err != nil {
		return ""
	}

	return key.Address()
}
