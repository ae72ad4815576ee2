package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/config"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/repository"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/repository/storage"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/usecase"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/wallet"
	"github.com/rocketscienceinc/multisig-tictactoe/transport/suirpc"
)

const opponentKeyName = "opponent-key"

func newInjector(logger *slog.Logger, conf *config.Config) do.Injector {
	i := do.New()

	do.ProvideValue(i, logger)
	do.ProvideValue(i, conf)

	do.Provide(i, provideCatalog)
	do.Provide(i, provideRPC)
	do.Provide(i, provideKeyPair)
	do.ProvideNamed(i, opponentKeyName, provideOpponentKey)
	do.Provide(i, provideSigner)
	do.Provide(i, provideBuilder)

	do.Provide(i, provideTrophies)
	do.Provide(i, provideMoves)
	do.Provide(i, provideGames)

	do.Provide(i, provideRedis)
	do.Provide(i, provideSnapshots)

	return i
}

func provideCatalog(i do.Injector) (ledger.Catalog, error) {
	conf := do.MustInvoke[*config.Config](i)

	if conf.Ledger.PackageID == "" {
		return ledger.Catalog{}, fmt.Errorf("%w: ledger package-id is not configured", apperror.ErrState)
	}

	pkg, err := entity.ParseObjectID(conf.Ledger.PackageID)
	if err != nil {
		return ledger.Catalog{}, fmt.Errorf("invalid ledger package-id: %w", err)
	}

	return ledger.NewCatalog(pkg, conf.Ledger.Module), nil
}

func provideRPC(i do.Injector) (*suirpc.Client, error) {
	conf := do.MustInvoke[*config.Config](i)

	catalog, err := do.Invoke[ledger.Catalog](i)
	if err != nil {
		return nil, err
	}

	return suirpc.New(do.MustInvoke[*slog.Logger](i), conf.Ledger.RPCURL, conf.Ledger.RequestTimeout, catalog), nil
}

func provideKeyPair(i do.Injector) (wallet.KeyPair, error) {
	conf := do.MustInvoke[*config.Config](i)

	if conf.Player.PrivateKey == "" {
		return wallet.KeyPair{}, fmt.Errorf("%w: player private-key is not configured", apperror.ErrInvalidKey)
	}

	return wallet.ParsePrivateKey(conf.Player.PrivateKey)
}

func provideOpponentKey(i do.Injector) (multisig.PublicKey, error) {
	conf := do.MustInvoke[*config.Config](i)

	if conf.Player.OpponentPublicKey == "" {
		return multisig.PublicKey{}, fmt.Errorf("%w: opponent-public-key is not configured", apperror.ErrInvalidKey)
	}

	return multisig.ParsePublicKey(conf.Player.OpponentPublicKey)
}

func provideSigner(i do.Injector) (*wallet.LocalSigner, error) {
	key, err := do.Invoke[wallet.KeyPair](i)
	if err != nil {
		return nil, err
	}

	client, err := do.Invoke[*suirpc.Client](i)
	if err != nil {
		return nil, err
	}

	return wallet.NewLocalSigner(do.MustInvoke[*slog.Logger](i), key, client, client), nil
}

func provideBuilder(i do.Injector) (*txbuilder.Builder, error) {
	conf := do.MustInvoke[*config.Config](i)

	catalog, err := do.Invoke[ledger.Catalog](i)
	if err != nil {
		return nil, err
	}

	return txbuilder.New(catalog.Package(), catalog.Module(), conf.Ledger.GasBudget), nil
}

func provideTrophies(i do.Injector) (*usecase.TrophyResolver, error) {
	client, err := do.Invoke[*suirpc.Client](i)
	if err != nil {
		return nil, err
	}

	return usecase.NewTrophyResolver(do.MustInvoke[*slog.Logger](i), client, do.MustInvoke[ledger.Catalog](i)), nil
}

func provideMoves(i do.Injector) (*usecase.MoveCoordinator, error) {
	signer, err := do.Invoke[*wallet.LocalSigner](i)
	if err != nil {
		return nil, err
	}

	return usecase.NewMoveCoordinator(
		do.MustInvoke[*slog.Logger](i),
		do.MustInvoke[*suirpc.Client](i),
		signer,
		do.MustInvoke[*txbuilder.Builder](i),
		do.MustInvoke[ledger.Catalog](i),
		nil,
	), nil
}

func provideGames(i do.Injector) (*usecase.GameManager, error) {
	signer, err := do.Invoke[*wallet.LocalSigner](i)
	if err != nil {
		return nil, err
	}

	return usecase.NewGameManager(
		do.MustInvoke[*slog.Logger](i),
		do.MustInvoke[*suirpc.Client](i),
		signer,
		do.MustInvoke[*txbuilder.Builder](i),
		do.MustInvoke[ledger.Catalog](i),
	), nil
}

func provideRedis(i do.Injector) (*storage.RedisStorage, error) {
	conf := do.MustInvoke[*config.Config](i)

	if !conf.Redis.Enabled {
		return nil, fmt.Errorf("%w: redis is disabled", apperror.ErrState)
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Ledger.RequestTimeout)
	defer cancel()

	return storage.NewRedisStorage(ctx, storage.RedisOptions{
		Host:     conf.Redis.Host,
		Port:     conf.Redis.Port,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func provideSnapshots(i do.Injector) (repository.SnapshotRepository, error) {
	redisStorage, err := do.Invoke[*storage.RedisStorage](i)
	if err != nil {
		return nil, err
	}

	return repository.NewSnapshotRepository(redisStorage.Connection, do.MustInvoke[*config.Config](i).Redis.SnapshotTTL), nil
}
