package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
)

const DefaultSyncInterval = 3 * time.Second

type snapshotStore interface {
	Save(ctx context.Context, snapshot *entity.Snapshot) error
	DeleteByGameID(ctx context.Context, gameID entity.ObjectID) error
}

type SyncOption func(*GameSyncEngine)

// WithSnapshotStore writes every refreshed snapshot to store.
func WithSnapshotStore(store snapshotStore) SyncOption {
	return func(engine *GameSyncEngine) {
		engine.store = store
	}
}

// GameSyncEngine keeps a snapshot of one game current by polling the ledger.
type GameSyncEngine struct {
	logger   *slog.Logger
	client   ledger.Client
	trophies *TrophyResolver
	store    snapshotStore
	viewer   entity.Address
	interval time.Duration

	// refreshMu serializes ledger reads.
	refreshMu sync.Mutex

	mu       sync.Mutex
	snapshot entity.Snapshot
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	updates  chan entity.Snapshot
}

// NewGameSyncEngine tracks gameID on behalf of viewer, the local player address.
func NewGameSyncEngine(
	logger *slog.Logger,
	client ledger.Client,
	trophies *TrophyResolver,
	gameID entity.ObjectID,
	viewer entity.Address,
	interval time.Duration,
	opts ...SyncOption,
) *GameSyncEngine {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	engine := &GameSyncEngine{
		logger:   logger,
		client:   client,
		trophies: trophies,
		viewer:   viewer,
		interval: interval,
		snapshot: entity.Snapshot{GameID: gameID, State: entity.SyncIdle},
		done:     make(chan struct{}),
		updates:  make(chan entity.Snapshot, 1),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Start launches the polling loop. The first refresh happens immediately.
func (that *GameSyncEngine) Start(ctx context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return apperror.ErrSyncStopped
	}

	if that.cancel != nil {
		return apperror.ErrSyncAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	that.cancel = cancel

	if !that.snapshot.State.IsTerminal() {
		that.snapshot.State = entity.SyncRunning
	}

	go that.run(loopCtx)

	return nil
}

// Stop cancels the loop and waits for it. No ledger read happens after Stop returns.
func (that *GameSyncEngine) Stop() {
	that.mu.Lock()

	wasStopped := that.stopped
	that.stopped = true
	cancel := that.cancel

	if !that.snapshot.State.IsTerminal() {
		that.snapshot.State = entity.SyncStopped
	}

	that.mu.Unlock()

	switch {
	case cancel != nil:
		cancel()
		<-that.done
	case !wasStopped:
		close(that.done)
	}

	// waits for a manual refresh still in flight
	that.refreshMu.Lock()
	that.refreshMu.Unlock() //nolint:staticcheck // barrier
}

// Refresh reads the game once, outside of the loop schedule.
func (that *GameSyncEngine) Refresh(ctx context.Context) (entity.Snapshot, error) {
	that.refreshMu.Lock()
	defer that.refreshMu.Unlock()

	if that.isStopped() {
		return that.Snapshot(), apperror.ErrSyncStopped
	}

	return that.refresh(ctx)
}

func (that *GameSyncEngine) Snapshot() entity.Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshot
}

// Updates delivers the latest snapshot. A slow reader only misses intermediate ones.
func (that *GameSyncEngine) Updates() <-chan entity.Snapshot {
	return that.updates
}

// Done is closed when the loop exits, either terminal or stopped.
func (that *GameSyncEngine) Done() <-chan struct{} {
	return that.done
}

func (that *GameSyncEngine) isStopped() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.stopped
}

func (that *GameSyncEngine) run(ctx context.Context) {
	defer close(that.done)

	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	if that.pollOnce(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if that.pollOnce(ctx) {
				return
			}
		}
	}
}

// pollOnce reports whether the loop should exit.
func (that *GameSyncEngine) pollOnce(ctx context.Context) bool {
	that.refreshMu.Lock()
	defer that.refreshMu.Unlock()

	if ctx.Err() != nil || that.isStopped() {
		return true
	}

	snapshot, err := that.refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}

		that.logger.Warn("failed to refresh game", "method", "pollOnce", "game", snapshot.GameID.Short(), "error", err)

		return false
	}

	return snapshot.State.IsTerminal()
}

// refresh must be called with refreshMu held.
func (that *GameSyncEngine) refresh(ctx context.Context) (entity.Snapshot, error) {
	current := that.Snapshot()
	log := that.logger.With("method", "refresh", "game", current.GameID.Short())

	object, err := that.client.GetObject(ctx, current.GameID)
	if isNotFound(err) {
		log.Info("game is gone from the ledger")

		next := current
		next.State = entity.SyncDeleted

		return that.publish(ctx, next), nil
	}

	if err != nil {
		return current, fmt.Errorf("failed to fetch game: %w", err)
	}

	content, ok := object.Content.(ledger.GameContent)
	if !ok {
		return current, fmt.Errorf("%w: %s holds %s", apperror.ErrState, current.GameID, object.Type)
	}

	game := content.Game
	next := current
	next.Game = &game

	if game.IsFinished() {
		next.State = entity.SyncFinished
	} else if current.State == entity.SyncDeleted || current.State == entity.SyncFinished {
		next.State = entity.SyncIdle
	}

	finishedNow := game.IsFinished() && (current.Game == nil || current.Game.IsOngoing())
	if game.IsDecisive() && next.Trophy == nil && (finishedNow || current.TrophyPending) {
		next.Trophy, next.TrophyPending = that.resolveTrophy(ctx, log, &game)
	}

	if winner, ok := game.Winner(); ok {
		next.Won = winner == that.viewer
	}

	return that.publish(ctx, next), nil
}

func (that *GameSyncEngine) resolveTrophy(ctx context.Context, log *slog.Logger, game *entity.Game) (*entity.Trophy, bool) {
	trophy, err := that.trophies.Resolve(ctx, game)
	if err == nil {
		return trophy, false
	}

	if isNotFound(err) {
		log.Info("trophy pending", "finished", game.Finished)
	} else {
		log.Warn("failed to resolve trophy", "error", err)
	}

	return nil, true
}

// publish stamps snapshot, stores it and returns the stored value.
func (that *GameSyncEngine) publish(ctx context.Context, snapshot entity.Snapshot) entity.Snapshot {
	snapshot.UpdatedAt = time.Now().UTC()

	that.mu.Lock()
	if that.stopped && !snapshot.State.IsTerminal() {
		snapshot.State = entity.SyncStopped
	}
	that.snapshot = snapshot
	that.mu.Unlock()

	select {
	case <-that.updates:
	default:
	}

	select {
	case that.updates <- snapshot:
	default:
	}

	if that.store == nil {
		return snapshot
	}

	var err error
	if snapshot.State == entity.SyncDeleted {
		err = that.store.DeleteByGameID(ctx, snapshot.GameID)
	} else {
		err = that.store.Save(ctx, &snapshot)
	}

	if err != nil {
		that.logger.Warn("failed to cache snapshot", "method", "publish", "game", snapshot.GameID.Short(), "error", err)
	}

	return snapshot
}
