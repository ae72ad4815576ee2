package usecase

import (
	"context"
	"crypto/sha256"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/wallet"
)

const (
	testPackage entity.ObjectID = "0x00000000000000000000000000000000000000000000000000000000000000ff"
	testModule                  = "multisig_tic_tac_toe"
	gameID      entity.ObjectID = "0x0000000000000000000000000000000000000000000000000000000000000001"
	tokenID     entity.ObjectID = "0x0000000000000000000000000000000000000000000000000000000000000002"
	trophyID    entity.ObjectID = "0x0000000000000000000000000000000000000000000000000000000000000003"
	otherGameID entity.ObjectID = "0x0000000000000000000000000000000000000000000000000000000000000009"
)

var catalog = ledger.NewCatalog(testPackage, testModule)

type mockLedger struct {
	mock.Mock
}

func (that *mockLedger) GetObject(ctx context.Context, id entity.ObjectID) (*ledger.Object, error) {
	args := that.Called(ctx, id)
	object, _ := args.Get(0).(*ledger.Object)

	return object, args.Error(1)
}

func (that *mockLedger) GetOwnedObjects(ctx context.Context, owner entity.Address, structType string) ([]ledger.Object, error) {
	args := that.Called(ctx, owner, structType)
	objects, _ := args.Get(0).([]ledger.Object)

	return objects, args.Error(1)
}

func (that *mockLedger) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*ledger.ExecutionResult, error) {
	args := that.Called(ctx, txBytes, signatures)
	result, _ := args.Get(0).(*ledger.ExecutionResult)

	return result, args.Error(1)
}

// mockSigner signs with a real key so partial signatures combine, and records what it sees.
type mockSigner struct {
	mock.Mock

	key wallet.KeyPair
}

func (that *mockSigner) Address() entity.Address {
	return that.key.Address()
}

func (that *mockSigner) PublicKey() multisig.PublicKey {
	return that.key.PublicKey()
}

func (that *mockSigner) SignTransaction(ctx context.Context, tx *txbuilder.Transaction) (*wallet.SignedTransaction, error) {
	args := that.Called(ctx, tx)
	if err := args.Error(0); err != nil {
		return nil, err
	}

	txBytes := []byte(tx.Call.Function)

	return &wallet.SignedTransaction{Bytes: txBytes, Signature: that.key.Sign(txBytes)}, nil
}

func (that *mockSigner) SignAndExecuteTransaction(ctx context.Context, tx *txbuilder.Transaction) (*ledger.ExecutionResult, error) {
	args := that.Called(ctx, tx)
	result, _ := args.Get(0).(*ledger.ExecutionResult)

	return result, args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (that *mockRefresher) Refresh(ctx context.Context) (entity.Snapshot, error) {
	args := that.Called(ctx)
	snapshot, _ := args.Get(0).(entity.Snapshot)

	return snapshot, args.Error(1)
}

type mockSnapshotStore struct {
	mock.Mock
}

func (that *mockSnapshotStore) Save(ctx context.Context, snapshot *entity.Snapshot) error {
	return that.Called(ctx, snapshot).Error(0)
}

func (that *mockSnapshotStore) DeleteByGameID(ctx context.Context, id entity.ObjectID) error {
	return that.Called(ctx, id).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keyPair(t *testing.T, name string) wallet.KeyPair {
	t.Helper()

	seed := sha256.Sum256([]byte(name))

	key, err := wallet.NewKeyPair(seed[:])
	require.NoError(t, err)

	return key
}

// players returns the X and O key pairs of a game created by X.
func players(t *testing.T) (wallet.KeyPair, wallet.KeyPair) {
	t.Helper()

	return keyPair(t, "player-x"), keyPair(t, "player-o")
}

func gameObject(game entity.Game) *ledger.Object {
	return &ledger.Object{
		Ref:     ledger.ObjectRef{ID: game.ID, Version: 1, Digest: "d"},
		Type:    catalog.GameType(),
		Owner:   ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: 1},
		Content: ledger.GameContent{Game: game},
	}
}

func markObject(token entity.MoveToken) ledger.Object {
	return ledger.Object{
		Ref:     ledger.ObjectRef{ID: token.ID, Version: 1, Digest: "d"},
		Type:    catalog.MarkType(),
		Owner:   ledger.Owner{Kind: ledger.OwnerAddress, Address: token.Owner},
		Content: ledger.MarkContent{Token: token},
	}
}

func trophyObject(trophy entity.Trophy) ledger.Object {
	return ledger.Object{
		Ref:     ledger.ObjectRef{ID: trophy.ID, Version: 1, Digest: "d"},
		Type:    catalog.TrophyType(),
		Owner:   ledger.Owner{Kind: ledger.OwnerAddress, Address: trophy.Winner},
		Content: ledger.TrophyContent{Trophy: trophy},
	}
}

func success(digest string) *ledger.ExecutionResult {
	return &ledger.ExecutionResult{Digest: digest, Status: ledger.StatusSuccess}
}

func functionIs(function string) any {
	return mock.MatchedBy(func(tx *txbuilder.Transaction) bool {
		return tx.Call.Function == function
	})
}
