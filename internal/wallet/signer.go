// Package wallet signs transaction intents with a local Ed25519 key.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/multisig"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/txbuilder"
)

type SignedTransaction struct {
	Bytes     []byte
	Signature string
}

type LocalSigner struct {
	logger  *slog.Logger
	key     KeyPair
	client  ledger.Client
	encoder *dataEncoder
}

func NewLocalSigner(logger *slog.Logger, key KeyPair, client ledger.Client, resolver ledger.Resolver) *LocalSigner {
	return &LocalSigner{
		logger: logger,
		key:    key,
		client: client,
		encoder: &dataEncoder{
			objects:  client,
			resolver: resolver,
		},
	}
}

func (that *LocalSigner) Address() entity.Address {
	return that.key.Address()
}

func (that *LocalSigner) PublicKey() multisig.PublicKey {
	return that.key.PublicKey()
}

// SignTransaction builds the transaction bytes for tx and returns them with the local partial signature.
func (that *LocalSigner) SignTransaction(ctx context.Context, tx *txbuilder.Transaction) (*SignedTransaction, error) {
	txBytes, err := that.encoder.Encode(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction bytes: %w", err)
	}

	return &SignedTransaction{
		Bytes:     txBytes,
		Signature: that.key.Sign(txBytes),
	}, nil
}

// SignAndExecuteTransaction submits a single-signer transaction. A ledger rejection is returned as error.
func (that *LocalSigner) SignAndExecuteTransaction(ctx context.Context, tx *txbuilder.Transaction) (*ledger.ExecutionResult, error) {
	log := that.logger.With("method", "SignAndExecuteTransaction", "function", tx.Call.Function)

	signed, err := that.SignTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	result, err := that.client.ExecuteTransaction(ctx, signed.Bytes, []string{signed.Signature})
	if err != nil {
		return nil, fmt.Errorf("failed to execute transaction: %w", err)
	}

	if err = result.Err(); err != nil {
		log.Warn("transaction rejected", "digest", result.Digest, "error", err)
		return result, err
	}

	log.Debug("transaction executed", "digest", result.Digest)

	return result, nil
}
