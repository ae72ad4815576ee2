// Package ledger describes the read/write gateway to the remote ledger and the
// shapes it returns. Content is decoded once, at the client boundary.
package ledger

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

// Client reads objects and submits signed transactions.
type Client interface {
	// GetObject returns apperror.ErrNotFound when the object does not exist.
	GetObject(ctx context.Context, id entity.ObjectID) (*Object, error)
	GetOwnedObjects(ctx context.Context, owner entity.Address, structType string) ([]Object, error)
	ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*ExecutionResult, error)
}

// Resolver supplies what a signer needs to turn an intent into transaction bytes.
type Resolver interface {
	ReferenceGasPrice(ctx context.Context) (uint64, error)
	GetCoins(ctx context.Context, owner entity.Address) ([]Coin, error)
}

type ObjectRef struct {
	ID      entity.ObjectID `json:"objectId"`
	Version uint64          `json:"version"`
	Digest  string          `json:"digest"`
}

type OwnerKind string

const (
	OwnerAddress   OwnerKind = "address"
	OwnerObject    OwnerKind = "object"
	OwnerShared    OwnerKind = "shared"
	OwnerImmutable OwnerKind = "immutable"
)

type Owner struct {
	Kind                 OwnerKind      `json:"kind"`
	Address              entity.Address `json:"address,omitempty"`
	InitialSharedVersion uint64         `json:"initial_shared_version,omitempty"`
}

func (that Owner) IsShared() bool {
	return that.Kind == OwnerShared
}

// Object is a ledger object with its decoded content.
type Object struct {
	Ref     ObjectRef
	Type    string
	Owner   Owner
	Content Content
}

type Coin struct {
	Ref     ObjectRef
	Balance uint64
}

type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusFailure ExecutionStatus = "failure"
)

type ObjectChange struct {
	Type       string          `json:"type"`
	ObjectID   entity.ObjectID `json:"objectId"`
	ObjectType string          `json:"objectType"`
	Owner      Owner           `json:"owner"`
}

type ExecutionResult struct {
	Digest        string
	Status        ExecutionStatus
	Error         string
	Errors        []string
	ObjectChanges []ObjectChange
}

// Err reports a ledger-side rejection as apperror.ErrValidationRejected.
func (that *ExecutionResult) Err() error {
	if that.Status == StatusSuccess && len(that.Errors) == 0 {
		return nil
	}

	reason := that.Error
	if reason == "" && len(that.Errors) > 0 {
		reason = that.Errors[0]
	}

	return fmt.Errorf("%w: tx %s: %s", apperror.ErrValidationRejected, that.Digest, reason)
}

// CreatedOfType returns the id of the first created object whose type matches structType.
func (that *ExecutionResult) CreatedOfType(structType string) (entity.ObjectID, bool) {
	for _, change := range that.ObjectChanges {
		if change.Type == "created" && change.ObjectType == structType {
			return change.ObjectID, true
		}
	}

	return "", false
}
