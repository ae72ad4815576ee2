package suirpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
)

var ErrUnknownOwner = errors.New("unknown owner shape")

type pageResponse[T any] struct {
	Data        []T     `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type objectResponse struct {
	Data  *objectData  `json:"data"`
	Error *objectError `json:"error"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type objectData struct {
	ObjectID string          `json:"objectId"`
	Version  ledger.Number   `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *moveContent    `json:"content"`
}

type moveContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

type coinData struct {
	CoinObjectID string        `json:"coinObjectId"`
	Version      ledger.Number `json:"version"`
	Digest       string        `json:"digest"`
	Balance      ledger.Number `json:"balance"`
}

type executeResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []objectChange `json:"objectChanges"`
	Errors        []string       `json:"errors"`
}

type objectChange struct {
	Type       string          `json:"type"`
	ObjectID   string          `json:"objectId"`
	ObjectType string          `json:"objectType"`
	Owner      json.RawMessage `json:"owner"`
}

func (that *executeResponse) toResult() (*ledger.ExecutionResult, error) {
	result := &ledger.ExecutionResult{
		Digest: that.Digest,
		Status: ledger.StatusFailure,
		Errors: that.Errors,
	}

	if that.Effects != nil {
		result.Status = ledger.ExecutionStatus(that.Effects.Status.Status)
		result.Error = that.Effects.Status.Error
	}

	for _, change := range that.ObjectChanges {
		if change.ObjectID == "" {
			continue
		}

		id, err := entity.ParseObjectID(change.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse changed object id: %w", err)
		}

		owner, err := parseOwner(change.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to parse owner of %s: %w", id, err)
		}

		result.ObjectChanges = append(result.ObjectChanges, ledger.ObjectChange{
			Type:       change.Type,
			ObjectID:   id,
			ObjectType: ledger.NormalizeType(change.ObjectType),
			Owner:      owner,
		})
	}

	return result, nil
}

// parseOwner reads "Immutable", {"AddressOwner": a}, {"ObjectOwner": a} or
// {"Shared": {"initial_shared_version": n}}.
func parseOwner(raw json.RawMessage) (ledger.Owner, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ledger.Owner{}, nil
	}

	if trimmed[0] == '"' {
		var kind string
		if err := json.Unmarshal(trimmed, &kind); err != nil {
			return ledger.Owner{}, fmt.Errorf("%w: %s", ErrUnknownOwner, trimmed)
		}

		if kind == "Immutable" {
			return ledger.Owner{Kind: ledger.OwnerImmutable}, nil
		}

		return ledger.Owner{}, fmt.Errorf("%w: %s", ErrUnknownOwner, kind)
	}

	var shape struct {
		AddressOwner *string `json:"AddressOwner"`
		ObjectOwner  *string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion ledger.Number `json:"initial_shared_version"`
		} `json:"Shared"`
	}

	if err := json.Unmarshal(trimmed, &shape); err != nil {
		return ledger.Owner{}, fmt.Errorf("%w: %s", ErrUnknownOwner, trimmed)
	}

	switch {
	case shape.AddressOwner != nil:
		address, err := entity.ParseAddress(*shape.AddressOwner)
		if err != nil {
			return ledger.Owner{}, err
		}

		return ledger.Owner{Kind: ledger.OwnerAddress, Address: address}, nil
	case shape.ObjectOwner != nil:
		address, err := entity.ParseAddress(*shape.ObjectOwner)
		if err != nil {
			return ledger.Owner{}, err
		}

		return ledger.Owner{Kind: ledger.OwnerObject, Address: address}, nil
	case shape.Shared != nil:
		return ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: uint64(shape.Shared.InitialSharedVersion)}, nil
	default:
		return ledger.Owner{}, fmt.Errorf("%w: %s", ErrUnknownOwner, trimmed)
	}
}
