// Package suirpc is a JSON-RPC 2.0 client for a Sui full node.
package suirpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
)

const (
	DefaultURL = "https://rpc.testnet.sui.io:443"

	defaultPageSize = 50
	maxPages        = 100
	gasCoinType     = "0x2::sui::SUI"
	executeMode     = "WaitForLocalExecution"
)

// RPCError is an error object returned by the node.
type RPCError struct {
	Method  string          `json:"-"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (that *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", that.Method, that.Code, that.Message)
}

type Client struct {
	logger  *slog.Logger
	url     string
	http    *http.Client
	catalog ledger.Catalog
}

func New(logger *slog.Logger, url string, timeout time.Duration, catalog ledger.Catalog) *Client {
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		logger:  logger,
		url:     url,
		http:    &http.Client{Timeout: timeout},
		catalog: catalog,
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs one request. Transport failures are wrapped in apperror.ErrNetwork,
// node errors are returned as *RPCError for the caller to classify.
func (that *Client) call(ctx context.Context, method string, result any, params ...any) error {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := that.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperror.ErrNetwork, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: http %d: %s", apperror.ErrNetwork, method, resp.StatusCode, snippet)
	}

	var decoded response
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: %s: failed to decode response: %w", apperror.ErrNetwork, method, err)
	}

	if decoded.Error != nil {
		decoded.Error.Method = method
		return decoded.Error
	}

	if result == nil {
		return nil
	}

	if err = json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}

	return nil
}

// read classifies node errors of read calls as network failures.
func (that *Client) read(ctx context.Context, method string, result any, params ...any) error {
	err := that.call(ctx, method, result, params...)

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %w", apperror.ErrNetwork, rpcErr)
	}

	return err
}

var objectOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

func (that *Client) GetObject(ctx context.Context, id entity.ObjectID) (*ledger.Object, error) {
	var resp objectResponse
	if err := that.read(ctx, "sui_getObject", &resp, id, objectOptions); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		switch resp.Error.Code {
		case "notExists", "deleted":
			return nil, fmt.Errorf("%w: %s is %s", apperror.ErrNotFound, id, resp.Error.Code)
		default:
			return nil, fmt.Errorf("%w: sui_getObject %s: %s", apperror.ErrNetwork, id, resp.Error.Code)
		}
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, id)
	}

	return that.toObject(resp.Data)
}

func (that *Client) GetOwnedObjects(ctx context.Context, owner entity.Address, structType string) ([]ledger.Object, error) {
	log := that.logger.With("method", "GetOwnedObjects", "owner", owner, "type", structType)

	query := map[string]any{
		"filter":  map[string]string{"StructType": structType},
		"options": objectOptions,
	}

	var (
		objects []ledger.Object
		cursor  *string
	)

	for page := 0; page < maxPages; page++ {
		var resp pageResponse[objectResponse]
		if err := that.read(ctx, "suix_getOwnedObjects", &resp, owner, query, cursor, defaultPageSize); err != nil {
			return nil, err
		}

		for _, item := range resp.Data {
			if item.Data == nil {
				continue
			}

			object, err := that.toObject(item.Data)
			if err != nil {
				log.Warn("skipping undecodable object", "object", item.Data.ObjectID, "error", err)
				continue
			}

			objects = append(objects, *object)
		}

		if !resp.HasNextPage || resp.NextCursor == nil {
			return objects, nil
		}

		cursor = resp.NextCursor
	}

	log.Warn("owned objects truncated", "pages", maxPages)

	return objects, nil
}

func (that *Client) GetCoins(ctx context.Context, owner entity.Address) ([]ledger.Coin, error) {
	var (
		coins  []ledger.Coin
		cursor *string
	)

	for page := 0; page < maxPages; page++ {
		var resp pageResponse[coinData]
		if err := that.read(ctx, "suix_getCoins", &resp, owner, gasCoinType, cursor, defaultPageSize); err != nil {
			return nil, err
		}

		for _, item := range resp.Data {
			id, err := entity.ParseObjectID(item.CoinObjectID)
			if err != nil {
				return nil, fmt.Errorf("failed to parse coin id: %w", err)
			}

			coins = append(coins, ledger.Coin{
				Ref:     ledger.ObjectRef{ID: id, Version: uint64(item.Version), Digest: item.Digest},
				Balance: uint64(item.Balance),
			})
		}

		if !resp.HasNextPage || resp.NextCursor == nil {
			break
		}

		cursor = resp.NextCursor
	}

	return coins, nil
}

func (that *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price ledger.Number
	if err := that.read(ctx, "suix_getReferenceGasPrice", &price); err != nil {
		return 0, err
	}

	return uint64(price), nil
}

// ExecuteTransaction submits signed bytes. Node-side refusals are apperror.ErrValidationRejected;
// execution failures are reported through the result status.
func (that *Client) ExecuteTransaction(
	ctx context.Context,
	txBytes []byte,
	signatures []string,
) (*ledger.ExecutionResult, error) {
	log := that.logger.With("method", "ExecuteTransaction")

	options := map[string]bool{
		"showEffects":       true,
		"showObjectChanges": true,
	}

	var resp executeResponse

	err := that.call(ctx, "sui_executeTransactionBlock", &resp,
		base64.StdEncoding.EncodeToString(txBytes), signatures, options, executeMode)

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		log.Warn("transaction refused by node", "error", rpcErr)
		return nil, fmt.Errorf("%w: %w", apperror.ErrValidationRejected, rpcErr)
	}

	if err != nil {
		return nil, err
	}

	return resp.toResult()
}

func (that *Client) toObject(data *objectData) (*ledger.Object, error) {
	id, err := entity.ParseObjectID(data.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object id: %w", err)
	}

	owner, err := parseOwner(data.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to parse owner of %s: %w", id, err)
	}

	object := &ledger.Object{
		Ref:   ledger.ObjectRef{ID: id, Version: uint64(data.Version), Digest: data.Digest},
		Type:  ledger.NormalizeType(data.Type),
		Owner: owner,
	}

	if data.Content == nil || data.Content.DataType != "moveObject" {
		object.Content = ledger.OtherContent{Type: object.Type}
		return object, nil
	}

	object.Content, err = that.catalog.Decode(data.Content.Type, data.Content.Fields, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}

	return object, nil
}
