package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"veilslot/config"

	"go.uber.org/zap"
)

// Client is the ledger boundary. Reads go to the network's JSON-RPC node;
// dry-run and submission go to the signer gateway, which owns the keys.
type Client interface {
	GetObject(ctx context.Context, id string) (*RawObject, error)
	GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error)
	GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*RawObject, error)
	DryRun(ctx context.Context, tx *Transaction) (*Effects, error)
	SignAndSubmit(ctx context.Context, tx *Transaction) (*ExecuteResult, error)
}

// RPCError is a JSON-RPC error object returned by either endpoint.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// objectResponse is the envelope of sui_getObject and suix_getDynamicFieldObject.
type objectResponse struct {
	Data  *RawObject `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

var objectOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

var _ Client = (*RPCClient)(nil)

// RPCClient talks JSON-RPC over HTTP.
type RPCClient struct {
	rpcURL    string
	signerURL string
	http      *http.Client
	logger    *zap.Logger
	nextID    atomic.Uint64
}

func NewRPCClient(cfg config.ChainConfig, logger *zap.Logger) *RPCClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCClient{
		rpcURL:    cfg.RPCURL,
		signerURL: cfg.SignerURL,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (c *RPCClient) GetObject(ctx context.Context, id string) (*RawObject, error) {
	var resp objectResponse
	if err := c.call(ctx, c.rpcURL, "sui_getObject", []any{id, objectOptions}, &resp); err != nil {
		return nil, err
	}
	return unwrapObject(resp, id)
}

func (c *RPCClient) GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error) {
	params := []any{parentID, cursor}
	if limit > 0 {
		params = append(params, limit)
	}
	var page DynamicFieldPage
	if err := c.call(ctx, c.rpcURL, "suix_getDynamicFields", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *RPCClient) GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*RawObject, error) {
	var resp objectResponse
	if err := c.call(ctx, c.rpcURL, "suix_getDynamicFieldObject", []any{parentID, name}, &resp); err != nil {
		return nil, err
	}
	return unwrapObject(resp, parentID)
}

func (c *RPCClient) DryRun(ctx context.Context, tx *Transaction) (*Effects, error) {
	var effects Effects
	if err := c.call(ctx, c.signerURL, "signer_dryRun", []any{tx}, &effects); err != nil {
		return nil, err
	}
	return &effects, nil
}

func (c *RPCClient) SignAndSubmit(ctx context.Context, tx *Transaction) (*ExecuteResult, error) {
	var result ExecuteResult
	if err := c.call(ctx, c.signerURL, "signer_execute", []any{tx}, &result); err != nil {
		return nil, err
	}
	if result.Digest == "" {
		result.Digest = result.Effects.TransactionDigest
	}
	return &result, nil
}

func (c *RPCClient) call(ctx context.Context, url, method string, params []any, out any) error {
	if url == "" {
		return fmt.Errorf("%s: endpoint not configured", method)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("ledger call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}
	c.logger.Debug("ledger call",
		zap.String("method", method),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)))

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected HTTP status %d", method, res.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: invalid response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: invalid result: %w", method, err)
	}
	return nil
}

func unwrapObject(resp objectResponse, id string) (*RawObject, error) {
	if resp.Error != nil {
		switch resp.Error.Code {
		case "notExists", "deleted", "dynamicFieldNotFound":
			return nil, fmt.Errorf("%s: %w", id, ErrObjectNotFound)
		default:
			return nil, fmt.Errorf("%s: ledger error %s", id, resp.Error.Code)
		}
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrObjectNotFound)
	}
	return resp.Data, nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
