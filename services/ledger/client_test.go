package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"veilslot/config"
)

type rpcHandler func(params []json.RawMessage) (result any, rpcErr *RPCError)

func newRPCServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h, ok := handlers[req.Method]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": RPCError{Code: -32601, Message: "method not found"},
			})
			return
		}
		result, rpcErr := h(req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *RPCClient {
	return NewRPCClient(config.ChainConfig{RPCURL: url, SignerURL: url, Timeout: 2 * time.Second}, nil)
}

const kioskJSON = `{
  "objectId": "0xk1",
  "version": "42",
  "digest": "dK",
  "type": "0x2::kiosk::Kiosk",
  "owner": {"Shared": {"initial_shared_version": 7}},
  "content": {"dataType": "moveObject", "type": "0x2::kiosk::Kiosk", "fields": {"item_count": 3}}
}`

func TestGetObject(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, map[string]rpcHandler{
		"sui_getObject": func(params []json.RawMessage) (any, *RPCError) {
			var id string
			_ = json.Unmarshal(params[0], &id)
			if id == "0xk1" {
				return map[string]json.RawMessage{"data": json.RawMessage(kioskJSON)}, nil
			}
			return map[string]any{"error": map[string]string{"code": "notExists", "object_id": id}}, nil
		},
	})
	c := newTestClient(srv.URL)

	obj, err := c.GetObject(context.Background(), "0xk1")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if obj.Version != 42 || obj.Type != "0x2::kiosk::Kiosk" {
		t.Errorf("object = %+v", obj)
	}
	if obj.Owner == nil || obj.Owner.Kind != OwnerShared || obj.Owner.InitialSharedVersion != 7 {
		t.Errorf("owner = %+v", obj.Owner)
	}
	if obj.Content == nil || !strings.Contains(string(obj.Content.Fields), "item_count") {
		t.Errorf("content = %+v", obj.Content)
	}

	_, err = c.GetObject(context.Background(), "0xmissing")
	if !IsNotFound(err) {
		t.Errorf("missing object err = %v, want ErrObjectNotFound", err)
	}
}

func TestRPCErrorPropagates(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, map[string]rpcHandler{
		"signer_dryRun": func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32000, Message: "insufficient gas"}
		},
	})
	c := newTestClient(srv.URL)

	_, err := c.DryRun(context.Background(), NewTransaction("0xa", 1000))
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Message != "insufficient gas" {
		t.Fatalf("err = %v, want RPCError", err)
	}

	if _, err := c.GetObject(context.Background(), "0x1"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetObject(context.Background(), "0x1")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v, want HTTP status error", err)
	}

	c := NewRPCClient(config.ChainConfig{}, nil)
	if _, err := c.GetObject(context.Background(), "0x1"); err == nil {
		t.Error("expected error when endpoint is not configured")
	}
}

func TestDryRunAndSubmit(t *testing.T) {
	t.Parallel()

	var submitted Transaction
	srv := newRPCServer(t, map[string]rpcHandler{
		"signer_dryRun": func([]json.RawMessage) (any, *RPCError) {
			return json.RawMessage(`{"status":{"status":"success"},"gasUsed":{"computationCost":"1000","storageCost":"500","storageRebate":"200"}}`), nil
		},
		"signer_execute": func(params []json.RawMessage) (any, *RPCError) {
			_ = json.Unmarshal(params[0], &submitted)
			return json.RawMessage(`{"effects":{"status":{"status":"success"},"transactionDigest":"DIG","created":[{"reference":{"objectId":"0xnew","version":"1","digest":"d"}}]}}`), nil
		},
	})
	c := newTestClient(srv.URL)

	tx := NewTransaction("0xa", 5000)
	tx.MoveCall("0x2::kiosk::list", []string{"0x9::t::T"}, tx.Shared("0xk", 7, true), tx.Pure("u64", uint64(5)))

	effects, err := c.DryRun(context.Background(), tx)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if !effects.Status.Success() || effects.GasUsed.Net() != 1300 {
		t.Errorf("effects = %+v", effects)
	}

	res, err := c.SignAndSubmit(context.Background(), tx)
	if err != nil {
		t.Fatalf("SignAndSubmit: %v", err)
	}
	if res.Digest != "DIG" {
		t.Errorf("digest = %q, want fallback to effects digest", res.Digest)
	}
	if len(res.Effects.Created) != 1 || res.Effects.Created[0].Reference.ObjectID != "0xnew" {
		t.Errorf("created = %+v", res.Effects.Created)
	}
	if submitted.Sender != "0xa" || len(submitted.Commands) != 1 || submitted.Commands[0].Target != "0x2::kiosk::list" {
		t.Errorf("gateway received %+v", submitted)
	}
}

func TestGetDynamicFields(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, map[string]rpcHandler{
		"suix_getDynamicFields": func(params []json.RawMessage) (any, *RPCError) {
			return json.RawMessage(`{"data":[{"name":{"type":"0x2::kiosk::Listing","value":{"id":"0xt","is_exclusive":false}},"objectId":"0xf","objectType":"u64"}],"nextCursor":null,"hasNextPage":false}`), nil
		},
	})
	page, err := newTestClient(srv.URL).GetDynamicFields(context.Background(), "0xk", nil, 50)
	if err != nil {
		t.Fatalf("GetDynamicFields: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Name.Type != "0x2::kiosk::Listing" || page.HasNextPage {
		t.Errorf("page = %+v", page)
	}
}

func TestOwnerUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Owner
	}{
		{`"Immutable"`, Owner{Kind: OwnerImmutable}},
		{`{"AddressOwner":"0xabc"}`, Owner{Kind: OwnerAddress, Address: "0xabc"}},
		{`{"ObjectOwner":"0xdef"}`, Owner{Kind: OwnerObject, Address: "0xdef"}},
		{`{"Shared":{"initial_shared_version":"12"}}`, Owner{Kind: OwnerShared, InitialSharedVersion: 12}},
	}
	for _, tt := range tests {
		var got Owner
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{`"Mutable"`, `{}`, `42`} {
		var o Owner
		if err := json.Unmarshal([]byte(bad), &o); err == nil {
			t.Errorf("Unmarshal(%s) accepted", bad)
		}
	}
}

func TestTransactionInputsDeduplicate(t *testing.T) {
	t.Parallel()

	tx := NewTransaction("0xa", 1)
	a := tx.Shared("0x2", 1, false)
	b := tx.Shared("0x0000000000000000000000000000000000000000000000000000000000000002", 1, true)
	if a != b {
		t.Errorf("same shared object got two inputs: %v, %v", a, b)
	}
	if !tx.Inputs[0].Mutable {
		t.Error("mutable use should upgrade the shared input")
	}

	ref := ObjectRef{ObjectID: "0xcap", Version: 3, Digest: "d"}
	if tx.Owned(ref) != tx.Owned(ref) {
		t.Error("same owned object got two inputs")
	}
	if len(tx.Inputs) != 2 {
		t.Errorf("inputs = %d, want 2", len(tx.Inputs))
	}

	split := tx.SplitCoins(GasCoin(), tx.Pure("u64", uint64(10)))
	if split.Kind != ArgResult || split.Index != 0 {
		t.Errorf("split result = %v", split)
	}
	if got := NestedResult(split, 1).String(); got != "NestedResult(0,1)" {
		t.Errorf("nested = %s", got)
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	padded := "0x" + strings.Repeat("0", 63) + "2"
	tests := map[string]string{
		"0x2":   padded,
		"0X2":   padded,
		padded:  padded,
		"2":     padded,
		"hello": "hello",
	}
	for in, want := range tests {
		if got := NormalizeAddress(in); got != want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
	if SameAddress("0xab", "0xac") {
		t.Error("distinct addresses compared equal")
	}
}
