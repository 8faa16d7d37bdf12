package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"veilslot/config"
	"veilslot/services/ledger"
)

const (
	caller     = "0xa11ce"
	stranger   = "0xb0b"
	kioskID    = "0x10"
	otherKiosk = "0x11"
	capID      = "0x20"
	tokenID    = "0x30"
	policyID   = "0x40"
	tokenType  = "0x99::proof::ProofToken"
)

type fakeLedger struct {
	mu      sync.Mutex
	objects map[string]*ledger.RawObject
	fields  map[string]*ledger.RawObject
	gets    int
	dryRuns int
	submits int
	dryErr  error
	dryFail string
	subErr  error
	lastTx  *ledger.Transaction
	effects ledger.Effects

	// afterDryRun runs once a dry run has been answered.
	afterDryRun    func()
	submitCtxErr   error
	submitDeadline bool
	fieldPages     int
	fieldsErr      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		objects: map[string]*ledger.RawObject{},
		fields:  map[string]*ledger.RawObject{},
		effects: ledger.Effects{
			Status:            ledger.ExecutionStatus{Status: "success"},
			TransactionDigest: "DIGEST",
			GasUsed:           ledger.GasSummary{ComputationCost: 1000, StorageCost: 300, StorageRebate: 100},
			Mutated:           []ledger.ChangedObject{{Reference: ledger.ObjectRef{ObjectID: kioskID}}},
		},
	}
}

func (f *fakeLedger) put(o *ledger.RawObject) {
	f.objects[ledger.NormalizeAddress(o.ObjectID)] = o
}

func fieldKey(parent string, name ledger.DynamicFieldName) string {
	return ledger.NormalizeAddress(parent) + "|" + name.Type + "|" + string(name.Value)
}

func (f *fakeLedger) placeItem(kiosk, item string) {
	name := ledger.DynamicFieldName{Type: "0x2::kiosk::Item", Value: mustJSON(map[string]string{"id": item})}
	f.fields[fieldKey(kiosk, name)] = &ledger.RawObject{ObjectID: "0xf1"}
}

func (f *fakeLedger) listItem(kiosk, item string, price uint64) {
	f.listItemAs(kiosk, item, price, false)
}

func (f *fakeLedger) listItemAs(kiosk, item string, price uint64, exclusive bool) {
	name := ledger.DynamicFieldName{
		Type: "0x2::kiosk::Listing",
		Value: mustJSON(struct {
			ID          string `json:"id"`
			IsExclusive bool   `json:"is_exclusive"`
		}{item, exclusive}),
	}
	f.fields[fieldKey(kiosk, name)] = &ledger.RawObject{
		ObjectID: "0xf2",
		Content:  &ledger.ObjectContent{Fields: json.RawMessage(fmt.Sprintf(`{"value":"%d"}`, price))},
	}
}

func (f *fakeLedger) GetObject(_ context.Context, id string) (*ledger.RawObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	o, ok := f.objects[ledger.NormalizeAddress(id)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ledger.ErrObjectNotFound)
	}
	return o, nil
}

// GetDynamicFields pages through the parent's fields in key order; the
// cursor is the index of the next entry.
func (f *fakeLedger) GetDynamicFields(_ context.Context, parent string, cursor *string, limit int) (*ledger.DynamicFieldPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldPages++
	if f.fieldsErr != nil {
		return nil, f.fieldsErr
	}

	prefix := ledger.NormalizeAddress(parent) + "|"
	var keys []string
	for k := range f.fields {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if cursor != nil {
		start, _ = strconv.Atoi(*cursor)
	}
	end := min(start+limit, len(keys))
	page := &ledger.DynamicFieldPage{Data: []ledger.DynamicFieldInfo{}}
	for _, k := range keys[start:end] {
		parts := strings.SplitN(k, "|", 3)
		page.Data = append(page.Data, ledger.DynamicFieldInfo{
			Name:     ledger.DynamicFieldName{Type: parts[1], Value: json.RawMessage(parts[2])},
			ObjectID: f.fields[k].ObjectID,
		})
	}
	if end < len(keys) {
		next := strconv.Itoa(end)
		page.NextCursor, page.HasNextPage = &next, true
	}
	return page, nil
}

func (f *fakeLedger) GetDynamicFieldObject(_ context.Context, parent string, name ledger.DynamicFieldName) (*ledger.RawObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.fields[fieldKey(parent, name)]
	if !ok {
		return nil, ledger.ErrObjectNotFound
	}
	return o, nil
}

func (f *fakeLedger) DryRun(_ context.Context, tx *ledger.Transaction) (*ledger.Effects, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dryRuns++
	f.lastTx = tx
	if f.afterDryRun != nil {
		defer f.afterDryRun()
	}
	if f.dryErr != nil {
		return nil, f.dryErr
	}
	e := f.effects
	if f.dryFail != "" {
		e.Status = ledger.ExecutionStatus{Status: "failure", Error: f.dryFail}
	}
	return &e, nil
}

func (f *fakeLedger) SignAndSubmit(ctx context.Context, tx *ledger.Transaction) (*ledger.ExecuteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.submitCtxErr = ctx.Err()
	_, f.submitDeadline = ctx.Deadline()
	f.lastTx = tx
	if f.subErr != nil {
		return nil, f.subErr
	}
	return &ledger.ExecuteResult{Digest: f.effects.TransactionDigest, Effects: f.effects}, nil
}

func owner(kind ledger.OwnerKind, addr string) *ledger.Owner {
	return &ledger.Owner{Kind: kind, Address: addr}
}

func shared(isv uint64) *ledger.Owner {
	return &ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: isv}
}

func fields(v string) *ledger.ObjectContent {
	return &ledger.ObjectContent{DataType: "moveObject", Fields: json.RawMessage(v)}
}

func kioskObject(id string, isv uint64) *ledger.RawObject {
	return &ledger.RawObject{
		ObjectID: id, Version: 50, Digest: "dk", Type: "0x2::kiosk::Kiosk",
		Owner: shared(isv), Content: fields(`{"owner":"` + caller + `","item_count":"1"}`),
	}
}

func capObject(id, holder, kiosk string) *ledger.RawObject {
	return &ledger.RawObject{
		ObjectID: id, Version: 8, Digest: "dc", Type: "0x2::kiosk::KioskOwnerCap",
		Owner: owner(ledger.OwnerAddress, holder), Content: fields(`{"for":"` + kiosk + `"}`),
	}
}

func tokenObject(id, typ string, o *ledger.Owner) *ledger.RawObject {
	return &ledger.RawObject{
		ObjectID: id, Version: 3, Digest: "dt", Type: typ,
		Owner: o, Content: fields(`{"id":{"id":"` + id + `"}}`),
	}
}

func policyObject(id string, isv uint64, itemType string) *ledger.RawObject {
	return &ledger.RawObject{
		ObjectID: id, Version: 12, Digest: "dp",
		Type:  "0x2::transfer_policy::TransferPolicy<" + itemType + ">",
		Owner: shared(isv),
		Content: fields(`{"rules":{"type":"0x2::vec_set::VecSet<0x1::type_name::TypeName>","fields":{"contents":[
			{"type":"0x1::type_name::TypeName","fields":{"name":"0x99::royalty::Rule"}}]}}}`),
	}
}

func testChain() config.ChainConfig {
	return config.ChainConfig{
		KioskPackageID:   "0x2",
		TokenType:        tokenType,
		TransferPolicyID: policyID,
		GasBudget:        50_000_000,
	}
}

// standardLedger holds a shared kiosk owned by caller, its cap, a token in the
// caller's wallet and a transfer policy for the token type.
func standardLedger() *fakeLedger {
	f := newFakeLedger()
	f.put(kioskObject(kioskID, 5))
	f.put(kioskObject(otherKiosk, 6))
	f.put(capObject(capID, caller, kioskID))
	f.put(tokenObject(tokenID, tokenType, owner(ledger.OwnerAddress, caller)))
	f.put(policyObject(policyID, 9, tokenType))
	return f
}

func newTestService(f *fakeLedger) *DefaultMarketplaceService {
	svc, err := NewMarketplaceService(f, testChain(), nil)
	if err != nil {
		panic(err)
	}
	return svc
}
