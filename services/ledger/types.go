package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrObjectNotFound is returned when the ledger has no live object for an id.
var ErrObjectNotFound = errors.New("object not found")

// Uint64 decodes from a JSON number or a quoted decimal string; the ledger
// uses both for versions and gas amounts.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %s: %w", b, err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

type OwnerKind string

const (
	OwnerAddress   OwnerKind = "address"
	OwnerObject    OwnerKind = "object"
	OwnerShared    OwnerKind = "shared"
	OwnerImmutable OwnerKind = "immutable"
)

// Owner is the ownership record attached to every object.
type Owner struct {
	Kind                 OwnerKind
	Address              string
	InitialSharedVersion uint64
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "Immutable" {
			return fmt.Errorf("unknown owner %q", s)
		}
		*o = Owner{Kind: OwnerImmutable}
		return nil
	}

	var raw struct {
		AddressOwner *string `json:"AddressOwner"`
		ObjectOwner  *string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion Uint64 `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	switch {
	case raw.AddressOwner != nil:
		*o = Owner{Kind: OwnerAddress, Address: *raw.AddressOwner}
	case raw.ObjectOwner != nil:
		*o = Owner{Kind: OwnerObject, Address: *raw.ObjectOwner}
	case raw.Shared != nil:
		*o = Owner{Kind: OwnerShared, InitialSharedVersion: uint64(raw.Shared.InitialSharedVersion)}
	default:
		return fmt.Errorf("unknown owner %s", b)
	}
	return nil
}

// ObjectContent is the decoded Move struct of an object.
type ObjectContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

// RawObject is an object exactly as the ledger reports it. Interpreting it
// is the caller's job.
type RawObject struct {
	ObjectID string         `json:"objectId"`
	Version  Uint64         `json:"version"`
	Digest   string         `json:"digest"`
	Type     string         `json:"type"`
	Owner    *Owner         `json:"owner"`
	Content  *ObjectContent `json:"content"`
}

// Ref is the (id, version, digest) triple that pins an owned object input.
func (o *RawObject) Ref() ObjectRef {
	return ObjectRef{ObjectID: o.ObjectID, Version: o.Version, Digest: o.Digest}
}

type DynamicFieldName struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type DynamicFieldInfo struct {
	Name       DynamicFieldName `json:"name"`
	ObjectID   string           `json:"objectId"`
	ObjectType string           `json:"objectType"`
	Type       string           `json:"type"`
}

type DynamicFieldPage struct {
	Data        []DynamicFieldInfo `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  Uint64 `json:"version"`
	Digest   string `json:"digest"`
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s ExecutionStatus) Success() bool { return s.Status == "success" }

type GasSummary struct {
	ComputationCost Uint64 `json:"computationCost"`
	StorageCost     Uint64 `json:"storageCost"`
	StorageRebate   Uint64 `json:"storageRebate"`
}

// Net is the gas actually charged, never below zero.
func (g GasSummary) Net() uint64 {
	total := uint64(g.ComputationCost) + uint64(g.StorageCost)
	if uint64(g.StorageRebate) >= total {
		return 0
	}
	return total - uint64(g.StorageRebate)
}

type ChangedObject struct {
	Reference ObjectRef `json:"reference"`
	Owner     *Owner    `json:"owner,omitempty"`
}

// Effects summarises what a transaction did or would do.
type Effects struct {
	Status            ExecutionStatus `json:"status"`
	GasUsed           GasSummary      `json:"gasUsed"`
	TransactionDigest string          `json:"transactionDigest"`
	Created           []ChangedObject `json:"created"`
	Mutated           []ChangedObject `json:"mutated"`
}

type ExecuteResult struct {
	Digest  string  `json:"digest"`
	Effects Effects `json:"effects"`
}
