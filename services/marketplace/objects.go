package marketplace

import (
	"encoding/json"
	"errors"
	"fmt"

	"veilslot/services/ledger"
)

// Object is one of the on-chain objects the marketplace works with:
// *KioskOwnerCap, *Kiosk, *TransferPolicy or *Token.
type Object interface {
	ObjectID() string
	isObject()
}

type KioskOwnerCap struct {
	ID      string
	Version uint64
	Digest  string
	KioskID string
	Owner   ledger.Owner
}

type Kiosk struct {
	ID                   string
	InitialSharedVersion uint64
	Owner                string
	ItemCount            uint64
}

type TransferPolicy struct {
	ID                   string
	InitialSharedVersion uint64
	ItemType             string
	Rules                []string
}

type Token struct {
	ID      string
	Version uint64
	Digest  string
	Type    string
	Owner   ledger.Owner
}

// Listing is a kiosk's price record for one item, in MIST.
type Listing struct {
	ItemID    string `json:"itemId"`
	Price     uint64 `json:"price"`
	Exclusive bool   `json:"exclusive"`
}

func (c *KioskOwnerCap) ObjectID() string  { return c.ID }
func (k *Kiosk) ObjectID() string          { return k.ID }
func (p *TransferPolicy) ObjectID() string { return p.ID }
func (t *Token) ObjectID() string          { return t.ID }

func (*KioskOwnerCap) isObject()  {}
func (*Kiosk) isObject()          {}
func (*TransferPolicy) isObject() {}
func (*Token) isObject()          {}

func (c *KioskOwnerCap) Ref() ledger.ObjectRef {
	return ledger.ObjectRef{ObjectID: c.ID, Version: ledger.Uint64(c.Version), Digest: c.Digest}
}

func (t *Token) Ref() ledger.ObjectRef {
	return ledger.ObjectRef{ObjectID: t.ID, Version: ledger.Uint64(t.Version), Digest: t.Digest}
}

var errMalformed = errors.New("malformed object")

// Parse interprets a raw ledger object. kioskPackage is the package that
// defines kiosk and transfer_policy; anything else parses as a Token.
func Parse(raw *ledger.RawObject, kioskPackage string) (Object, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty response", errMalformed)
	}
	typ := raw.Type
	if typ == "" && raw.Content != nil {
		typ = raw.Content.Type
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: %s has no type", errMalformed, raw.ObjectID)
	}
	if raw.Owner == nil {
		return nil, fmt.Errorf("%w: %s has no owner", errMalformed, raw.ObjectID)
	}

	switch {
	case MatchType(typ, kioskType(kioskPackage, "kiosk", "KioskOwnerCap")):
		return parseCap(raw)
	case MatchType(typ, kioskType(kioskPackage, "kiosk", "Kiosk")):
		return parseKiosk(raw)
	case MatchType(typ, kioskType(kioskPackage, "transfer_policy", "TransferPolicy")):
		return parsePolicy(raw, typ)
	default:
		return &Token{
			ID:      raw.ObjectID,
			Version: uint64(raw.Version),
			Digest:  raw.Digest,
			Type:    typ,
			Owner:   *raw.Owner,
		}, nil
	}
}

func kioskType(pkg, module, name string) string {
	return pkg + "::" + module + "::" + name
}

func parseCap(raw *ledger.RawObject) (*KioskOwnerCap, error) {
	var f struct {
		For string `json:"for"`
	}
	if err := decodeFields(raw, &f); err != nil {
		return nil, err
	}
	if f.For == "" {
		return nil, fmt.Errorf("%w: cap %s does not name a kiosk", errMalformed, raw.ObjectID)
	}
	return &KioskOwnerCap{
		ID:      raw.ObjectID,
		Version: uint64(raw.Version),
		Digest:  raw.Digest,
		KioskID: f.For,
		Owner:   *raw.Owner,
	}, nil
}

func parseKiosk(raw *ledger.RawObject) (*Kiosk, error) {
	if raw.Owner.Kind != ledger.OwnerShared {
		return nil, fmt.Errorf("%w: kiosk %s is not shared", errMalformed, raw.ObjectID)
	}
	var f struct {
		Owner     string        `json:"owner"`
		ItemCount ledger.Uint64 `json:"item_count"`
	}
	if err := decodeFields(raw, &f); err != nil {
		return nil, err
	}
	return &Kiosk{
		ID:                   raw.ObjectID,
		InitialSharedVersion: raw.Owner.InitialSharedVersion,
		Owner:                f.Owner,
		ItemCount:            uint64(f.ItemCount),
	}, nil
}

func parsePolicy(raw *ledger.RawObject, typ string) (*TransferPolicy, error) {
	if raw.Owner.Kind != ledger.OwnerShared {
		return nil, fmt.Errorf("%w: transfer policy %s is not shared", errMalformed, raw.ObjectID)
	}
	tag, _ := ParseType(typ)
	if len(tag.TypeArgs) != 1 {
		return nil, fmt.Errorf("%w: transfer policy %s has no item type", errMalformed, raw.ObjectID)
	}

	var f struct {
		Rules struct {
			Fields struct {
				Contents []struct {
					Fields struct {
						Name string `json:"name"`
					} `json:"fields"`
				} `json:"contents"`
			} `json:"fields"`
		} `json:"rules"`
	}
	if err := decodeFields(raw, &f); err != nil {
		return nil, err
	}
	rules := make([]string, 0, len(f.Rules.Fields.Contents))
	for _, c := range f.Rules.Fields.Contents {
		if c.Fields.Name != "" {
			rules = append(rules, c.Fields.Name)
		}
	}
	return &TransferPolicy{
		ID:                   raw.ObjectID,
		InitialSharedVersion: raw.Owner.InitialSharedVersion,
		ItemType:             tag.TypeArgs[0],
		Rules:                rules,
	}, nil
}

// parseListingField reads the u64 price out of a kiosk Listing dynamic field.
func parseListingField(raw *ledger.RawObject, itemID string, exclusive bool) (*Listing, error) {
	var f struct {
		Value ledger.Uint64 `json:"value"`
	}
	if err := decodeFields(raw, &f); err != nil {
		return nil, err
	}
	return &Listing{ItemID: itemID, Price: uint64(f.Value), Exclusive: exclusive}, nil
}

func decodeFields(raw *ledger.RawObject, dst any) error {
	if raw.Content == nil || len(raw.Content.Fields) == 0 {
		return fmt.Errorf("%w: %s has no content", errMalformed, raw.ObjectID)
	}
	if err := json.Unmarshal(raw.Content.Fields, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", errMalformed, raw.ObjectID, err)
	}
	return nil
}
