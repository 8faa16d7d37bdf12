package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"veilslot/config"
	"veilslot/services/ledger"
	"veilslot/utils"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const sharedVersionCacheSize = 1024

// Resolver fetches and type-checks the objects a marketplace transaction
// references. It only reads from the ledger.
type Resolver struct {
	ledger ledger.Client
	chain  config.ChainConfig
	logger *zap.Logger
	// Initial shared versions never change once an object is shared.
	sharedVersions *lru.Cache[string, uint64]
}

func NewResolver(client ledger.Client, chain config.ChainConfig, logger *zap.Logger) (*Resolver, error) {
	cache, err := lru.New[string, uint64](sharedVersionCacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if chain.KioskPackageID == "" {
		chain.KioskPackageID = "0x2"
	}
	return &Resolver{ledger: client, chain: chain, logger: logger, sharedVersions: cache}, nil
}

func (r *Resolver) kioskPackage() string {
	return r.chain.KioskPackageID
}

func (r *Resolver) resolve(ctx context.Context, id string) (Object, error) {
	raw, err := r.ledger.GetObject(ctx, id)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, utils.WrapError(utils.KindNotFound, err, "object %s not found", id)
		}
		return nil, utils.WrapError(utils.KindUnavailable, err, "failed to read object %s", id)
	}
	obj, err := Parse(raw, r.kioskPackage())
	if err != nil {
		return nil, utils.WrapError(utils.KindValidation, err, "object %s could not be interpreted", id)
	}
	if !ledger.SameAddress(obj.ObjectID(), id) {
		return nil, utils.NewError(utils.KindValidation, "ledger returned %s for %s", obj.ObjectID(), id)
	}
	return obj, nil
}

// ResolveKiosk fetches a shared kiosk.
func (r *Resolver) ResolveKiosk(ctx context.Context, kioskID string) (*Kiosk, error) {
	obj, err := r.resolve(ctx, kioskID)
	if err != nil {
		return nil, err
	}
	k, ok := obj.(*Kiosk)
	if !ok {
		return nil, utils.NewError(utils.KindValidation, "object %s is not a kiosk", kioskID)
	}
	r.sharedVersions.Add(ledger.NormalizeAddress(k.ID), k.InitialSharedVersion)
	return k, nil
}

// ResolveCap fetches a kiosk owner cap held by caller that controls kioskID.
func (r *Resolver) ResolveCap(ctx context.Context, capID, kioskID, caller string) (*KioskOwnerCap, error) {
	obj, err := r.resolve(ctx, capID)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*KioskOwnerCap)
	if !ok {
		return nil, utils.NewError(utils.KindValidation, "object %s is not a kiosk owner cap", capID)
	}
	if c.Owner.Kind != ledger.OwnerAddress || !ledger.SameAddress(c.Owner.Address, caller) {
		return nil, utils.NewError(utils.KindValidation, "kiosk owner cap %s is not owned by the caller", capID)
	}
	if !ledger.SameAddress(c.KioskID, kioskID) {
		return nil, utils.NewError(utils.KindValidation, "kiosk owner cap %s does not control kiosk %s", capID, kioskID)
	}
	return c, nil
}

// ResolvePolicy fetches a shared transfer policy for itemType.
func (r *Resolver) ResolvePolicy(ctx context.Context, policyID, itemType string) (*TransferPolicy, error) {
	obj, err := r.resolve(ctx, policyID)
	if err != nil {
		return nil, err
	}
	p, ok := obj.(*TransferPolicy)
	if !ok {
		return nil, utils.NewError(utils.KindValidation, "object %s is not a transfer policy", policyID)
	}
	if !MatchType(p.ItemType, itemType) {
		return nil, utils.NewError(utils.KindValidation, "transfer policy %s governs %s, not %s", policyID, p.ItemType, itemType)
	}
	r.sharedVersions.Add(ledger.NormalizeAddress(p.ID), p.InitialSharedVersion)
	return p, nil
}

// ResolveToken fetches a proof token and checks it against the configured
// token type. Without a configured type nothing qualifies as a token.
func (r *Resolver) ResolveToken(ctx context.Context, tokenID string) (*Token, error) {
	if strings.TrimSpace(r.chain.TokenType) == "" {
		return nil, utils.NewError(utils.KindDependencyMissing, "no proof token type configured")
	}
	obj, err := r.resolve(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*Token)
	if !ok {
		return nil, utils.NewError(utils.KindValidation, "object %s is not a token", tokenID)
	}
	if !MatchType(t.Type, r.chain.TokenType) {
		return nil, utils.NewError(utils.KindValidation, "object %s has type %s, want %s", tokenID, t.Type, r.chain.TokenType)
	}
	return t, nil
}

// SharedVersion returns the initial shared version of a shared object.
func (r *Resolver) SharedVersion(ctx context.Context, id string) (uint64, error) {
	key := ledger.NormalizeAddress(id)
	if v, ok := r.sharedVersions.Get(key); ok {
		return v, nil
	}
	raw, err := r.ledger.GetObject(ctx, id)
	if err != nil {
		if ledger.IsNotFound(err) {
			return 0, utils.WrapError(utils.KindNotFound, err, "object %s not found", id)
		}
		return 0, utils.WrapError(utils.KindUnavailable, err, "failed to read object %s", id)
	}
	if raw.Owner == nil || raw.Owner.Kind != ledger.OwnerShared {
		return 0, utils.NewError(utils.KindValidation, "object %s is not shared", id)
	}
	r.sharedVersions.Add(key, raw.Owner.InitialSharedVersion)
	return raw.Owner.InitialSharedVersion, nil
}

// HasItem reports whether itemID is placed in the kiosk.
func (r *Resolver) HasItem(ctx context.Context, kioskID, itemID string) (bool, error) {
	name := ledger.DynamicFieldName{
		Type:  kioskType(r.kioskPackage(), "kiosk", "Item"),
		Value: mustJSON(map[string]string{"id": itemID}),
	}
	_, err := r.ledger.GetDynamicFieldObject(ctx, kioskID, name)
	if err != nil {
		if ledger.IsNotFound(err) {
			return false, nil
		}
		return false, utils.WrapError(utils.KindUnavailable, err, "failed to read kiosk %s", kioskID)
	}
	return true, nil
}

// FindListing returns the kiosk's listing for itemID, or nil when the item is
// not listed.
func (r *Resolver) FindListing(ctx context.Context, kioskID, itemID string) (*Listing, error) {
	for _, exclusive := range []bool{false, true} {
		name := ledger.DynamicFieldName{
			Type: kioskType(r.kioskPackage(), "kiosk", "Listing"),
			Value: mustJSON(struct {
				ID          string `json:"id"`
				IsExclusive bool   `json:"is_exclusive"`
			}{itemID, exclusive}),
		}
		raw, err := r.ledger.GetDynamicFieldObject(ctx, kioskID, name)
		if err != nil {
			if ledger.IsNotFound(err) {
				continue
			}
			return nil, utils.WrapError(utils.KindUnavailable, err, "failed to read listing for %s", itemID)
		}
		listing, err := parseListingField(raw, itemID, exclusive)
		if err != nil {
			return nil, utils.WrapError(utils.KindValidation, err, "listing for %s could not be interpreted", itemID)
		}
		return listing, nil
	}
	return nil, nil
}

const (
	listingPageSize = 50
	maxListingPages = 20
)

// Listings enumerates the kiosk's dynamic fields and returns every listing,
// in the order the ledger pages them.
func (r *Resolver) Listings(ctx context.Context, kioskID string) ([]Listing, error) {
	kiosk, err := r.ResolveKiosk(ctx, kioskID)
	if err != nil {
		return nil, err
	}

	listingType := kioskType(r.kioskPackage(), "kiosk", "Listing")
	listings := []Listing{}
	var cursor *string
	for page := 0; page < maxListingPages; page++ {
		fields, err := r.ledger.GetDynamicFields(ctx, kiosk.ID, cursor, listingPageSize)
		if err != nil {
			return nil, utils.WrapError(utils.KindUnavailable, err, "failed to enumerate kiosk %s", kiosk.ID)
		}
		for _, info := range fields.Data {
			if !MatchType(info.Name.Type, listingType) {
				continue
			}
			var key struct {
				ID          string `json:"id"`
				IsExclusive bool   `json:"is_exclusive"`
			}
			if err := json.Unmarshal(info.Name.Value, &key); err != nil || key.ID == "" {
				r.logger.Warn("skipping malformed listing key", zap.String("kioskId", kiosk.ID), zap.ByteString("name", info.Name.Value))
				continue
			}
			raw, err := r.ledger.GetDynamicFieldObject(ctx, kiosk.ID, info.Name)
			if err != nil {
				if ledger.IsNotFound(err) {
					continue
				}
				return nil, utils.WrapError(utils.KindUnavailable, err, "failed to read listing for %s", key.ID)
			}
			listing, err := parseListingField(raw, key.ID, key.IsExclusive)
			if err != nil {
				return nil, utils.WrapError(utils.KindValidation, err, "listing for %s could not be interpreted", key.ID)
			}
			listings = append(listings, *listing)
		}
		if !fields.HasNextPage || fields.NextCursor == nil {
			return listings, nil
		}
		cursor = fields.NextCursor
	}
	r.logger.Warn("kiosk listing enumeration truncated", zap.String("kioskId", kiosk.ID), zap.Int("pages", maxListingPages))
	return listings, nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(errors.New("marketplace: unencodable dynamic field name"))
	}
	return b
}
