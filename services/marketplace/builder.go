package marketplace

import (
	"context"
	"strings"
	"time"

	"veilslot/config"
	"veilslot/services/ledger"
	"veilslot/utils"

	"go.uber.org/zap"
)

// ListRequest places (if needed) and lists a token in the caller's kiosk.
type ListRequest struct {
	Caller  string `json:"-"`
	KioskID string `json:"kioskId" binding:"required"`
	CapID   string `json:"capId" binding:"required"`
	TokenID string `json:"tokenId" binding:"required"`
	Price   string `json:"price" binding:"required"`
}

// PurchaseRequest buys a listed token out of a kiosk.
type PurchaseRequest struct {
	Caller  string `json:"-"`
	KioskID string `json:"kioskId" binding:"required"`
	TokenID string `json:"tokenId" binding:"required"`
	Payment string `json:"payment" binding:"required"`
}

// Receipt is the outcome of a submitted transaction.
type Receipt struct {
	Digest  string   `json:"digest"`
	Created []string `json:"created"`
	Mutated []string `json:"mutated"`
	GasUsed uint64   `json:"gasUsed"`
}

// Simulation is the outcome of a dry run.
type Simulation struct {
	Status      string              `json:"status"`
	GasUsed     uint64              `json:"gasUsed"`
	Transaction *ledger.Transaction `json:"transaction"`
}

// Builder validates marketplace requests and turns them into transactions.
type Builder struct {
	resolver *Resolver
	ledger   ledger.Client
	chain    config.ChainConfig
	logger   *zap.Logger
}

func NewBuilder(resolver *Resolver, client ledger.Client, chain config.ChainConfig, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chain.KioskPackageID == "" {
		chain.KioskPackageID = "0x2"
	}
	return &Builder{resolver: resolver, ledger: client, chain: chain, logger: logger}
}

func (b *Builder) target(module, function string) string {
	return b.chain.KioskPackageID + "::" + module + "::" + function
}

// BuildList checks the cap binds to the kiosk and the caller can list the
// token, then emits place_and_list (token held by caller) or list (token
// already in the kiosk).
func (b *Builder) BuildList(ctx context.Context, req ListRequest) (*ledger.Transaction, error) {
	if err := requireFields(map[string]string{
		"caller": req.Caller, "kioskId": req.KioskID, "capId": req.CapID, "tokenId": req.TokenID,
	}); err != nil {
		return nil, err
	}
	price, err := utils.PositivePrice(req.Price)
	if err != nil {
		return nil, utils.WrapError(utils.KindValidation, err, "invalid listing price %q", req.Price)
	}

	kiosk, err := b.resolver.ResolveKiosk(ctx, req.KioskID)
	if err != nil {
		return nil, err
	}
	kcap, err := b.resolver.ResolveCap(ctx, req.CapID, kiosk.ID, req.Caller)
	if err != nil {
		return nil, err
	}
	token, err := b.resolver.ResolveToken(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	placed := false
	switch {
	case token.Owner.Kind == ledger.OwnerAddress && ledger.SameAddress(token.Owner.Address, req.Caller):
	case token.Owner.Kind == ledger.OwnerObject:
		placed, err = b.resolver.HasItem(ctx, kiosk.ID, token.ID)
		if err != nil {
			return nil, err
		}
		if !placed {
			return nil, utils.NewError(utils.KindValidation, "token %s is not held by the caller or kiosk %s", token.ID, kiosk.ID)
		}
	default:
		return nil, utils.NewError(utils.KindValidation, "token %s is not held by the caller", token.ID)
	}

	if placed {
		existing, err := b.resolver.FindListing(ctx, kiosk.ID, token.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, utils.NewError(utils.KindConflict, "token %s is already listed at %s", token.ID, utils.FormatPrice(existing.Price))
		}
	}

	itemType := CanonicalType(token.Type)
	tx := ledger.NewTransaction(req.Caller, b.chain.GasBudget)
	kioskArg := tx.Shared(kiosk.ID, kiosk.InitialSharedVersion, true)
	capArg := tx.Owned(kcap.Ref())
	if placed {
		tx.MoveCall(b.target("kiosk", "list"), []string{itemType},
			kioskArg, capArg, tx.Pure("0x2::object::ID", token.ID), tx.Pure("u64", price))
	} else {
		tx.MoveCall(b.target("kiosk", "place_and_list"), []string{itemType},
			kioskArg, capArg, tx.Owned(token.Ref()), tx.Pure("u64", price))
	}

	b.logger.Debug("built listing",
		zap.String("kioskId", kiosk.ID), zap.String("tokenId", token.ID),
		zap.Bool("alreadyPlaced", placed), zap.Uint64("price", price))
	return tx, nil
}

// BuildPurchase checks the payment equals the listing price and emits
// split -> purchase -> confirm_request -> transfer to caller.
func (b *Builder) BuildPurchase(ctx context.Context, req PurchaseRequest) (*ledger.Transaction, error) {
	if err := requireFields(map[string]string{
		"caller": req.Caller, "kioskId": req.KioskID, "tokenId": req.TokenID,
	}); err != nil {
		return nil, err
	}
	payment, err := utils.PositivePrice(req.Payment)
	if err != nil {
		return nil, utils.WrapError(utils.KindValidation, err, "invalid payment %q", req.Payment)
	}
	if b.chain.TransferPolicyID == "" {
		return nil, utils.NewError(utils.KindDependencyMissing, "no transfer policy configured")
	}

	kiosk, err := b.resolver.ResolveKiosk(ctx, req.KioskID)
	if err != nil {
		return nil, err
	}
	token, err := b.resolver.ResolveToken(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}
	listing, err := b.resolver.FindListing(ctx, kiosk.ID, token.ID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, utils.NewError(utils.KindValidation, "item not listed: %s", token.ID)
	}
	if listing.Exclusive {
		return nil, utils.NewError(utils.KindValidation, "item %s is listed exclusively", token.ID)
	}
	if payment != listing.Price {
		return nil, utils.NewError(utils.KindValidation, "payment does not match listing price: expected %s, got %s",
			utils.FormatPrice(listing.Price), utils.FormatPrice(payment))
	}

	itemType := CanonicalType(token.Type)
	policy, err := b.resolver.ResolvePolicy(ctx, b.chain.TransferPolicyID, itemType)
	if err != nil {
		return nil, err
	}

	tx := ledger.NewTransaction(req.Caller, b.chain.GasBudget)
	coin := tx.SplitCoins(ledger.GasCoin(), tx.Pure("u64", listing.Price))
	purchased := tx.MoveCall(b.target("kiosk", "purchase"), []string{itemType},
		tx.Shared(kiosk.ID, kiosk.InitialSharedVersion, true),
		tx.Pure("0x2::object::ID", token.ID),
		ledger.NestedResult(coin, 0))
	item := ledger.NestedResult(purchased, 0)
	request := ledger.NestedResult(purchased, 1)
	tx.MoveCall(b.target("transfer_policy", "confirm_request"), []string{itemType},
		tx.Shared(policy.ID, policy.InitialSharedVersion, false), request)
	tx.TransferObjects([]ledger.Argument{item}, tx.Pure("address", req.Caller))

	b.logger.Debug("built purchase",
		zap.String("kioskId", kiosk.ID), zap.String("tokenId", token.ID), zap.Uint64("price", listing.Price))
	return tx, nil
}

// Simulate dry-runs tx. Any failure is a simulation failure.
func (b *Builder) Simulate(ctx context.Context, tx *ledger.Transaction) (*Simulation, error) {
	effects, err := b.ledger.DryRun(ctx, tx)
	if err != nil {
		return nil, utils.WrapError(utils.KindSimulation, err, "dry run failed")
	}
	if !effects.Status.Success() {
		return nil, utils.NewError(utils.KindSimulation, "dry run aborted: %s", effects.Status.Error)
	}
	return &Simulation{Status: effects.Status.Status, GasUsed: effects.GasUsed.Net(), Transaction: tx}, nil
}

// Execute dry-runs tx and submits it only if the dry run succeeds. Once
// submitted, the caller's cancellation no longer applies: the submission
// runs until the signer answers or the ledger timeout expires.
func (b *Builder) Execute(ctx context.Context, tx *ledger.Transaction) (*Receipt, error) {
	if _, err := b.Simulate(ctx, tx); err != nil {
		b.logger.Warn("transaction rejected by simulation", zap.String("sender", tx.Sender), zap.Error(err))
		return nil, err
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.submitTimeout())
	defer cancel()
	result, err := b.ledger.SignAndSubmit(submitCtx, tx)
	if err != nil {
		b.logger.Error("transaction submission failed", zap.String("sender", tx.Sender), zap.Error(err))
		return nil, utils.WrapError(utils.KindSubmission, err, "submission failed")
	}
	if !result.Effects.Status.Success() {
		b.logger.Error("transaction aborted on chain",
			zap.String("digest", result.Digest), zap.String("reason", result.Effects.Status.Error))
		return nil, utils.NewError(utils.KindSubmission, "transaction %s aborted: %s", result.Digest, result.Effects.Status.Error)
	}

	receipt := &Receipt{
		Digest:  result.Digest,
		Created: objectIDs(result.Effects.Created),
		Mutated: objectIDs(result.Effects.Mutated),
		GasUsed: result.Effects.GasUsed.Net(),
	}
	b.logger.Info("transaction executed", zap.String("digest", receipt.Digest), zap.Uint64("gasUsed", receipt.GasUsed))
	return receipt, nil
}

func (b *Builder) submitTimeout() time.Duration {
	if b.chain.Timeout > 0 {
		return b.chain.Timeout
	}
	return 30 * time.Second
}

func objectIDs(changed []ledger.ChangedObject) []string {
	ids := make([]string, 0, len(changed))
	for _, c := range changed {
		ids = append(ids, c.Reference.ObjectID)
	}
	return ids
}

func requireFields(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"caller", "kioskId", "capId", "tokenId"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return utils.NewError(utils.KindValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
