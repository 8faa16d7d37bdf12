package marketplace

import (
	"context"
	"time"

	"veilslot/config"
	"veilslot/services/ledger"
	"veilslot/utils"

	"go.uber.org/zap"
)

// MarketplaceService lists and purchases proof tokens through kiosks.
type MarketplaceService interface {
	List(ctx context.Context, req ListRequest) (*Receipt, error)
	Purchase(ctx context.Context, req PurchaseRequest) (*Receipt, error)
	SimulateList(ctx context.Context, req ListRequest) (*Simulation, error)
	SimulatePurchase(ctx context.Context, req PurchaseRequest) (*Simulation, error)
	Listings(ctx context.Context, kioskID string) ([]Listing, error)
}

// DefaultMarketplaceService implements MarketplaceService.
type DefaultMarketplaceService struct {
	Builder  *Builder
	Resolver *Resolver
	Timeout  time.Duration
	Logger   *zap.Logger
}

var _ MarketplaceService = (*DefaultMarketplaceService)(nil)

// NewMarketplaceService wires a resolver and builder over one ledger client.
func NewMarketplaceService(client ledger.Client, chain config.ChainConfig, logger *zap.Logger) (*DefaultMarketplaceService, error) {
	resolver, err := NewResolver(client, chain, logger)
	if err != nil {
		return nil, err
	}
	return &DefaultMarketplaceService{
		Builder:  NewBuilder(resolver, client, chain, logger),
		Resolver: resolver,
		Timeout:  chain.Timeout,
		Logger:   logger,
	}, nil
}

func (s *DefaultMarketplaceService) List(ctx context.Context, req ListRequest) (*Receipt, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.Builder.BuildList(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Builder.Execute(ctx, tx)
}

func (s *DefaultMarketplaceService) Purchase(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.Builder.BuildPurchase(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Builder.Execute(ctx, tx)
}

func (s *DefaultMarketplaceService) SimulateList(ctx context.Context, req ListRequest) (*Simulation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.Builder.BuildList(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Builder.Simulate(ctx, tx)
}

func (s *DefaultMarketplaceService) SimulatePurchase(ctx context.Context, req PurchaseRequest) (*Simulation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.Builder.BuildPurchase(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Builder.Simulate(ctx, tx)
}

func (s *DefaultMarketplaceService) Listings(ctx context.Context, kioskID string) ([]Listing, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if kioskID == "" {
		return nil, utils.NewError(utils.KindValidation, "missing required fields: kioskId")
	}
	return s.Resolver.Listings(ctx, kioskID)
}

func (s *DefaultMarketplaceService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}
