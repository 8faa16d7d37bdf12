package handlers

import (
	"veilslot/services/booking"
	"veilslot/services/marketplace"

	"go.uber.org/zap"
)

// HandlerBundle groups the services the HTTP endpoints call into.
type HandlerBundle struct {
	Booking     booking.BookingService
	Marketplace marketplace.MarketplaceService
	Logger      *zap.Logger
}

func (h *HandlerBundle) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
