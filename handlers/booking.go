package handlers

import (
	"net/http"

	"veilslot/middleware"
	"veilslot/models"
	"veilslot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeader lets a client retry a booking without booking twice.
const IdempotencyHeader = "Idempotency-Key"

// BookSlotHandler books the requested slot for the authenticated caller.
func (h *HandlerBundle) BookSlotHandler(c *gin.Context) {
	caller := middleware.Caller(c)
	if caller == "" {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Caller not authenticated"})
		return
	}

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapError(utils.KindValidation, err, "Invalid request payload"))
		return
	}
	req.BuyerID = caller

	view, replayed, err := h.Booking.BookSlotOnce(c.Request.Context(), c.GetHeader(IdempotencyHeader), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
		c.Header("Idempotent-Replayed", "true")
	}
	h.logger().Info("booking created",
		zap.String("bookingId", view.BookingID), zap.String("slotId", view.SlotID), zap.Bool("replayed", replayed))
	c.JSON(status, view)
}

// GetBookingHandler returns one of the caller's bookings.
func (h *HandlerBundle) GetBookingHandler(c *gin.Context) {
	caller := middleware.Caller(c)
	b, err := h.Booking.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	// Other buyers' bookings are reported as missing.
	if b.BuyerID != caller {
		utils.RespondError(c, utils.NewError(utils.KindNotFound, "booking not found"))
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListMyBookingsHandler returns the caller's bookings.
func (h *HandlerBundle) ListMyBookingsHandler(c *gin.Context) {
	list, err := h.Booking.ListBuyerBookings(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list, "count": len(list)})
}
