package handlers

import (
	"net/http"
	"strconv"

	"veilslot/middleware"
	"veilslot/services/marketplace"
	"veilslot/utils"

	"github.com/gin-gonic/gin"
)

func dryRun(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("dryRun"))
	return v
}

// CreateListingHandler lists a proof token in the caller's kiosk. With
// ?dryRun=true the transaction is only simulated.
func (h *HandlerBundle) CreateListingHandler(c *gin.Context) {
	var req marketplace.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapError(utils.KindValidation, err, "Invalid request payload"))
		return
	}
	req.Caller = middleware.Caller(c)

	if dryRun(c) {
		sim, err := h.Marketplace.SimulateList(c.Request.Context(), req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sim)
		return
	}

	receipt, err := h.Marketplace.List(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// CreatePurchaseHandler buys a listed proof token for the caller.
func (h *HandlerBundle) CreatePurchaseHandler(c *gin.Context) {
	var req marketplace.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapError(utils.KindValidation, err, "Invalid request payload"))
		return
	}
	req.Caller = middleware.Caller(c)

	if dryRun(c) {
		sim, err := h.Marketplace.SimulatePurchase(c.Request.Context(), req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sim)
		return
	}

	receipt, err := h.Marketplace.Purchase(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

type listingView struct {
	ItemID     string `json:"itemId"`
	Price      string `json:"price"`
	PriceUnits uint64 `json:"priceUnits"`
	Exclusive  bool   `json:"exclusive"`
}

// ListKioskListingsHandler returns every item currently listed in a kiosk.
func (h *HandlerBundle) ListKioskListingsHandler(c *gin.Context) {
	kioskID := c.Param("id")
	listings, err := h.Marketplace.Listings(c.Request.Context(), kioskID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	views := make([]listingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, listingView{
			ItemID:     l.ItemID,
			Price:      utils.FormatPrice(l.Price),
			PriceUnits: l.Price,
			Exclusive:  l.Exclusive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"kioskId": kioskID, "listings": views, "count": len(views)})
}
