package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealradar/price-tracker/internal/ledger"
)

type TrackingHandler struct {
	ledger *ledger.Ledger
}

func NewTrackingHandler(lg *ledger.Ledger) *TrackingHandler {
	return &TrackingHandler{ledger: lg}
}

// GetPriceHistory returns a product's price history ascending by
// observation time. The optional period query narrows the window:
// 7d, 30d, 90d, or all (default).
func (h *TrackingHandler) GetPriceHistory(c *gin.Context) {
	productID := c.Param("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id is required"})
		return
	}

	var since time.Time
	switch c.Query("period") {
	case "7d":
		since = time.Now().AddDate(0, 0, -7)
	case "30d":
		since = time.Now().AddDate(0, 0, -30)
	case "90d":
		since = time.Now().AddDate(0, 0, -90)
	case "", "all":
		// full history
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of 7d, 30d, 90d, all"})
		return
	}

	entries, err := h.ledger.History(productID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}
