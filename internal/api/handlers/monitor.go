package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealradar/price-tracker/internal/monitor"
)

type MonitorHandler struct {
	monitor *monitor.Monitor
}

func NewMonitorHandler(m *monitor.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: m}
}

// GetStatus returns the monitor's current status and the last cycle report.
func (h *MonitorHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

// RunCycle triggers a full price update cycle on demand. Responds 409 when a
// cycle is already in flight.
func (h *MonitorHandler) RunCycle(c *gin.Context) {
	report, err := h.monitor.RunNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// RefreshProduct refreshes a single product's price on demand.
func (h *MonitorHandler) RefreshProduct(c *gin.Context) {
	productID := c.Param("id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id is required"})
		return
	}

	product, err := h.monitor.RefreshProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}
