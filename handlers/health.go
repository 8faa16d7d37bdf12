package handlers

import (
	"net/http"

	"veilslot/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": statusWord(status), "services": status.Services, "checkedAt": status.CheckedAt})
}

func statusWord(s utils.HealthStatus) string {
	if s.Healthy() {
		return "ok"
	}
	return "degraded"
}
