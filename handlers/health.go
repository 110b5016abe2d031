// File: handlers/health.go
package handlers

import (
	"net/http"

	"slotwise/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest stored health snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	httpStatus := http.StatusOK
	if !status.Mongo || !status.Redis {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, status)
}
