package handlers

import (
	"net/http"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/gin-gonic/gin"
)

// HealthResponse reports service and dependency health
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports service health and Redis connectivity
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Redis: "ok"}

	if config.Redis == nil {
		resp.Status = "degraded"
		resp.Redis = "not initialized"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	if err := config.Redis.Ping(c.Request.Context()).Err(); err != nil {
		resp.Status = "degraded"
		resp.Redis = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}
