package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
