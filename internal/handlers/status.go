package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hobbyshelf/internal/database"
)

func HealthCheck(c *gin.Context) {
	if err := database.DB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Hobbyshelf API",
		"version": "0.1.0",
		"status":  "operational",
	})
}
