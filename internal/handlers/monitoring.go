package handlers

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hobbyshelf/internal/monitoring"
)

var monitoringService = monitoring.NewService(time.Now())

// checkMonitoringToken gates the operator endpoints. When
// MONITORING_TOKEN is unset the endpoints are disabled entirely.
func checkMonitoringToken(c *gin.Context) bool {
	expected := strings.TrimSpace(os.Getenv("MONITORING_TOKEN"))
	if expected == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return false
	}

	provided := strings.TrimSpace(c.Query("token"))
	if provided == "" {
		provided = strings.TrimSpace(c.GetHeader("X-Monitoring-Token"))
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid monitoring token"})
		return false
	}
	return true
}

// MonitoringStatus reports server health as plain text.
func MonitoringStatus(c *gin.Context) {
	if !checkMonitoringToken(c) {
		return
	}
	c.String(http.StatusOK, monitoringService.StatusText())
}

// MonitoringStorage reports database and uploads-dir usage as plain text.
func MonitoringStorage(c *gin.Context) {
	if !checkMonitoringToken(c) {
		return
	}
	c.String(http.StatusOK, monitoringService.StorageText())
}

// MonitoringUsers reports entity totals as plain text.
func MonitoringUsers(c *gin.Context) {
	if !checkMonitoringToken(c) {
		return
	}
	c.String(http.StatusOK, monitoringService.UsersText())
}

// MonitoringSnapshot reports the full metrics snapshot as JSON.
func MonitoringSnapshot(c *gin.Context) {
	if !checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, monitoringService.Snapshot())
}
