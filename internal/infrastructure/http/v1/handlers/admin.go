package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminHandler serves operator-only diagnostics.
type AdminHandler struct {
	pool *pgxpool.Pool
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(pool *pgxpool.Pool) *AdminHandler {
	return &AdminHandler{pool: pool}
}

// DBStats handles GET /admin/db-stats
func (h *AdminHandler) DBStats(c *gin.Context) {
	if h.pool == nil {
		c.JSON(http.StatusOK, gin.H{"status": "no pool"})
		return
	}
	stat := h.pool.Stat()
	c.JSON(http.StatusOK, gin.H{
		"totalConns":        stat.TotalConns(),
		"acquiredConns":     stat.AcquiredConns(),
		"idleConns":         stat.IdleConns(),
		"maxConns":          stat.MaxConns(),
		"newConnsCount":     stat.NewConnsCount(),
		"acquireCount":      stat.AcquireCount(),
		"emptyAcquireCount": stat.EmptyAcquireCount(),
	})
}
