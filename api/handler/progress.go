package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pdpscrape/engine"
)

// Progress returns a handler for GET /api/v1/progress.
func Progress(p *engine.Progress) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Snapshot())
	}
}
