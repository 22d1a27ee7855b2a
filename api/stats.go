package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) statsHandler(c *gin.Context) {
	stats, err := a.cr.ComputeStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to compute stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
