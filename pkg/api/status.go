package api

import (
	"github.com/gin-gonic/gin"
	"github.com/talonbgp/talon/pkg/grtn"
	"github.com/talonbgp/talon/pkg/monitor"
	"github.com/talonbgp/talon/pkg/peerindex"
)

type statusController struct {
	index *peerindex.Index
	hub   *monitor.Hub
}

func (sc *statusController) registerRoutes(r *gin.Engine) {
	r.GET("/api/status/v1", func(c *gin.Context) {
		stats := sc.index.Stats()
		payload := gin.H{
			"peers":              stats.Peers,
			"capacity":           stats.Capacity,
			"freeIds":            stats.FreeIDs,
			"pendingConnections": stats.Pending,
			"deposits":           stats.Deposits,
			"claims":             stats.Claims,
			"replaced":           stats.Replaced,
			"discarded":          stats.Discarded,
			"conflicts":          stats.Conflicts,
			"goroutines":         grtn.Count(),
		}
		if sc.hub != nil {
			hubStats := sc.hub.Stats()
			payload["logMonitors"] = hubStats.Clients
			payload["logMonitorDrops"] = hubStats.Drops
		}
		c.JSON(200, payload)
	})
}

// NewStatusController bootstraps creation of the API that exposes the index counters
func NewStatusController(index *peerindex.Index, hub *monitor.Hub) Controller {
	return &statusController{index: index, hub: hub}
}
