// Package api contains administrative APIs used for querying and manipulation of neighbors
package api

import (
	"github.com/gin-gonic/gin"
)

// Controller contains a set of functionalities for the API
type Controller interface {
	registerRoutes(r *gin.Engine)
}

// Settings carries the credentials protecting the mutating routes. An
// empty username leaves basic auth unconfigured, which makes protected
// routes refuse to work rather than run open.
type Settings struct {
	BasicAuthUsername string
	BasicAuthPassword string
}

func (s Settings) basicAuthEnabled() bool {
	return s.BasicAuthUsername != ""
}

// NewAdminAPI bootstraps the creation of the gin engine
func NewAdminAPI(controllers []Controller) *gin.Engine {
	r := gin.Default()
	for _, controller := range controllers {
		controller.registerRoutes(r)
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Routers gossip about the whole internet over a single TCP connection on port 179." +
				" This daemon keeps track of who is allowed to join the gossip.",
		})
	})
	return r
}
