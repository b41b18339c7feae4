package api

import (
	"context"
	"errors"
	"net/netip"

	"github.com/gin-gonic/gin"
	"github.com/talonbgp/talon/pkg/neighbors"
	"github.com/talonbgp/talon/pkg/peerindex"
	"github.com/talonbgp/talon/pkg/sessions"
	"go.uber.org/multierr"
)

// NeighborController is a controller for managing the runtime neighbor set
type NeighborController struct {
	// appCtx outlives any single request, dials started from here must
	// not die with the request that triggered them
	appCtx   context.Context
	storage  neighbors.Storage
	manager  *sessions.Manager
	index    *peerindex.Index
	settings Settings
}

// NeighborListItem is a struct for the neighbors list
type NeighborListItem struct {
	ID                uint32 `json:"id"`
	Address           string `json:"address"`
	ASN               uint32 `json:"asn"`
	Description       string `json:"description,omitempty"`
	Passive           bool   `json:"passive"`
	Enabled           bool   `json:"enabled"`
	HasSession        bool   `json:"hasSession"`
	PendingConnection bool   `json:"pendingConnection"`
}

func (n *NeighborController) registerRoutes(r *gin.Engine) {
	r.GET("/api/neighbors/v1", func(c *gin.Context) {
		items := []NeighborListItem{}
		for _, view := range n.index.Entries() {
			items = append(items, NeighborListItem{
				ID:                uint32(view.ID),
				Address:           view.Addr.String(),
				ASN:               view.Peer.ASN,
				Description:       view.Peer.Description,
				Passive:           view.Peer.Passive,
				Enabled:           view.Enabled,
				HasSession:        view.HasSession,
				PendingConnection: view.HasPending,
			})
		}
		c.JSON(200, items)
	})

	protected := r.Group("/api/neighbors")
	protected.Use(RequireBasicAuth(n.settings))

	protected.POST("/v1", func(c *gin.Context) {
		var neighbor neighbors.Neighbor
		if bindErr := c.ShouldBindJSON(&neighbor); bindErr != nil {
			c.JSON(400, gin.H{"error": bindErr.Error()})
			return
		}
		peer, peerErr := neighbor.Peer()
		if peerErr != nil {
			c.JSON(400, gin.H{"error": peerErr.Error()})
			return
		}
		id, addErr := n.manager.AddPeer(n.appCtx, peer)
		if addErr != nil {
			c.JSON(statusForIndexError(addErr), gin.H{"error": addErr.Error()})
			return
		}
		if storeErr := n.storage.Store(neighbor); storeErr != nil {
			// roll the registration back, a retried request must not
			// run into a conflict with the half-added peer
			if removeErr := n.manager.RemovePeer(peer.Address); removeErr != nil {
				storeErr = multierr.Append(storeErr, removeErr)
			}
			c.JSON(500, gin.H{"error": storeErr.Error()})
			return
		}
		c.JSON(201, gin.H{"id": uint32(id)})
	})

	protected.DELETE("/v1/:address", func(c *gin.Context) {
		addr, parseErr := netip.ParseAddr(c.Param("address"))
		if parseErr != nil {
			c.JSON(400, gin.H{"error": parseErr.Error()})
			return
		}
		if removeErr := n.manager.RemovePeer(addr); removeErr != nil {
			c.JSON(statusForIndexError(removeErr), gin.H{"error": removeErr.Error()})
			return
		}
		if deleteErr := n.storage.DeleteByAddress(c.Param("address")); deleteErr != nil {
			c.JSON(500, gin.H{"error": deleteErr.Error()})
			return
		}
		c.JSON(204, nil)
	})

	protected.PUT("/v1/:address/enabled", func(c *gin.Context) {
		addr, parseErr := netip.ParseAddr(c.Param("address"))
		if parseErr != nil {
			c.JSON(400, gin.H{"error": parseErr.Error()})
			return
		}
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if bindErr := c.ShouldBindJSON(&body); bindErr != nil {
			c.JSON(400, gin.H{"error": bindErr.Error()})
			return
		}
		if enableErr := n.manager.SetEnabled(n.appCtx, addr, body.Enabled); enableErr != nil {
			c.JSON(statusForIndexError(enableErr), gin.H{"error": enableErr.Error()})
			return
		}
		c.JSON(200, gin.H{"enabled": body.Enabled})
	})
}

func statusForIndexError(err error) int {
	switch {
	case errors.Is(err, peerindex.ErrNotFound):
		return 404
	case errors.Is(err, peerindex.ErrAddressBound), errors.Is(err, peerindex.ErrPeerRegistered):
		return 409
	case errors.Is(err, peerindex.ErrIndexFull):
		return 503
	}
	return 500
}

// NewNeighborController allows querying and manipulation of the configured neighbors
func NewNeighborController(
	appCtx context.Context,
	storage neighbors.Storage,
	manager *sessions.Manager,
	index *peerindex.Index,
	settings Settings,
) Controller {
	return &NeighborController{
		appCtx:   appCtx,
		storage:  storage,
		manager:  manager,
		index:    index,
		settings: settings,
	}
}
