package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/staylong/rental-backend/internal/utils"
)

// PresenceHandler handles the storefront visitor counter
type PresenceHandler struct {
	presence *services.PresenceStore
	logger   *logrus.Logger
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(presence *services.PresenceStore, logger *logrus.Logger) *PresenceHandler {
	return &PresenceHandler{presence: presence, logger: logger}
}

// GetPresence handles GET /api/v1/presence
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	c.JSON(http.StatusOK, h.presence.Snapshot())
}

// UpdatePresence handles POST /api/v1/presence (join, heartbeat, leave)
func (h *PresenceHandler) UpdatePresence(c *gin.Context) {
	var req models.PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	client := utils.ParseClient(utils.GetUserAgent(c))
	if client.IsBot {
		// Crawlers are not visitors
		c.JSON(http.StatusOK, gin.H{"ignored": true, "presence": h.presence.Snapshot()})
		return
	}

	switch req.Action {
	case "join":
		session := h.presence.Join(req.RoomSlug, req.RoomName, req.SessionID, client.Mobile())
		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"presence":   h.presence.Snapshot(),
		})

	case "heartbeat":
		// active=false tells the client to join again
		active := h.presence.Heartbeat(req.SessionID)
		c.JSON(http.StatusOK, gin.H{
			"active":   active,
			"presence": h.presence.Snapshot(),
		})

	case "leave":
		h.presence.Leave(req.SessionID)
		c.JSON(http.StatusOK, gin.H{"presence": h.presence.Snapshot()})
	}
}
