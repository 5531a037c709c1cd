package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poll-service/internal/realtime"
	"poll-service/internal/response"
)

type PresenceHandler struct {
	tracker *realtime.Tracker
}

func NewPresenceHandler(tracker *realtime.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// GetOnlineUsers godoc
// @Summary      Current online users
// @Description  Users seen within the grace window, with resolved names
// @Tags         presence
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /presence [get]
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	response.SendSuccess(c, http.StatusOK, gin.H{
		"users":     h.tracker.OnlineUsers(),
		"count":     h.tracker.OnlineCount(),
		"connected": h.tracker.IsConnected(),
		"error":     h.tracker.ConnectionError(),
	})
}

// RefreshUsernames godoc
// @Summary      Re-resolve online user display names
// @Tags         presence
// @Success      200 {object} map[string]bool
// @Router       /presence/refresh [post]
func (h *PresenceHandler) RefreshUsernames(c *gin.Context) {
	h.tracker.RefreshUsernames()
	response.SendSuccess(c, http.StatusOK, gin.H{"refreshed": true})
}
