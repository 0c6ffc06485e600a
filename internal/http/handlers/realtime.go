package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/events
// Job and plan notifications for the caller arrive on their user channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	sub := h.hub.Subscribe(userID, userID.String())
	defer sub.Close()

	h.log.Debug("SSE stream open", "user_id", userID, "subscription_id", sub.ID)
	c.Status(http.StatusOK)
	if err := h.hub.Stream(c.Request.Context(), c.Writer, sub); err != nil {
		h.log.Debug("SSE stream ended", "subscription_id", sub.ID, "error", err)
	}
}
