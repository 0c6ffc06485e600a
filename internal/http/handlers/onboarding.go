package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/http/response"
	"github.com/yungbote/studyplan-backend/internal/onboarding"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

// ChatService is the onboarding conversation. *onboarding.Service implements it.
type ChatService interface {
	Chat(ctx context.Context, userID uuid.UUID, turns []onboarding.Turn) (*onboarding.ChatResult, error)
	Stream(ctx context.Context, userID uuid.UUID, sessionID string, turns []onboarding.Turn, sink onboarding.Sink) error
}

type OnboardingHandler struct {
	log  *logger.Logger
	chat ChatService
}

func NewOnboardingHandler(log *logger.Logger, chat ChatService) *OnboardingHandler {
	return &OnboardingHandler{log: log.With("handler", "OnboardingHandler"), chat: chat}
}

type chatRequest struct {
	Messages []onboarding.Turn `json:"messages"`
	Stream   bool              `json:"stream"`
}

func (h *OnboardingHandler) bind(c *gin.Context) (*chatRequest, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return nil, false
	}
	if len(req.Messages) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("messages is required"))
		return nil, false
	}
	for i, m := range req.Messages {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("messages[%d]: invalid role %q", i, m.Role))
			return nil, false
		}
		if strings.TrimSpace(m.Content) == "" {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("messages[%d]: content is required", i))
			return nil, false
		}
	}
	return &req, true
}

// POST /api/ai/chat
func (h *OnboardingHandler) Chat(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	if req.Stream {
		h.stream(c, userID, req.Messages)
		return
	}
	res, err := h.chat.Chat(c.Request.Context(), userID, req.Messages)
	if err != nil {
		var ve *onboarding.ValidationError
		switch {
		case errors.As(err, &ve):
			response.RespondFields(c, "invalid_user_context", err, ve.Fields)
		case errors.Is(err, onboarding.ErrTooManyToolRounds):
			response.RespondError(c, http.StatusBadGateway, "tool_round_limit", err)
		default:
			_ = c.Error(err)
			h.log.WithContext(c.Request.Context()).Error("chat failed", "error", err)
			response.RespondError(c, http.StatusBadGateway, "ai_unavailable", fmt.Errorf("assistant unavailable"))
		}
		return
	}
	response.RespondOK(c, res)
}

// POST /api/ai/chat/stream
func (h *OnboardingHandler) ChatStream(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	h.stream(c, userID, req.Messages)
}

func (h *OnboardingHandler) stream(c *gin.Context, userID uuid.UUID, turns []onboarding.Turn) {
	sw, err := realtime.NewWriter(c.Writer)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", err)
		return
	}
	c.Status(http.StatusOK)
	sessionID := uuid.NewString()
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.SessionID != "" {
		sessionID = rd.SessionID + ":" + sessionID[:8]
	}
	ctx := c.Request.Context()
	if err := h.chat.Stream(ctx, userID, sessionID, turns, sw); err != nil && !errors.Is(err, context.Canceled) {
		h.log.WithContext(ctx).Warn("chat stream ended early", "session_id", sessionID, "error", err)
	}
}
