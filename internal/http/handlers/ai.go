package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/http/response"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/services"
)

type AIHandler struct {
	log  *logger.Logger
	docs services.DocumentService
}

func NewAIHandler(log *logger.Logger, docs services.DocumentService) *AIHandler {
	return &AIHandler{log: log.With("handler", "AIHandler"), docs: docs}
}

type indexRequest struct {
	ID    *uuid.UUID `json:"id"`
	Title string     `json:"title"`
	Text  string     `json:"text" binding:"required"`
}

// POST /api/ai/index
func (h *AIHandler) Index(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	doc, n, err := h.docs.IndexText(c.Request.Context(), req.ID, req.Title, req.Text)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": doc.ID, "title": doc.Title, "chunks": n})
}

type searchHit struct {
	Text       string    `json:"text"`
	Score      float64   `json:"score"`
	DocumentID uuid.UUID `json:"document_id"`
}

// GET /api/ai/search?q=&k=5
func (h *AIHandler) Search(c *gin.Context) {
	k := 5
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_k", fmt.Errorf("k must be a positive integer"))
			return
		}
		k = n
	}
	hits, err := h.docs.Search(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		out = append(out, searchHit{Text: hit.Text, Score: hit.Score, DocumentID: hit.DocumentID})
	}
	response.RespondOK(c, gin.H{"results": out})
}

// GET /api/ai/documents
func (h *AIHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docs.ListForRequestUser(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}
