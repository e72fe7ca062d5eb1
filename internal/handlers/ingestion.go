package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/services"
)

type IngestionHandler struct {
	log              *logger.Logger
	ingestionService *services.IngestionService
}

func NewIngestionHandler(log *logger.Logger, ingestionService *services.IngestionService) *IngestionHandler {
	return &IngestionHandler{
		log:              log.With("handler", "IngestionHandler"),
		ingestionService: ingestionService,
	}
}

type ingestDocumentRequest struct {
	OrgID       int                    `json:"orgId" binding:"required"`
	ConnectorID int                    `json:"connectorId" binding:"required"`
	DocumentID  string                 `json:"documentId" binding:"required"`
	Title       string                 `json:"title"`
	Description *string                `json:"description"`
	Language    *string                `json:"language"`
	Content     string                 `json:"content"`
	Tags        map[string][]string    `json:"tags"`
	Data        map[string]interface{} `json:"data"`
}

// POST /api/v1/semantic-search/documents
func (h *IngestionHandler) IngestDocument(c *gin.Context) {
	var req ingestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, "invalid request body")
		return
	}

	doc, err := h.ingestionService.IngestDocument(c.Request.Context(), services.IngestDocumentInput{
		OrgID:       req.OrgID,
		ConnectorID: req.ConnectorID,
		DocumentID:  req.DocumentID,
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		Content:     req.Content,
		Tags:        req.Tags,
		Data:        req.Data,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	if doc == nil {
		c.Status(http.StatusNoContent)
		return
	}
	RespondOK(c, doc)
}

// DELETE /api/v1/semantic-search/documents/:documentId
func (h *IngestionHandler) DeleteDocument(c *gin.Context) {
	orgID, ok := requireIntQuery(c, "orgId")
	if !ok {
		return
	}
	if err := h.ingestionService.DeleteDocument(c.Request.Context(), c.Param("documentId"), orgID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, true)
}

// DELETE /api/v1/semantic-search/sources/:sourceId/documents
func (h *IngestionHandler) DeleteSourceDocuments(c *gin.Context) {
	orgID, ok := requireIntQuery(c, "orgId")
	if !ok {
		return
	}
	if err := h.ingestionService.DeleteDocumentsBySource(c.Request.Context(), c.Param("sourceId"), orgID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, true)
}
