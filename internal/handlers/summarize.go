package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/services"
)

type SummarizeHandler struct {
	log              *logger.Logger
	summarizeService *services.SummarizeAnswerService
}

func NewSummarizeHandler(log *logger.Logger, summarizeService *services.SummarizeAnswerService) *SummarizeHandler {
	return &SummarizeHandler{
		log:              log.With("handler", "SummarizeHandler"),
		summarizeService: summarizeService,
	}
}

// GET /api/v1/semantic-search/summarize
func (h *SummarizeHandler) Summarize(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		RespondValidation(c, "'query' is required.")
		return
	}
	orgID, ok := requireIntQuery(c, "orgId")
	if !ok {
		return
	}
	deploymentID := c.Query("deploymentId")
	if deploymentID == "" {
		RespondValidation(c, "'deploymentId' is required.")
		return
	}

	var optionIDs []int64
	for _, v := range c.QueryArray("options") {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			RespondValidation(c, "'options' must be integers.")
			return
		}
		optionIDs = append(optionIDs, id)
	}

	result, err := h.summarizeService.Handle(c.Request.Context(), query, orgID, deploymentID, optionIDs)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}
