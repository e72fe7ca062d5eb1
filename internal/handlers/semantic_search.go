package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VonteruManoj/GenMan/internal/logger"
	searchfilters "github.com/VonteruManoj/GenMan/internal/search"
	"github.com/VonteruManoj/GenMan/internal/services"
)

type SemanticSearchHandler struct {
	log           *logger.Logger
	searchService *services.SemanticSearchService
}

func NewSemanticSearchHandler(log *logger.Logger, searchService *services.SemanticSearchService) *SemanticSearchHandler {
	return &SemanticSearchHandler{
		log:           log.With("handler", "SemanticSearchHandler"),
		searchService: searchService,
	}
}

// GET /api/v1/semantic-search/search
func (h *SemanticSearchHandler) Search(c *gin.Context) {
	searchText := c.Query("search")
	if searchText == "" {
		RespondValidation(c, "'search' is required.")
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

	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	sortBy := c.DefaultQuery("sortBy", services.SortRelevance)
	if sortBy != services.SortRelevance && sortBy != services.SortAlphabetical {
		RespondValidation(c, "'sortBy' must be 'relevance' or 'alphabetical'.")
		return
	}
	filters, ok := parseFilters(c)
	if !ok {
		return
	}

	result, partial, err := h.searchService.Search(c.Request.Context(), searchText, orgID, deploymentID, filters, limit, sortBy)
	if err != nil {
		RespondError(c, err)
		return
	}
	if partial {
		RespondPartial(c, result)
		return
	}
	RespondOK(c, result)
}

// GET /api/v1/semantic-search/suggestions
func (h *SemanticSearchHandler) Suggestions(c *gin.Context) {
	searchText := c.Query("search")
	if searchText == "" {
		RespondValidation(c, "'search' is required.")
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
	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	filters, ok := parseFilters(c)
	if !ok {
		return
	}

	suggestions, err := h.searchService.GetSearchSuggestions(c.Request.Context(), searchText, orgID, deploymentID, filters, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, suggestions)
}

// GET /api/v1/semantic-search/tags
// The org id comes from the x-org-id header or the orgId query param.
func (h *SemanticSearchHandler) Tags(c *gin.Context) {
	orgID := 0
	if v := c.GetHeader("x-org-id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			RespondValidation(c, "'x-org-id' must be an integer.")
			return
		}
		orgID = id
	} else if v := c.Query("orgId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			RespondValidation(c, "'orgId' must be an integer.")
			return
		}
		orgID = id
	}
	if orgID == 0 {
		RespondValidation(c, "Organization ID is required.")
		return
	}

	withConnectorsCount := false
	for _, f := range c.QueryArray("withMeta") {
		if f == "connectorsCount" {
			withConnectorsCount = true
		}
	}

	result, err := h.searchService.GetTags(c.Request.Context(), orgID, withConnectorsCount)
	if err != nil {
		RespondError(c, err)
		return
	}
	if result.Meta != nil {
		RespondOKWithMeta(c, result.Tags, result.Meta)
		return
	}
	RespondOK(c, result.Tags)
}

// GET /api/v1/semantic-search/connectors
func (h *SemanticSearchHandler) Connectors(c *gin.Context) {
	orgID, ok := requireIntQuery(c, "orgId")
	if !ok {
		return
	}

	var (
		connectors []searchfilters.Connector
		err        error
	)
	if deploymentID := c.Query("deploymentId"); deploymentID != "" {
		connectors, err = h.searchService.GetDeploymentConnectors(c.Request.Context(), orgID, deploymentID)
	} else {
		connectors, err = h.searchService.GetConnectors(c.Request.Context(), orgID)
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, connectors)
}

// GET /api/v1/semantic-search/documents
func (h *SemanticSearchHandler) Documents(c *gin.Context) {
	orgID, ok := optionalIntQuery(c, "orgId")
	if !ok {
		return
	}
	connectorID, ok := optionalIntQuery(c, "connectorId")
	if !ok {
		return
	}
	if orgID == nil && connectorID == nil {
		RespondValidation(c, "At least one 'orgId' or 'connectorId' must be provided.")
		return
	}

	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := optionalIntQuery(c, "offset")
	if !ok {
		return
	}
	if (limit == nil) != (offset == nil) {
		RespondValidation(c, "Both 'limit' and 'offset' must be provided together.")
		return
	}

	documents, err := h.searchService.GetDocuments(c.Request.Context(), orgID, connectorID, limit, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, documents)
}

// GET /api/v1/semantic-search/languages
func (h *SemanticSearchHandler) Languages(c *gin.Context) {
	orgID, ok := requireIntQuery(c, "orgId")
	if !ok {
		return
	}

	languages, err := h.searchService.GetLanguages(c.Request.Context(), orgID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, languages)
}

// GET /api/v1/semantic-search/deployments/:uuid/has-documents
func (h *SemanticSearchHandler) DeploymentHasDocuments(c *gin.Context) {
	has, err := h.searchService.DeploymentHasDocuments(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, has)
}

func requireIntQuery(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		RespondValidation(c, "'"+name+"' is required.")
		return 0, false
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		RespondValidation(c, "'"+name+"' must be an integer.")
		return 0, false
	}
	return id, true
}

func optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		RespondValidation(c, "'"+name+"' must be an integer.")
		return nil, false
	}
	return &id, true
}

// parseFilters decodes the JSON-encoded filters query parameter.
func parseFilters(c *gin.Context) (searchfilters.Filters, bool) {
	raw := c.Query("filters")
	if raw == "" {
		return searchfilters.Filters{}, true
	}
	var filters searchfilters.Filters
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		RespondValidation(c, "'filters' must be valid JSON.")
		return searchfilters.Filters{}, false
	}
	return filters, true
}
