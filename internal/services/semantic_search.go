// Package services implements the search, summarization and ingestion
// use cases on top of the repositories and external clients.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VonteruManoj/GenMan/internal/apierr"
	"github.com/VonteruManoj/GenMan/internal/clients/configsvc"
	"github.com/VonteruManoj/GenMan/internal/clients/connectorsvc"
	"github.com/VonteruManoj/GenMan/internal/clients/lime"
	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/repos/search"
	"github.com/VonteruManoj/GenMan/internal/requestdata"
	searchfilters "github.com/VonteruManoj/GenMan/internal/search"
	"github.com/VonteruManoj/GenMan/internal/tags"
)

const (
	noItemsAnswer = "There's no items to answer this question."

	SortRelevance    = "relevance"
	SortAlphabetical = "alphabetical"
)

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// DocumentView is the rendered document payload returned to clients.
// Tags are decoded back into a key to values mapping.
type DocumentView struct {
	ID          int64                  `json:"id"`
	OrgID       int                    `json:"orgId"`
	Language    *string                `json:"language"`
	Title       string                 `json:"title"`
	Description *string                `json:"description"`
	Tags        map[string][]string    `json:"tags"`
	Data        map[string]interface{} `json:"data"`
	ConnectorID int                    `json:"connectorId"`
	ArticleID   string                 `json:"articleId"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// OptionView is one search result: a snippet plus its document, with
// the cosine distance when produced by a ranked search.
type OptionView struct {
	ID       int64        `json:"id"`
	Snippet  string       `json:"snippet"`
	Document DocumentView `json:"document"`
	Distance *float64     `json:"distance,omitempty"`
}

// SearchResult is the search response body. Answer is only set when
// no options matched.
type SearchResult struct {
	AnalyticsID string       `json:"analytics_id"`
	Answer      string       `json:"answer,omitempty"`
	Options     []OptionView `json:"options"`
}

// TagsResult carries the decoded tag map and, when requested, the
// per-connector usage counts.
type TagsResult struct {
	Tags map[string][]string      `json:"tags"`
	Meta map[string][]TagMetaView `json:"meta,omitempty"`
}

type TagMetaView struct {
	Tag         string `json:"tag"`
	Value       string `json:"value"`
	ConnectorID int    `json:"connectorId"`
	Count       int    `json:"count"`
}

type SemanticSearchService struct {
	log           *logger.Logger
	embedder      Embedder
	repo          search.Repo
	analyticsRepo search.AnalyticsRepo
	connectorSvc  connectorsvc.Client
	configSvc     configsvc.Client
	lime          lime.Client
}

func NewSemanticSearchService(
	baseLog *logger.Logger,
	embedder Embedder,
	repo search.Repo,
	analyticsRepo search.AnalyticsRepo,
	connectorSvc connectorsvc.Client,
	configSvc configsvc.Client,
	limeClient lime.Client,
) *SemanticSearchService {
	return &SemanticSearchService{
		log:           baseLog.With("service", "SemanticSearchService"),
		embedder:      embedder,
		repo:          repo,
		analyticsRepo: analyticsRepo,
		connectorSvc:  connectorSvc,
		configSvc:     configSvc,
		lime:          limeClient,
	}
}

// compileDeploymentFilters resolves the widget and org connectors
// concurrently, then merges the deployment scope into the caller's
// filters.
func (s *SemanticSearchService) compileDeploymentFilters(ctx context.Context, orgID int, deploymentID string, filters searchfilters.Filters) (searchfilters.Filters, []searchfilters.Connector, error) {
	var (
		widget     *searchfilters.SearchWidget
		connectors []searchfilters.Connector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.configSvc.GetSearchWidgetByDeploymentID(gctx, orgID, deploymentID)
		if err != nil {
			return err
		}
		widget = w
		return nil
	})
	g.Go(func() error {
		cs, err := s.connectorSvc.GetAllConnectors(gctx, orgID)
		if err != nil {
			return err
		}
		connectors = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return searchfilters.Filters{}, nil, err
	}

	if widget == nil {
		return searchfilters.Filters{}, nil, apierr.NotFound("widget %s not found", deploymentID)
	}

	compiled, err := searchfilters.CompileWidgetFilters(widget, connectors, filters)
	if err != nil {
		return searchfilters.Filters{}, nil, err
	}
	return compiled, connectors, nil
}

// applyAgentTags replaces the decision-tree tag scope with the agent's
// profile tags when the caller is an agent and the profile has any.
// An unresolved agent profile fails the request; proceeding would
// serve the agent results outside their permission tags.
func (s *SemanticSearchService) applyAgentTags(ctx context.Context, filters *searchfilters.Filters) error {
	audit := requestdata.FromContext(ctx)
	if !audit.IsAgent() {
		return nil
	}
	userTags, err := s.lime.GetAgentTags(ctx, audit.CauserID)
	if err != nil {
		s.log.Error("Failed to fetch agent tags", "causer_id", audit.CauserID, "error", err)
		return err
	}
	if len(userTags) > 0 {
		filters.ZTTags = userTags
	}
	return nil
}

// Search runs the full retrieval pipeline for a deployment and returns
// the rendered results plus a flag marking rows dropped during
// rendering.
func (s *SemanticSearchService) Search(ctx context.Context, searchText string, orgID int, deploymentID string, filters searchfilters.Filters, limit *int, sortBy string) (SearchResult, bool, error) {
	compiled, _, err := s.compileDeploymentFilters(ctx, orgID, deploymentID, filters)
	if err != nil {
		return SearchResult{}, false, err
	}
	if err := s.applyAgentTags(ctx, &compiled); err != nil {
		return SearchResult{}, false, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{searchText})
	if err != nil {
		return SearchResult{}, false, err
	}

	options, distances, err := s.repo.Search(ctx, vectors[0], orgID, compiled, limit)
	if err != nil {
		return SearchResult{}, false, err
	}

	// Analytics rows keep the fetched (relevance) order; any re-sorted
	// order the user saw is recoverable from click analytics.
	batchResults := make([]search.BatchResult, len(options))
	for i, opt := range options {
		batchResults[i] = search.BatchResult{
			ItemID:   opt.ID,
			Title:    documentTitle(opt.Document),
			Distance: distances[i],
		}
		if opt.Document != nil {
			batchResults[i].DocumentID = opt.Document.DocumentID
		}
	}
	batchID, err := s.analyticsRepo.FromSearch(ctx, orgID, deploymentID, searchText, sortBy, compiled, batchResults, limit)
	if err != nil {
		return SearchResult{}, false, err
	}

	if len(options) == 0 {
		return SearchResult{
			AnalyticsID: batchID.String(),
			Answer:      noItemsAnswer,
			Options:     []OptionView{},
		}, false, nil
	}

	if sortBy == SortAlphabetical {
		options, distances = pinFirstSortRest(options, distances)
	}

	output := make([]OptionView, 0, len(options))
	for i, opt := range options {
		view, err := renderOption(opt)
		if err != nil {
			s.log.Error("Failed to render search option", "item_id", opt.ID, "error", err)
			continue
		}
		d := distances[i]
		view.Distance = &d
		output = append(output, view)
	}

	return SearchResult{
		AnalyticsID: batchID.String(),
		Options:     output,
	}, len(options) != len(output), nil
}

// pinFirstSortRest keeps the most relevant option first and sorts the
// remainder by title then decision-tree node id.
func pinFirstSortRest(options []domain.Item, distances []float64) ([]domain.Item, []float64) {
	if len(options) < 2 {
		return options, distances
	}

	type pair struct {
		item     domain.Item
		distance float64
	}
	rest := make([]pair, len(options)-1)
	for i := 1; i < len(options); i++ {
		rest[i-1] = pair{item: options[i], distance: distances[i]}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := sortingValues(rest[i].item.Document), sortingValues(rest[j].item.Document)
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	outOptions := make([]domain.Item, 0, len(options))
	outDistances := make([]float64, 0, len(distances))
	outOptions = append(outOptions, options[0])
	outDistances = append(outDistances, distances[0])
	for _, p := range rest {
		outOptions = append(outOptions, p.item)
		outDistances = append(outDistances, p.distance)
	}
	return outOptions, outDistances
}

// sortingValues is the secondary sort key: title, then the node id for
// decision-tree documents.
func sortingValues(doc *domain.Document) []string {
	if doc == nil {
		return nil
	}
	values := []string{doc.Title}

	var data map[string]interface{}
	if err := json.Unmarshal(doc.Data, &data); err == nil {
		if nodeID, ok := data["node_id"]; ok {
			values = append(values, fmt.Sprint(nodeID))
		}
	}
	return values
}

func documentTitle(doc *domain.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Title
}

// renderOption maps a stored item to its response shape. Tag decoding
// fails per row; callers drop the row and flag the response partial.
func renderOption(item domain.Item) (OptionView, error) {
	if item.Document == nil {
		return OptionView{}, fmt.Errorf("item %d has no document loaded", item.ID)
	}
	doc, err := renderDocument(*item.Document)
	if err != nil {
		return OptionView{}, err
	}
	return OptionView{
		ID:       item.ID,
		Snippet:  item.Snippet,
		Document: doc,
	}, nil
}

func renderDocument(doc domain.Document) (DocumentView, error) {
	tagMap, err := tags.Decode(doc.Tags)
	if err != nil {
		return DocumentView{}, err
	}

	var data map[string]interface{}
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			return DocumentView{}, err
		}
	}

	return DocumentView{
		ID:          doc.ID,
		OrgID:       doc.OrgID,
		Language:    doc.Language,
		Title:       doc.Title,
		Description: doc.Description,
		Tags:        tagMap,
		Data:        data,
		ConnectorID: doc.ConnectorID,
		ArticleID:   doc.DocumentID,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

// GetSearchSuggestions returns typeahead suggestions scoped the same
// way as a full search.
func (s *SemanticSearchService) GetSearchSuggestions(ctx context.Context, searchText string, orgID int, deploymentID string, filters searchfilters.Filters, limit *int) ([]string, error) {
	compiled, _, err := s.compileDeploymentFilters(ctx, orgID, deploymentID, filters)
	if err != nil {
		return nil, err
	}
	if err := s.applyAgentTags(ctx, &compiled); err != nil {
		return nil, err
	}

	return s.repo.Suggestions(ctx, searchText, orgID, compiled, limit)
}

// GetTags returns the org's decoded tag map; withConnectorsCount adds
// per-connector usage counts.
func (s *SemanticSearchService) GetTags(ctx context.Context, orgID int, withConnectorsCount bool) (TagsResult, error) {
	if !withConnectorsCount {
		raw, err := s.repo.GetTags(ctx, orgID)
		if err != nil {
			return TagsResult{}, err
		}
		tagMap, err := tags.Decode(raw)
		if err != nil {
			return TagsResult{}, err
		}
		return TagsResult{Tags: tagMap}, nil
	}

	rows, err := s.repo.GetTagsWithMeta(ctx, orgID)
	if err != nil {
		return TagsResult{}, err
	}

	meta := make([]TagMetaView, 0, len(rows))
	raw := make([]string, 0, len(rows))
	for _, row := range rows {
		key, value, err := tags.DecodeOne(row.Tag)
		if err != nil {
			return TagsResult{}, err
		}
		meta = append(meta, TagMetaView{
			Tag:         key,
			Value:       value,
			ConnectorID: row.ConnectorID,
			Count:       row.Count,
		})
		raw = append(raw, row.Tag)
	}
	tagMap, err := tags.Decode(raw)
	if err != nil {
		return TagsResult{}, err
	}
	return TagsResult{
		Tags: tagMap,
		Meta: map[string][]TagMetaView{"connectorsCount": meta},
	}, nil
}

// GetConnectors lists the org's active connectors.
func (s *SemanticSearchService) GetConnectors(ctx context.Context, orgID int) ([]searchfilters.Connector, error) {
	return s.connectorSvc.GetAllConnectors(ctx, orgID)
}

// GetDeploymentConnectors lists the connectors a deployment's widget
// actually exposes.
func (s *SemanticSearchService) GetDeploymentConnectors(ctx context.Context, orgID int, deploymentID string) ([]searchfilters.Connector, error) {
	var (
		widget     *searchfilters.SearchWidget
		connectors []searchfilters.Connector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.configSvc.GetSearchWidgetByDeploymentID(gctx, orgID, deploymentID)
		if err != nil {
			return err
		}
		widget = w
		return nil
	})
	g.Go(func() error {
		cs, err := s.connectorSvc.GetAllConnectors(gctx, orgID)
		if err != nil {
			return err
		}
		connectors = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if widget == nil {
		return nil, apierr.NotFound("widget %s not found", deploymentID)
	}

	return searchfilters.WidgetConnectors(widget, connectors), nil
}

func (s *SemanticSearchService) GetDocuments(ctx context.Context, orgID, connectorID *int, limit, offset *int) ([]DocumentView, error) {
	docs, err := s.repo.GetDocuments(ctx, orgID, connectorID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		view, err := renderDocument(doc)
		if err != nil {
			s.log.Error("Failed to render document", "document_id", doc.ID, "error", err)
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *SemanticSearchService) GetLanguages(ctx context.Context, orgID int) ([]string, error) {
	return s.repo.GetLanguages(ctx, orgID)
}

// DeploymentHasDocuments probes whether a deployment's compiled scope
// matches any stored document. Org id comes from the audit headers.
func (s *SemanticSearchService) DeploymentHasDocuments(ctx context.Context, deploymentID string) (bool, error) {
	orgID := requestdata.FromContext(ctx).OrgID

	compiled, _, err := s.compileDeploymentFilters(ctx, orgID, deploymentID, searchfilters.Filters{})
	if err != nil {
		if apierr.Status(err) == 404 {
			return false, apierr.NotFound("widget %s not found for org %d", deploymentID, orgID)
		}
		return false, err
	}

	return s.repo.DeploymentHasDocuments(ctx, orgID, compiled)
}
