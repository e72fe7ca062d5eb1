package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/repos/search"
	"github.com/VonteruManoj/GenMan/internal/requestdata"
	searchfilters "github.com/VonteruManoj/GenMan/internal/search"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type stubRepo struct {
	search.Repo
	items      []domain.Item
	distances  []float64
	gotFilters *searchfilters.Filters
}

func (r stubRepo) Search(ctx context.Context, embedding []float32, orgID int, f searchfilters.Filters, limit *int) ([]domain.Item, []float64, error) {
	if r.gotFilters != nil {
		*r.gotFilters = f
	}
	return r.items, r.distances, nil
}

type stubAnalytics struct {
	lastResults []search.BatchResult
}

func (a *stubAnalytics) FromSearch(ctx context.Context, orgID int, deploymentID, searchText, sortBy string, f searchfilters.Filters, results []search.BatchResult, limit *int) (uuid.UUID, error) {
	a.lastResults = results
	return uuid.MustParse("f6a5e8a2-0e9a-4f5c-9d2e-1b8f3a7c4d10"), nil
}

func (a *stubAnalytics) FindBatch(ctx context.Context, id uuid.UUID) (*domain.SearchBatch, error) {
	return nil, nil
}

type stubConfigSvc struct {
	widget *searchfilters.SearchWidget
}

func (s stubConfigSvc) GetSearchWidgetByDeploymentID(ctx context.Context, orgID int, deploymentID string) (*searchfilters.SearchWidget, error) {
	return s.widget, nil
}

type stubConnectorSvc struct {
	connectors []searchfilters.Connector
}

func (s stubConnectorSvc) GetAllConnectors(ctx context.Context, orgID int) ([]searchfilters.Connector, error) {
	return s.connectors, nil
}

type stubLime struct {
	tags []string
	err  error
}

func (s stubLime) GetAgentTags(ctx context.Context, causerID int) ([]string, error) {
	return s.tags, s.err
}

func testWidget() *searchfilters.SearchWidget {
	return &searchfilters.SearchWidget{
		ID:                    1,
		DeploymentID:          "dep-1",
		OrgID:                 1,
		Active:                true,
		EnableExternalSources: true,
		MetadataInfo: searchfilters.WidgetMetadataInfo{
			SourcesConfig: searchfilters.WidgetSourcesConfig{
				ExternalSource: searchfilters.WidgetExternalSource{ConnectorIDs: []int{7}},
			},
		},
	}
}

func testConnectors() []searchfilters.Connector {
	return []searchfilters.Connector{
		{ID: 7, Name: "kb", Active: true, ConnectorType: &searchfilters.ConnectorType{ID: 1, Provider: "kb", Active: true}},
	}
}

func testItem(id int64, title string, tags []string, data string) domain.Item {
	return domain.Item{
		ID:      id,
		Snippet: "snippet " + title,
		Document: &domain.Document{
			ID:          id,
			OrgID:       1,
			Title:       title,
			Tags:        pq.StringArray(tags),
			Data:        datatypes.JSON([]byte(data)),
			ConnectorID: 7,
			DocumentID:  "doc-" + title,
		},
	}
}

func newTestService(repo search.Repo, analytics *stubAnalytics) *SemanticSearchService {
	return newTestServiceWithLime(repo, analytics, stubLime{})
}

func newTestServiceWithLime(repo search.Repo, analytics *stubAnalytics, l stubLime) *SemanticSearchService {
	log, _ := logger.New("development")
	return NewSemanticSearchService(
		log, stubEmbedder{}, repo, analytics,
		stubConnectorSvc{connectors: testConnectors()},
		stubConfigSvc{widget: testWidget()},
		l,
	)
}

func agentContext() context.Context {
	return requestdata.WithAuditData(context.Background(), requestdata.AuditData{
		CauserID:   42,
		CauserType: `App\Models\Agent`,
		OrgID:      1,
	})
}

func TestSearchRendersOptionsWithDistances(t *testing.T) {
	repo := stubRepo{
		items: []domain.Item{
			testItem(1, "First", []string{`"t1"."v1"`}, `{}`),
			testItem(2, "Second", []string{`"t1"."v2"`}, `{}`),
		},
		distances: []float64{0.1, 0.4},
	}
	svc := newTestService(repo, &stubAnalytics{})

	result, partial, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partial {
		t.Fatalf("want partial=false, got true")
	}
	if len(result.Options) != 2 {
		t.Fatalf("want 2 options, got %d", len(result.Options))
	}
	if result.Options[0].Document.Title != "First" {
		t.Fatalf("want First first, got %q", result.Options[0].Document.Title)
	}
	if result.Options[0].Distance == nil || *result.Options[0].Distance != 0.1 {
		t.Fatalf("want distance 0.1, got %v", result.Options[0].Distance)
	}
	if got := result.Options[0].Document.Tags["t1"]; len(got) != 1 || got[0] != "v1" {
		t.Fatalf("want decoded tags, got %v", result.Options[0].Document.Tags)
	}
	if result.AnalyticsID == "" {
		t.Fatalf("want analytics id set")
	}
}

func TestSearchMalformedTagCausesPartialFailure(t *testing.T) {
	repo := stubRepo{
		items: []domain.Item{
			testItem(1, "Broken", []string{"oops!"}, `{}`),
			testItem(2, "Valid", []string{`"t1"."v1"`}, `{}`),
		},
		distances: []float64{0.1, 0.2},
	}
	svc := newTestService(repo, &stubAnalytics{})

	result, partial, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !partial {
		t.Fatalf("want partial=true")
	}
	if len(result.Options) != 1 {
		t.Fatalf("want 1 rendered option, got %d", len(result.Options))
	}
	if result.Options[0].Document.Title != "Valid" {
		t.Fatalf("want the valid row kept, got %q", result.Options[0].Document.Title)
	}
}

func TestSearchNoResultsReturnsCannedAnswer(t *testing.T) {
	svc := newTestService(stubRepo{}, &stubAnalytics{})

	result, partial, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partial {
		t.Fatalf("want partial=false for empty result")
	}
	if result.Answer != "There's no items to answer this question." {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if len(result.Options) != 0 {
		t.Fatalf("want no options, got %d", len(result.Options))
	}
	if result.AnalyticsID == "" {
		t.Fatalf("want analytics id even for empty result")
	}
}

func TestSearchAlphabeticalKeepsNearestPinned(t *testing.T) {
	repo := stubRepo{
		items: []domain.Item{
			testItem(1, "cde", nil, `{}`),
			testItem(2, "abc", nil, `{}`),
			testItem(3, "bcd", nil, `{}`),
		},
		distances: []float64{0.1, 0.3, 0.2},
	}
	svc := newTestService(repo, &stubAnalytics{})

	result, _, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortAlphabetical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	titles := make([]string, len(result.Options))
	for i, opt := range result.Options {
		titles[i] = opt.Document.Title
	}
	want := []string{"cde", "abc", "bcd"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("want order %v, got %v", want, titles)
		}
	}
	// The pinned option keeps its own distance.
	if *result.Options[0].Distance != 0.1 {
		t.Fatalf("want pinned distance 0.1, got %v", *result.Options[0].Distance)
	}
	if *result.Options[1].Distance != 0.3 {
		t.Fatalf("want abc distance 0.3, got %v", *result.Options[1].Distance)
	}
}

func TestSearchAnalyticsKeepsFetchedOrder(t *testing.T) {
	repo := stubRepo{
		items: []domain.Item{
			testItem(1, "cde", nil, `{}`),
			testItem(2, "abc", nil, `{}`),
		},
		distances: []float64{0.1, 0.3},
	}
	analytics := &stubAnalytics{}
	svc := newTestService(repo, analytics)

	if _, _, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortAlphabetical); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analytics.lastResults) != 2 {
		t.Fatalf("want 2 analytics rows, got %d", len(analytics.lastResults))
	}
	if analytics.lastResults[0].Title != "cde" || analytics.lastResults[1].Title != "abc" {
		t.Fatalf("analytics rows must keep relevance order, got %v", analytics.lastResults)
	}
}

func TestSearchAgentTagsFailureFailsRequest(t *testing.T) {
	limeErr := errors.New("lime unavailable")
	svc := newTestServiceWithLime(stubRepo{}, &stubAnalytics{}, stubLime{err: limeErr})

	_, _, err := svc.Search(agentContext(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance)
	if err == nil {
		t.Fatalf("want error when agent tags cannot be resolved")
	}
	if !errors.Is(err, limeErr) {
		t.Fatalf("want lime error propagated, got %v", err)
	}
}

func TestSuggestionsAgentTagsFailureFailsRequest(t *testing.T) {
	limeErr := errors.New("lime unavailable")
	svc := newTestServiceWithLime(stubRepo{}, &stubAnalytics{}, stubLime{err: limeErr})

	_, err := svc.GetSearchSuggestions(agentContext(), "query", 1, "dep-1", searchfilters.Filters{}, nil)
	if !errors.Is(err, limeErr) {
		t.Fatalf("want lime error propagated, got %v", err)
	}
}

func TestSearchAgentTagsOverrideScope(t *testing.T) {
	var got searchfilters.Filters
	repo := stubRepo{gotFilters: &got}
	svc := newTestServiceWithLime(repo, &stubAnalytics{}, stubLime{tags: []string{"tag-a", "tag-b"}})

	if _, _, err := svc.Search(agentContext(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.ZTTags) != 2 || got.ZTTags[0] != "tag-a" {
		t.Fatalf("want agent tags to replace the tree tag scope, got %v", got.ZTTags)
	}
}

func TestSearchNonAgentIgnoresLimeFailure(t *testing.T) {
	svc := newTestServiceWithLime(stubRepo{}, &stubAnalytics{}, stubLime{err: errors.New("lime unavailable")})

	if _, _, err := svc.Search(context.Background(), "query", 1, "dep-1", searchfilters.Filters{}, nil, SortRelevance); err != nil {
		t.Fatalf("lime must not be consulted for non-agents: %v", err)
	}
}

func TestSortingValuesUsesNodeID(t *testing.T) {
	docA := &domain.Document{Title: "Same", Data: datatypes.JSON([]byte(`{"node_id": 2}`))}
	docB := &domain.Document{Title: "Same", Data: datatypes.JSON([]byte(`{"node_id": 10}`))}

	a, b := sortingValues(docA), sortingValues(docB)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("want node_id in sort key, got %v and %v", a, b)
	}
	if a[0] != b[0] {
		t.Fatalf("titles should compare equal first")
	}
}

func TestGetTagsDecodesMap(t *testing.T) {
	repo := stubTagRepo{raw: []string{`"loc"."America"`, `"loc"."Asia"`, `"team"."support"`}}
	svc := newTestService(repo, &stubAnalytics{})

	result, err := svc.GetTags(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tags["loc"]) != 2 {
		t.Fatalf("want 2 loc values, got %v", result.Tags)
	}
	if len(result.Tags["team"]) != 1 || result.Tags["team"][0] != "support" {
		t.Fatalf("want team support, got %v", result.Tags)
	}
	if result.Meta != nil {
		t.Fatalf("want no meta without connectorsCount")
	}
}

type stubTagRepo struct {
	search.Repo
	raw []string
}

func (r stubTagRepo) GetTags(ctx context.Context, orgID int) ([]string, error) {
	return r.raw, nil
}

func (r stubTagRepo) GetTagsWithMeta(ctx context.Context, orgID int) ([]search.TagMeta, error) {
	return []search.TagMeta{
		{Tag: `"loc"."America"`, ConnectorID: 7, Count: 3},
		{Tag: `"loc"."Asia"`, ConnectorID: 8, Count: 1},
	}, nil
}

func TestGetTagsWithConnectorsCount(t *testing.T) {
	svc := newTestService(stubTagRepo{}, &stubAnalytics{})

	result, err := svc.GetTags(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := result.Meta["connectorsCount"]
	if len(meta) != 2 {
		t.Fatalf("want 2 meta rows, got %d", len(meta))
	}
	if meta[0].Tag != "loc" || meta[0].Value != "America" || meta[0].ConnectorID != 7 || meta[0].Count != 3 {
		t.Fatalf("unexpected meta row %+v", meta[0])
	}
	if len(result.Tags["loc"]) != 2 {
		t.Fatalf("want decoded tag map alongside meta, got %v", result.Tags)
	}
}
