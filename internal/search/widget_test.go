package search

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/VonteruManoj/GenMan/internal/apierr"
)

func strPtr(s string) *string { return &s }

func testConnectors() []Connector {
	return []Connector{
		{ID: 1, Name: "Trees", Active: true, ConnectorType: &ConnectorType{ID: 10, Provider: "zingtree", Active: true}},
		{ID: 2, Name: "KB", Active: true, ConnectorType: &ConnectorType{ID: 11, Provider: "salesforce", Active: true}},
		{ID: 3, Name: "Site", Description: strPtr("crawler"), Active: true, ConnectorType: &ConnectorType{ID: 12, Provider: "html", Active: true}},
	}
}

func testWidget() *SearchWidget {
	return &SearchWidget{
		ID:                    7,
		DeploymentID:          "dep-1",
		EnableDecisionTrees:   true,
		EnableExternalSources: true,
		OrgID:                 1,
		Active:                true,
		MetadataInfo: WidgetMetadataInfo{
			SourcesConfig: WidgetSourcesConfig{
				DecisionTree:   WidgetDecisionTree{All: false, TreeIDs: []int{4, 5}},
				ExternalSource: WidgetExternalSource{ConnectorIDs: []int{2, 3, 99}},
			},
		},
	}
}

func TestCompileWidgetFiltersUsesWidgetConnectors(t *testing.T) {
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.Connectors == nil {
		t.Fatalf("connectors not set")
	}
	// zt connector first, then configured external sources; 99 is not
	// resolved by the org and must be dropped.
	if want := []int{1, 2, 3}; !reflect.DeepEqual(*got.Connectors, want) {
		t.Fatalf("connectors: want=%v got=%v", want, *got.Connectors)
	}
}

func TestCompileWidgetFiltersIntersectsCallerConnectors(t *testing.T) {
	caller := []int{2, 42}
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{Connectors: &caller})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if want := []int{2}; !reflect.DeepEqual(*got.Connectors, want) {
		t.Fatalf("connectors: want=%v got=%v", want, *got.Connectors)
	}
}

func TestCompileWidgetFiltersEmptyCallerSetMeansNone(t *testing.T) {
	caller := []int{}
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{Connectors: &caller})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.Connectors == nil || len(*got.Connectors) != 0 {
		t.Fatalf("connectors: want empty, got=%v", got.Connectors)
	}
}

func TestCompileWidgetFiltersZTScoping(t *testing.T) {
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.ZTConnectorID == nil || *got.ZTConnectorID != 1 {
		t.Fatalf("zt connector id: got=%v", got.ZTConnectorID)
	}
	if want := []int{4, 5}; !reflect.DeepEqual(got.ZTTreeIDs, want) {
		t.Fatalf("zt tree ids: want=%v got=%v", want, got.ZTTreeIDs)
	}
}

func TestCompileWidgetFiltersAllTreesLeavesIDsUnset(t *testing.T) {
	w := testWidget()
	w.MetadataInfo.SourcesConfig.DecisionTree.All = true
	got, err := CompileWidgetFilters(w, testConnectors(), Filters{})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.ZTTreeIDs != nil {
		t.Fatalf("zt tree ids: want unset, got=%v", got.ZTTreeIDs)
	}
}

func TestCompileWidgetFiltersMissingZTConnector(t *testing.T) {
	conns := testConnectors()[1:] // drop the zingtree connector
	_, err := CompileWidgetFilters(testWidget(), conns, Filters{})
	if err == nil {
		t.Fatalf("expected NotFound error")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusNotFound {
		t.Fatalf("expected 404 apierr, got=%v", err)
	}
}

func TestCompileWidgetFiltersContentScopeFirstDeclaredWins(t *testing.T) {
	w := testWidget()
	w.MetadataInfo.ContentScopes = []ContentScope{
		{
			ID:        "scope-a",
			Parameter: ScopeParameter{Name: "brand", Value: "acme"},
			Sources:   []ScopeSource{{ConnectorID: 2, Action: "show", Tags: []string{`"t"."a"`}}},
		},
		{
			ID:        "scope-b",
			Parameter: ScopeParameter{Name: "brand", Value: "other"},
			Sources:   []ScopeSource{{ConnectorID: 3, Action: "hide"}},
		},
	}

	got, err := CompileWidgetFilters(w, testConnectors(), Filters{
		ContentScopeParameters: []ScopeParameter{
			{Name: "brand", Value: "other"},
			{Name: "brand", Value: "acme"},
		},
	})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.ContentScopeFilter == nil || got.ContentScopeFilter.ID != "scope-a" {
		t.Fatalf("content scope: want scope-a, got=%+v", got.ContentScopeFilter)
	}
}

func TestCompileWidgetFiltersNoParametersLeavesScopeAlone(t *testing.T) {
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if got.ContentScopeFilter != nil {
		t.Fatalf("content scope: want nil, got=%+v", got.ContentScopeFilter)
	}
}

func TestCompileWidgetFiltersEmptyParametersClearCallerScope(t *testing.T) {
	stale := ContentScope{
		ID:      "stale",
		Sources: []ScopeSource{{ConnectorID: 2, Action: "show", Tags: []string{`"t"."a"`}}},
	}
	got, err := CompileWidgetFilters(testWidget(), testConnectors(), Filters{
		ContentScopeParameters: []ScopeParameter{},
		ContentScopeFilter:     &stale,
	})
	if err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	// An empty parameter list is still a supplied selection; any
	// caller-provided filter must not survive it.
	if got.ContentScopeFilter != nil {
		t.Fatalf("content scope: want nil, got=%+v", got.ContentScopeFilter)
	}
}

func TestCompileWidgetFiltersDoesNotMutateInput(t *testing.T) {
	caller := []int{2}
	in := Filters{Connectors: &caller, Tags: map[string][]string{"t1": {"v1"}}}
	if _, err := CompileWidgetFilters(testWidget(), testConnectors(), in); err != nil {
		t.Fatalf("CompileWidgetFilters: %v", err)
	}
	if !reflect.DeepEqual(*in.Connectors, []int{2}) {
		t.Fatalf("input connectors mutated: %v", *in.Connectors)
	}
}
