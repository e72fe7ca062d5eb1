package search

import (
	"reflect"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func intPtr(i int) *int { return &i }

func condBySQL(conds []Cond, fragment string) *Cond {
	for i := range conds {
		if strings.Contains(conds[i].SQL, fragment) {
			return &conds[i]
		}
	}
	return nil
}

func TestCompileCondsTagsOverlap(t *testing.T) {
	conds := CompileConds(Filters{Tags: map[string][]string{"t1": {"v1", "v2"}}}, nil)

	c := condBySQL(conds, ".tags && ?")
	if c == nil {
		t.Fatalf("missing tag overlap cond: %v", conds)
	}
	want := pq.StringArray{`"t1"."v1"`, `"t1"."v2"`}
	if !reflect.DeepEqual(c.Vars[0], want) {
		t.Fatalf("tag vars: want=%v got=%v", want, c.Vars[0])
	}
}

func TestCompileCondsConnectors(t *testing.T) {
	conns := []int{1, 2}
	conds := CompileConds(Filters{Connectors: &conns}, nil)
	c := condBySQL(conds, "connector_id IN ?")
	if c == nil {
		t.Fatalf("missing connector cond: %v", conds)
	}
	if !reflect.DeepEqual(c.Vars[0], []int{1, 2}) {
		t.Fatalf("connector vars: got=%v", c.Vars[0])
	}
}

func TestCompileCondsEmptyConnectorsMatchNothing(t *testing.T) {
	empty := []int{}
	conds := CompileConds(Filters{Connectors: &empty}, nil)
	if condBySQL(conds, "1 = 0") == nil {
		t.Fatalf("empty connector set should compile to a false cond: %v", conds)
	}
}

func TestCompileCondsNilConnectorsUnconstrained(t *testing.T) {
	conds := CompileConds(Filters{}, nil)
	if len(conds) != 0 {
		t.Fatalf("no filters should compile to no conds: %v", conds)
	}
}

func TestCompileCondsZTTreeIDsScaled(t *testing.T) {
	conds := CompileConds(Filters{
		ZTConnectorID: intPtr(9),
		ZTTreeIDs:     []int{3, 12},
	}, nil)

	c := condBySQL(conds, "data -> 'tree_id'")
	if c == nil {
		t.Fatalf("missing zt tree cond: %v", conds)
	}
	if !strings.Contains(c.SQL, "connector_id <> ?") {
		t.Fatalf("zt cond must bypass other connectors: %q", c.SQL)
	}
	want := []string{`"3000"`, `"12000"`}
	if !reflect.DeepEqual(c.Vars[2], want) {
		t.Fatalf("scaled tree ids: want=%v got=%v", want, c.Vars[2])
	}
}

func TestCompileCondsZTTagsSyntheticKey(t *testing.T) {
	conds := CompileConds(Filters{
		ZTConnectorID: intPtr(9),
		ZTTags:        []string{"vip", "support"},
	}, nil)

	c := condBySQL(conds, ".tags && ?)")
	if c == nil {
		t.Fatalf("missing zt tag cond: %v", conds)
	}
	want := pq.StringArray{`"zt_trees_trees"."vip"`, `"zt_trees_trees"."support"`}
	if !reflect.DeepEqual(c.Vars[2], want) {
		t.Fatalf("zt tag vars: want=%v got=%v", want, c.Vars[2])
	}
}

func TestCompileDataCondsValueShapes(t *testing.T) {
	conds := compileDataConds(map[string]any{
		"kind":    "article",
		"node_id": float64(42),
		"codes":   []any{"a", "b"},
		"ids":     []any{float64(1), float64(2)},
	}, nil)

	if len(conds) != 4 {
		t.Fatalf("conds: want=4 got=%d (%v)", len(conds), conds)
	}

	byKey := map[string]Cond{}
	for _, c := range conds {
		byKey[c.Vars[0].(string)] = c
	}

	if got := byKey["kind"].Vars[1]; got != `"article"` {
		t.Fatalf("string value quoting: got=%v", got)
	}
	if got := byKey["node_id"].Vars[1]; got != "42" {
		t.Fatalf("integer value rendering: got=%v", got)
	}
	if got := byKey["codes"].Vars[1]; !reflect.DeepEqual(got, []string{`"a"`, `"b"`}) {
		t.Fatalf("string list rendering: got=%v", got)
	}
	if got := byKey["ids"].Vars[1]; !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("int list rendering: got=%v", got)
	}
}

func TestCompileDataCondsSkipsUnsupported(t *testing.T) {
	conds := compileDataConds(map[string]any{
		"bad":  map[string]any{"nested": true},
		"good": "x",
	}, nil)
	if len(conds) != 1 {
		t.Fatalf("unsupported value should be skipped: %v", conds)
	}
	if conds[0].Vars[0] != "good" {
		t.Fatalf("remaining cond: got=%v", conds[0].Vars)
	}
}

func TestCompileDataCondsEmptyListMatchesNothing(t *testing.T) {
	conds := compileDataConds(map[string]any{"ids": []any{}}, nil)
	if len(conds) != 1 || conds[0].SQL != "1 = 0" {
		t.Fatalf("empty list should compile to a false cond: %v", conds)
	}
}

func TestCompileCondsLanguagePrefixes(t *testing.T) {
	conds := CompileConds(Filters{Languages: []string{"en", "pt-BR"}}, nil)
	c := condBySQL(conds, "language LIKE ANY")
	if c == nil {
		t.Fatalf("missing language cond: %v", conds)
	}
	want := pq.StringArray{"en%", "pt-BR%"}
	if !reflect.DeepEqual(c.Vars[0], want) {
		t.Fatalf("language patterns: want=%v got=%v", want, c.Vars[0])
	}
}

func TestCompileScopeConds(t *testing.T) {
	scope := &ContentScope{
		ID: "s",
		Sources: []ScopeSource{
			{ConnectorID: 1, Action: "show", Tags: []string{`"t"."a"`}},
			{ConnectorID: 2, Action: "hide"},
			{ConnectorID: 3, Action: "hide", Tags: []string{`"t"."x"`}},
			{ConnectorID: 4, Action: "show"},
		},
	}
	conds := compileScopeConds(scope)
	if len(conds) != 2 {
		t.Fatalf("conds: want=2 got=%d (%v)", len(conds), conds)
	}

	include := conds[0]
	if !strings.Contains(include.SQL, " OR ") {
		t.Fatalf("inclusion legs must be OR'ed: %q", include.SQL)
	}
	if !strings.Contains(include.SQL, "NOT (") {
		t.Fatalf("hide-with-tags leg must negate the overlap: %q", include.SQL)
	}
	// show+tags contributes (connector, tags); hide bare contributes
	// (connector); hide+tags contributes (connector, tags).
	if len(include.Vars) != 5 {
		t.Fatalf("inclusion vars: want=5 got=%d", len(include.Vars))
	}

	hideAll := conds[1]
	if hideAll.SQL != documentsTable+".connector_id <> ?" || hideAll.Vars[0] != 4 {
		t.Fatalf("show-with-no-tags must hide the connector: %+v", hideAll)
	}
}

func TestCompileScopeCondsOnlyBareShows(t *testing.T) {
	scope := &ContentScope{Sources: []ScopeSource{
		{ConnectorID: 1, Action: "show"},
	}}
	conds := compileScopeConds(scope)
	if len(conds) != 2 {
		t.Fatalf("conds: want=2 got=%d", len(conds))
	}
	if conds[0].SQL != "1 = 0" {
		t.Fatalf("no inclusion legs should match nothing: %v", conds[0])
	}
}
