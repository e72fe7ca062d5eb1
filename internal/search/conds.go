package search

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/tags"
)

// liveTreeIDFactor maps caller-facing decision-tree ids to the source
// system's "live" id space. The stored data.tree_id carries live ids.
const liveTreeIDFactor = 1000

// ztTagsKey is the synthetic tag key decision-tree tags are stored
// under.
const ztTagsKey = "zt_trees_trees"

const documentsTable = "semantic_search_documents"

// Cond is one immutable WHERE fragment. Fragments are compiled once
// per request and applied by the repositories; nothing is mutated
// after compilation.
type Cond struct {
	SQL  string
	Vars []any
}

// falseCond matches nothing; used for empty allow-lists.
var falseCond = Cond{SQL: "1 = 0"}

// CompileConds translates a merged filter set into the WHERE fragments
// shared by all retrieval operations. Unsupported data-filter values
// are logged and skipped rather than failing the query.
func CompileConds(f Filters, log *logger.Logger) []Cond {
	var conds []Cond

	if len(f.Tags) > 0 {
		conds = append(conds, Cond{
			SQL:  documentsTable + ".tags && ?",
			Vars: []any{pq.StringArray(tags.Encode(f.Tags))},
		})
	}

	if f.Connectors != nil {
		if len(*f.Connectors) == 0 {
			conds = append(conds, falseCond)
		} else {
			conds = append(conds, Cond{
				SQL:  documentsTable + ".connector_id IN ?",
				Vars: []any{*f.Connectors},
			})
		}
	}

	if f.ZTConnectorID != nil && len(f.ZTTreeIDs) > 0 {
		liveIDs := make([]string, len(f.ZTTreeIDs))
		for i, id := range f.ZTTreeIDs {
			liveIDs[i] = `"` + strconv.Itoa(id*liveTreeIDFactor) + `"`
		}
		conds = append(conds, Cond{
			SQL: "(" + documentsTable + ".connector_id <> ? OR (" +
				documentsTable + ".connector_id = ? AND (" +
				documentsTable + ".data -> 'tree_id')::text IN ?))",
			Vars: []any{*f.ZTConnectorID, *f.ZTConnectorID, liveIDs},
		})
	}

	if f.ZTConnectorID != nil && len(f.ZTTags) > 0 {
		flattened := tags.Encode(map[string][]string{ztTagsKey: f.ZTTags})
		conds = append(conds, Cond{
			SQL: "(" + documentsTable + ".connector_id <> ? OR (" +
				documentsTable + ".connector_id = ? AND " +
				documentsTable + ".tags && ?))",
			Vars: []any{*f.ZTConnectorID, *f.ZTConnectorID, pq.StringArray(flattened)},
		})
	}

	conds = append(conds, compileDataConds(f.Data, log)...)

	if len(f.Languages) > 0 {
		patterns := make(pq.StringArray, len(f.Languages))
		for i, lang := range f.Languages {
			patterns[i] = lang + "%"
		}
		conds = append(conds, Cond{
			SQL:  documentsTable + ".language LIKE ANY (?)",
			Vars: []any{patterns},
		})
	}

	conds = append(conds, compileScopeConds(f.ContentScopeFilter)...)

	return conds
}

// compileDataConds builds one fragment per data key, branching on the
// filter value shape. String and integer values compare against the
// JSON text of the stored field; lists become membership tests whose
// element rendering follows the first element's type. Anything else is
// skipped with a warning.
func compileDataConds(data map[string]any, log *logger.Logger) []Cond {
	if len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fieldSQL := "(" + documentsTable + ".data -> ?)::text"
	var conds []Cond
	for _, key := range keys {
		switch v := data[key].(type) {
		case string:
			conds = append(conds, Cond{SQL: fieldSQL + " = ?", Vars: []any{key, `"` + v + `"`}})
		case int:
			conds = append(conds, Cond{SQL: fieldSQL + " = ?", Vars: []any{key, strconv.Itoa(v)}})
		case float64:
			if v != math.Trunc(v) {
				warnUnsupportedFilter(log, key, v)
				continue
			}
			conds = append(conds, Cond{SQL: fieldSQL + " = ?", Vars: []any{key, strconv.FormatFloat(v, 'f', -1, 64)}})
		case []any:
			members, ok := renderListMembers(v)
			if !ok {
				warnUnsupportedFilter(log, key, v)
				continue
			}
			if len(members) == 0 {
				conds = append(conds, falseCond)
				continue
			}
			conds = append(conds, Cond{SQL: fieldSQL + " IN ?", Vars: []any{key, members}})
		default:
			warnUnsupportedFilter(log, key, v)
		}
	}
	return conds
}

// renderListMembers stringifies list elements using the first
// element's type; mixed-type lists beyond string/integer heads are
// unsupported.
func renderListMembers(list []any) ([]string, bool) {
	if len(list) == 0 {
		return []string{}, true
	}
	out := make([]string, 0, len(list))
	switch list[0].(type) {
	case string:
		for _, e := range list {
			out = append(out, `"`+fmt.Sprint(e)+`"`)
		}
	case int:
		for _, e := range list {
			out = append(out, fmt.Sprint(e))
		}
	case float64:
		head := list[0].(float64)
		if head != math.Trunc(head) {
			return nil, false
		}
		for _, e := range list {
			if f, ok := e.(float64); ok {
				out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
			} else {
				out = append(out, fmt.Sprint(e))
			}
		}
	default:
		return nil, false
	}
	return out, true
}

func warnUnsupportedFilter(log *logger.Logger, key string, value any) {
	if log != nil {
		log.Warn("Search filter not supported", "key", key, "value", value)
	}
}

// compileScopeConds renders the compiled content-scope rules: the
// per-connector inclusion legs are OR'ed into one fragment, while each
// show-nothing rule becomes its own hide-all fragment AND'ed with the
// rest of the query.
func compileScopeConds(scope *ContentScope) []Cond {
	if scope == nil || len(scope.Sources) == 0 {
		return nil
	}

	var includeSQL []string
	var includeVars []any
	var conds []Cond

	for _, source := range scope.Sources {
		switch source.Action {
		case "show":
			if len(source.Tags) == 0 {
				// Show with no tags exposes nothing from this
				// connector.
				conds = append(conds, Cond{
					SQL:  documentsTable + ".connector_id <> ?",
					Vars: []any{source.ConnectorID},
				})
				continue
			}
			includeSQL = append(includeSQL, "("+documentsTable+".connector_id = ? AND "+documentsTable+".tags && ?)")
			includeVars = append(includeVars, source.ConnectorID, pq.StringArray(source.Tags))
		case "hide":
			if len(source.Tags) == 0 {
				// Hide with no tags keeps the whole connector.
				includeSQL = append(includeSQL, documentsTable+".connector_id = ?")
				includeVars = append(includeVars, source.ConnectorID)
				continue
			}
			includeSQL = append(includeSQL, "("+documentsTable+".connector_id = ? AND NOT ("+documentsTable+".tags && ?))")
			includeVars = append(includeVars, source.ConnectorID, pq.StringArray(source.Tags))
		}
	}

	if len(includeSQL) > 0 {
		conds = append([]Cond{{
			SQL:  "(" + strings.Join(includeSQL, " OR ") + ")",
			Vars: includeVars,
		}}, conds...)
	} else {
		// Every declared source contributes nothing.
		conds = append([]Cond{falseCond}, conds...)
	}
	return conds
}
