// Package search holds the per-request filter model, the widget filter
// compiler that reconciles a deployment's configured content scope with
// a caller's ad-hoc filters, and the predicate compiler that turns the
// merged filters into SQL fragments for the retrieval queries.
package search

// ScopeParameter selects a content scope by name/value pair.
type ScopeParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ScopeSource is one per-connector show/hide rule inside a content
// scope. Tags are composite `"key"."value"` strings.
type ScopeSource struct {
	Tags        []string `json:"tags"`
	Action      string   `json:"action"`
	ConnectorID int      `json:"connectorId"`
}

// ContentScope is a named, ordered set of per-connector rules resolved
// per deployment.
type ContentScope struct {
	ID        string         `json:"id"`
	Sources   []ScopeSource  `json:"sources"`
	Parameter ScopeParameter `json:"parameter"`
}

// Filters is the ephemeral per-request filter set. Connectors is a
// pointer so "no constraint supplied" (nil) stays distinguishable from
// "none allowed" (empty slice).
type Filters struct {
	Tags                   map[string][]string `json:"tags,omitempty"`
	Connectors             *[]int              `json:"connectors,omitempty"`
	Data                   map[string]any      `json:"data,omitempty"`
	Languages              []string            `json:"languages,omitempty"`
	ZTConnectorID          *int                `json:"zt_connector_id,omitempty"`
	ZTTreeIDs              []int               `json:"zt_tree_ids,omitempty"`
	ZTTags                 []string            `json:"zt_tags,omitempty"`
	ContentScopeParameters []ScopeParameter    `json:"contentScopeParameters,omitempty"`
	ContentScopeFilter     *ContentScope       `json:"contentScopeFilter,omitempty"`
}

// Clone returns a deep copy so the compiler never mutates the caller's
// filter set.
func (f Filters) Clone() Filters {
	out := f
	if f.Tags != nil {
		out.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			out.Tags[k] = append([]string(nil), v...)
		}
	}
	if f.Connectors != nil {
		conns := append([]int(nil), (*f.Connectors)...)
		out.Connectors = &conns
	}
	if f.Data != nil {
		out.Data = make(map[string]any, len(f.Data))
		for k, v := range f.Data {
			out.Data[k] = v
		}
	}
	out.Languages = append([]string(nil), f.Languages...)
	if f.ZTConnectorID != nil {
		id := *f.ZTConnectorID
		out.ZTConnectorID = &id
	}
	out.ZTTreeIDs = append([]int(nil), f.ZTTreeIDs...)
	out.ZTTags = append([]string(nil), f.ZTTags...)
	// An empty parameter list still means "supplied" and clears any
	// caller-provided scope filter, so emptiness must survive the copy.
	if f.ContentScopeParameters != nil {
		out.ContentScopeParameters = make([]ScopeParameter, 0, len(f.ContentScopeParameters))
		out.ContentScopeParameters = append(out.ContentScopeParameters, f.ContentScopeParameters...)
	}
	if f.ContentScopeFilter != nil {
		scope := *f.ContentScopeFilter
		scope.Sources = append([]ScopeSource(nil), f.ContentScopeFilter.Sources...)
		out.ContentScopeFilter = &scope
	}
	return out
}
