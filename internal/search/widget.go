package search

import (
	"github.com/VonteruManoj/GenMan/internal/apierr"
)

// ztProvider identifies the decision-tree source system among the org's
// connectors.
const ztProvider = "zingtree"

// ConnectorType describes a source system kind (provider).
type ConnectorType struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	Description *string `json:"description"`
	Active      bool    `json:"active"`
}

// Connector is one configured content source of an org.
type Connector struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	Active        bool           `json:"active"`
	ConnectorType *ConnectorType `json:"connector_type,omitempty"`
}

// SearchWidget mirrors the deployment configuration served by the
// config service.
type SearchWidget struct {
	ID                    int                `json:"id"`
	Name                  string             `json:"name"`
	Type                  string             `json:"type"`
	DeploymentID          string             `json:"deploymentId"`
	EnableDecisionTrees   bool               `json:"enableDecisionTrees"`
	EnableExternalSources bool               `json:"enableExternalSources"`
	OrgID                 int                `json:"orgId"`
	Active                bool               `json:"active"`
	CreatedAt             string             `json:"createdAt"`
	UpdatedAt             string             `json:"updatedAt"`
	MetadataInfo          WidgetMetadataInfo `json:"metadataInfo"`
}

type WidgetMetadataInfo struct {
	SourcesConfig WidgetSourcesConfig `json:"sourcesConfig"`
	ContentScopes []ContentScope      `json:"contentScopes,omitempty"`
}

type WidgetSourcesConfig struct {
	DecisionTree   WidgetDecisionTree   `json:"decisionTree"`
	ExternalSource WidgetExternalSource `json:"externalSource"`
}

type WidgetDecisionTree struct {
	All     bool  `json:"all"`
	TreeIDs []int `json:"treeIds"`
}

type WidgetExternalSource struct {
	ConnectorIDs []int `json:"connectorIds"`
}

// CompileWidgetFilters merges a deployment's configured scope with the
// caller's filters: the connector allow-set, the decision-tree scoping
// and the content-scope selection. The input filters are not mutated.
// The only failure mode is a missing decision-tree connector while
// decision trees are enabled.
func CompileWidgetFilters(widget *SearchWidget, connectors []Connector, filters Filters) (Filters, error) {
	out := filters.Clone()

	if err := mergeConnectors(widget, connectors, &out); err != nil {
		return Filters{}, err
	}
	if err := setZTConnector(widget, connectors, &out); err != nil {
		return Filters{}, err
	}
	setContentScope(widget, &out)

	return out, nil
}

// mergeConnectors computes the widget's allowed connector ids and
// intersects them with the caller's set, when one was supplied.
func mergeConnectors(widget *SearchWidget, connectors []Connector, out *Filters) error {
	widgetIDs, err := widgetConnectorIDs(widget, connectors)
	if err != nil {
		return err
	}

	if out.Connectors == nil {
		out.Connectors = &widgetIDs
		return nil
	}

	allowed := make(map[int]bool, len(widgetIDs))
	for _, id := range widgetIDs {
		allowed[id] = true
	}
	merged := make([]int, 0, len(*out.Connectors))
	for _, id := range *out.Connectors {
		if allowed[id] {
			merged = append(merged, id)
		}
	}
	out.Connectors = &merged
	return nil
}

// widgetConnectorIDs lists the sources the widget exposes, filtered to
// connectors the org actually resolves.
func widgetConnectorIDs(widget *SearchWidget, connectors []Connector) ([]int, error) {
	var ids []int

	if widget.EnableDecisionTrees {
		zt, err := ztConnector(connectors)
		if err != nil {
			return nil, err
		}
		ids = append(ids, zt.ID)
	}
	if widget.EnableExternalSources {
		ids = append(ids, widget.MetadataInfo.SourcesConfig.ExternalSource.ConnectorIDs...)
	}

	known := make(map[int]bool, len(connectors))
	for _, c := range connectors {
		known[c.ID] = true
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func setZTConnector(widget *SearchWidget, connectors []Connector, out *Filters) error {
	out.ZTConnectorID = nil
	out.ZTTreeIDs = nil

	if !widget.EnableDecisionTrees {
		return nil
	}

	zt, err := ztConnector(connectors)
	if err != nil {
		return err
	}
	out.ZTConnectorID = &zt.ID

	if widget.MetadataInfo.SourcesConfig.DecisionTree.All {
		return nil
	}
	out.ZTTreeIDs = widget.MetadataInfo.SourcesConfig.DecisionTree.TreeIDs
	return nil
}

// WidgetConnectors lists the connectors a widget actually exposes:
// the configured external sources plus the decision-tree connector
// when decision trees are enabled.
func WidgetConnectors(widget *SearchWidget, connectors []Connector) []Connector {
	out := []Connector{}

	if widget.EnableExternalSources {
		allowed := make(map[int]bool, len(widget.MetadataInfo.SourcesConfig.ExternalSource.ConnectorIDs))
		for _, id := range widget.MetadataInfo.SourcesConfig.ExternalSource.ConnectorIDs {
			allowed[id] = true
		}
		for _, c := range connectors {
			if allowed[c.ID] {
				out = append(out, c)
			}
		}
	}
	if widget.EnableDecisionTrees {
		if zt, err := ztConnector(connectors); err == nil {
			out = append(out, *zt)
		}
	}
	return out
}

func ztConnector(connectors []Connector) (*Connector, error) {
	for i := range connectors {
		if t := connectors[i].ConnectorType; t != nil && t.Provider == ztProvider {
			return &connectors[i], nil
		}
	}
	return nil, apierr.NotFound("Zingtree connector not found")
}

// setContentScope picks, among the widget's declared content scopes,
// the first-declared one matching any supplied scope parameter.
// Declaration order is the priority, not match count.
func setContentScope(widget *SearchWidget, out *Filters) {
	if out.ContentScopeParameters == nil {
		return
	}
	out.ContentScopeFilter = nil

	scopes := widget.MetadataInfo.ContentScopes
	best := -1
	for _, param := range out.ContentScopeParameters {
		for i := range scopes {
			if scopes[i].Parameter.Name != param.Name || scopes[i].Parameter.Value != param.Value {
				continue
			}
			if best == -1 || i < best {
				best = i
			}
			break
		}
	}
	if best >= 0 {
		scope := scopes[best]
		out.ContentScopeFilter = &scope
	}
}
