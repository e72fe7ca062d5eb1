// Package search defines the persisted entities of the semantic search
// store.
package search

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Document is one ingested content item (article, decision-tree node,
// HTML page). Tags are stored as composite `"key"."value"` strings so
// array-overlap queries stay cheap.
type Document struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	OrgID       int            `gorm:"column:org_id;not null;index" json:"orgId"`
	Language    *string        `gorm:"column:language" json:"language"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description *string        `gorm:"column:description" json:"description"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[];not null;default:'{}'" json:"tags"`
	Data        datatypes.JSON `gorm:"column:data;type:jsonb;not null" json:"data"`
	ConnectorID int            `gorm:"column:connector_id;not null;index" json:"connectorId"`
	DocumentID  string         `gorm:"column:document_id;not null;index" json:"articleId"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updatedAt"`

	Items []Item `gorm:"foreignKey:DocumentID;references:ID" json:"-"`
}

func (Document) TableName() string { return "semantic_search_documents" }

// Item is one embeddable chunk of a Document. Chunk carries the text
// actually embedded (possibly with title/description concatenated);
// Snippet keeps the raw excerpt for display and summarization.
type Item struct {
	ID         int64           `gorm:"primaryKey" json:"id"`
	Embeddings pgvector.Vector `gorm:"column:embeddings;type:vector(1536);not null" json:"-"`
	Chunk      string          `gorm:"column:chunk;not null" json:"chunk"`
	Snippet    string          `gorm:"column:snippet;not null" json:"snippet"`
	DocumentID int64           `gorm:"column:document_id;not null;index" json:"documentId"`

	Document *Document `gorm:"foreignKey:DocumentID;references:ID" json:"document,omitempty"`
}

func (Item) TableName() string { return "semantic_search_items" }

// SearchBatch records one executed search for analytics. Results are
// stored in the order they were fetched (relevance); click analytics
// capture any re-sorted order the user actually saw.
type SearchBatch struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID        int            `gorm:"column:org_id;not null;index" json:"orgId"`
	DeploymentID string         `gorm:"column:deployment_id;not null;index" json:"deploymentId"`
	Search       string         `gorm:"column:search;not null" json:"search"`
	Filters      datatypes.JSON `gorm:"column:filters;type:jsonb" json:"filters"`
	Limit        *int           `gorm:"column:result_limit" json:"limit"`
	SortBy       string         `gorm:"column:sort_by" json:"sortBy"`
	Results      datatypes.JSON `gorm:"column:results;type:jsonb" json:"results"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (SearchBatch) TableName() string { return "semantic_search_batches" }
