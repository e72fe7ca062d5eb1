package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/VonteruManoj/GenMan/internal/chunker"
	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/repos/search"
	"github.com/VonteruManoj/GenMan/internal/tags"
)

// IngestDocumentInput is one content item to chunk, embed and store.
type IngestDocumentInput struct {
	OrgID       int
	ConnectorID int
	DocumentID  string
	Title       string
	Description *string
	Language    *string
	Content     string
	Tags        map[string][]string
	Data        map[string]interface{}
}

type IngestionService struct {
	log      *logger.Logger
	embedder Embedder
	chunker  chunker.Chunker
	repo     search.Repo
}

func NewIngestionService(baseLog *logger.Logger, embedder Embedder, ch chunker.Chunker, repo search.Repo) *IngestionService {
	return &IngestionService{
		log:      baseLog.With("service", "IngestionService"),
		embedder: embedder,
		chunker:  ch,
		repo:     repo,
	}
}

// IngestDocument replaces any stored version of the document, then
// chunks and embeds the content and stores the document with its
// items. A document with neither content nor title is skipped.
func (s *IngestionService) IngestDocument(ctx context.Context, input IngestDocumentInput) (*domain.Document, error) {
	if input.Content == "" && input.Title == "" {
		s.log.Warn("Skipping document with no content and no title",
			"org_id", input.OrgID, "document_id", input.DocumentID)
		return nil, nil
	}

	existing, err := s.repo.FindDocument(ctx, input.DocumentID, input.ConnectorID, input.OrgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if _, err := s.repo.RemoveDocument(ctx, input.DocumentID, input.OrgID); err != nil {
			return nil, err
		}
	}

	var description string
	if input.Description != nil {
		description = *input.Description
	}
	concatStr := s.chunker.ConcatString(input.Title, description)
	chunks, snippets := s.chunker.Chunk(input.Title, input.Content, concatStr)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", input.DocumentID)
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	data := input.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		OrgID:       input.OrgID,
		Language:    input.Language,
		Title:       input.Title,
		Description: input.Description,
		Tags:        pq.StringArray(tags.Encode(input.Tags)),
		Data:        dataJSON,
		ConnectorID: input.ConnectorID,
		DocumentID:  input.DocumentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	items := make([]*domain.Item, len(chunks))
	for i := range chunks {
		items[i] = &domain.Item{
			Embeddings: pgvector.NewVector(vectors[i]),
			Chunk:      chunks[i],
			Snippet:    snippets[i],
			DocumentID: doc.ID,
		}
	}
	if err := s.repo.CreateItems(ctx, items); err != nil {
		return nil, err
	}

	s.log.Info("Document ingested",
		"org_id", input.OrgID, "document_id", input.DocumentID, "items", len(items))
	return doc, nil
}

// DeleteDocument removes a document and its items by external id.
func (s *IngestionService) DeleteDocument(ctx context.Context, documentID string, orgID int) error {
	itemIDs, err := s.repo.RemoveDocument(ctx, documentID, orgID)
	if err != nil {
		return err
	}
	s.log.Info("Document removed", "org_id", orgID, "document_id", documentID, "items", len(itemIDs))
	return nil
}

// DeleteDocumentsBySource removes every document whose external id
// starts with the given source prefix.
func (s *IngestionService) DeleteDocumentsBySource(ctx context.Context, sourceID string, orgID int) error {
	itemIDs, err := s.repo.RemoveDocumentsLike(ctx, sourceID+"%", orgID)
	if err != nil {
		return err
	}
	s.log.Info("Source documents removed", "org_id", orgID, "source_id", sourceID, "items", len(itemIDs))
	return nil
}
