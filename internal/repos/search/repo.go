// Package search implements the retrieval and ingestion repositories
// over the pgvector-backed store.
package search

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VonteruManoj/GenMan/internal/apierr"
	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/search"
)

// TagMeta is one (tag, connector) usage count.
type TagMeta struct {
	Tag         string `json:"tag"`
	ConnectorID int    `json:"connectorId"`
	Count       int    `json:"count"`
}

type Repo interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	CreateItems(ctx context.Context, items []*domain.Item) error
	FindDocument(ctx context.Context, documentID string, connectorID, orgID int) (*domain.Document, error)

	Search(ctx context.Context, embedding []float32, orgID int, f search.Filters, limit *int) ([]domain.Item, []float64, error)
	SearchBest(ctx context.Context, embedding []float32, orgID int, f search.Filters, n int) ([]domain.Item, error)
	Suggestions(ctx context.Context, searchText string, orgID int, f search.Filters, limit *int) ([]string, error)
	DeploymentHasDocuments(ctx context.Context, orgID int, f search.Filters) (bool, error)

	FindItemsByIDs(ctx context.Context, ids []int64, orgID int) ([]domain.Item, error)
	GetTags(ctx context.Context, orgID int) ([]string, error)
	GetTagsWithMeta(ctx context.Context, orgID int) ([]TagMeta, error)
	GetLanguages(ctx context.Context, orgID int) ([]string, error)
	GetDocuments(ctx context.Context, orgID, connectorID *int, limit, offset *int) ([]domain.Document, error)

	RemoveDocument(ctx context.Context, documentID string, orgID int) ([]int64, error)
	RemoveDocumentsLike(ctx context.Context, likeDocumentID string, orgID int) ([]int64, error)
}

type repo struct {
	db        *gorm.DB
	log       *logger.Logger
	threshold float64
}

// NewRepo wires the retrieval repository. threshold is the configured
// similarity threshold; search cuts off at twice its value in cosine
// distance.
func NewRepo(db *gorm.DB, baseLog *logger.Logger, threshold float64) Repo {
	return &repo{db: db, log: baseLog.With("repo", "SemanticSearchRepo"), threshold: threshold}
}

const documentsJoin = "JOIN semantic_search_documents ON semantic_search_documents.id = semantic_search_items.document_id"

func applyConds(q *gorm.DB, conds []search.Cond) *gorm.DB {
	for _, c := range conds {
		q = q.Where(c.SQL, c.Vars...)
	}
	return q
}

func (r *repo) CreateDocument(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repo) CreateItems(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindDocument(ctx context.Context, documentID string, connectorID, orgID int) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND connector_id = ? AND org_id = ?", documentID, connectorID, orgID).
		First(&doc).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Search returns the nearest chunk per document, closest first, cut
// off at twice the configured threshold. The second return value
// aligns distance with item index.
func (r *repo) Search(ctx context.Context, embedding []float32, orgID int, f search.Filters, limit *int) ([]domain.Item, []float64, error) {
	vec := pgvector.NewVector(embedding)
	conds := search.CompileConds(f, r.log)

	// One candidate per document: the chunk nearest to the query.
	sub := r.db.WithContext(ctx).Model(&domain.Item{}).
		Select("DISTINCT ON (semantic_search_items.document_id) semantic_search_items.id").
		Joins(documentsJoin).
		Where("semantic_search_documents.org_id = ?", orgID)
	sub = applyConds(sub, conds)
	sub = sub.Clauses(clause.OrderBy{Expression: clause.Expr{
		SQL:                "semantic_search_items.document_id, semantic_search_items.embeddings <=> ?",
		Vars:               []interface{}{vec},
		WithoutParentheses: true,
	}})

	type hit struct {
		ID       int64
		Distance float64
	}
	var hits []hit
	q := r.db.WithContext(ctx).Model(&domain.Item{}).
		Select("semantic_search_items.id, semantic_search_items.embeddings <=> ? AS distance", vec).
		Where("semantic_search_items.id IN (?)", sub).
		Where("semantic_search_items.embeddings <=> ? < ?", vec, r.threshold*2).
		Order("distance")
	if limit != nil {
		q = q.Limit(*limit)
	}
	if err := q.Scan(&hits).Error; err != nil {
		return nil, nil, err
	}
	if len(hits) == 0 {
		return []domain.Item{}, []float64{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	var items []domain.Item
	if err := r.db.WithContext(ctx).Preload("Document").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	ordered := make([]domain.Item, 0, len(hits))
	distances := make([]float64, 0, len(hits))
	for _, h := range hits {
		if it, ok := byID[h.ID]; ok {
			ordered = append(ordered, it)
			distances = append(distances, h.Distance)
		}
	}
	return ordered, distances, nil
}

// SearchBest keeps every matching chunk as a candidate; breadth within
// a document matters more than diversity across documents here.
func (r *repo) SearchBest(ctx context.Context, embedding []float32, orgID int, f search.Filters, n int) ([]domain.Item, error) {
	vec := pgvector.NewVector(embedding)
	conds := search.CompileConds(f, r.log)

	q := r.db.WithContext(ctx).Model(&domain.Item{}).
		Select("semantic_search_items.*").
		Joins(documentsJoin).
		Where("semantic_search_documents.org_id = ?", orgID)
	q = applyConds(q, conds)
	q = q.Clauses(clause.OrderBy{Expression: clause.Expr{
		SQL:                "semantic_search_items.embeddings <=> ?",
		Vars:               []interface{}{vec},
		WithoutParentheses: true,
	}}).Limit(n)

	var items []domain.Item
	if err := q.Preload("Document").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Suggestions unions case-insensitive substring matches over titles
// and descriptions, shortest match first.
func (r *repo) Suggestions(ctx context.Context, searchText string, orgID int, f search.Filters, limit *int) ([]string, error) {
	conds := search.CompileConds(f, r.log)

	titleQ := r.suggestionPartial(ctx, "title", searchText, orgID, conds, limit)
	descQ := r.suggestionPartial(ctx, "description", searchText, orgID, conds, limit)

	sql := "SELECT DISTINCT u.suggestion, u.len FROM ((?) UNION ALL (?)) AS u ORDER BY u.len"
	vars := []interface{}{titleQ, descQ}
	if limit != nil {
		sql += " LIMIT ?"
		vars = append(vars, *limit)
	}

	var rows []struct {
		Suggestion string
		Len        int
	}
	if err := r.db.WithContext(ctx).Raw(sql, vars...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Suggestion
	}
	return out, nil
}

func (r *repo) suggestionPartial(ctx context.Context, column, searchText string, orgID int, conds []search.Cond, limit *int) *gorm.DB {
	col := "semantic_search_documents." + column
	q := r.db.WithContext(ctx).Model(&domain.Document{}).
		Select(fmt.Sprintf("DISTINCT %s AS suggestion, length(%s) AS len", col, col)).
		Where("semantic_search_documents.org_id = ?", orgID).
		Where(col+" ILIKE ?", "%"+searchText+"%")
	q = applyConds(q, conds)
	q = q.Order("len")
	if limit != nil {
		q = q.Limit(*limit)
	}
	return q
}

func (r *repo) DeploymentHasDocuments(ctx context.Context, orgID int, f search.Filters) (bool, error) {
	conds := search.CompileConds(f, r.log)

	var ids []int64
	q := r.db.WithContext(ctx).Model(&domain.Document{}).
		Select("semantic_search_documents.id").
		Where("semantic_search_documents.org_id = ?", orgID).
		Limit(1)
	q = applyConds(q, conds)
	if err := q.Scan(&ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *repo) FindItemsByIDs(ctx context.Context, ids []int64, orgID int) ([]domain.Item, error) {
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}
	var items []domain.Item
	err := r.db.WithContext(ctx).Model(&domain.Item{}).
		Select("semantic_search_items.*").
		Joins(documentsJoin).
		Where("semantic_search_items.id IN ?", ids).
		Where("semantic_search_documents.org_id = ?", orgID).
		Preload("Document").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) GetTags(ctx context.Context, orgID int) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT unnest(tags) FROM semantic_search_documents WHERE org_id = ?", orgID).
		Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repo) GetTagsWithMeta(ctx context.Context, orgID int) ([]TagMeta, error) {
	var rows []TagMeta
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.tag, t.connector_id, count(*) AS count
		 FROM (SELECT connector_id, unnest(tags) AS tag FROM semantic_search_documents WHERE org_id = ?) t
		 GROUP BY t.tag, t.connector_id`, orgID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) GetLanguages(ctx context.Context, orgID int) ([]string, error) {
	var languages []string
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Distinct().
		Where("org_id = ? AND language IS NOT NULL", orgID).
		Pluck("language", &languages).Error
	if err != nil {
		return nil, err
	}
	return languages, nil
}

func (r *repo) GetDocuments(ctx context.Context, orgID, connectorID *int, limit, offset *int) ([]domain.Document, error) {
	if orgID == nil && connectorID == nil {
		return nil, apierr.Validation("orgId or connectorId must be provided")
	}
	if (limit == nil) != (offset == nil) {
		return nil, apierr.Validation("limit and offset must be provided together")
	}

	q := r.db.WithContext(ctx).Model(&domain.Document{})
	if orgID != nil {
		q = q.Where("org_id = ?", *orgID)
	}
	if connectorID != nil {
		q = q.Where("connector_id = ?", *connectorID)
	}
	if limit != nil && offset != nil {
		q = q.Limit(*limit).Offset(*offset)
	}

	var docs []domain.Document
	if err := q.Order("id").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// RemoveDocument deletes a document and its items by external document
// id, returning the removed item ids.
func (r *repo) RemoveDocument(ctx context.Context, documentID string, orgID int) ([]int64, error) {
	var itemIDs []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var docIDs []int64
		if err := tx.Model(&domain.Document{}).
			Where("document_id = ? AND org_id = ?", documentID, orgID).
			Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) == 0 {
			return nil
		}
		if err := tx.Model(&domain.Item{}).
			Where("document_id IN ?", docIDs).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id IN ?", docIDs).Delete(&domain.Item{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", docIDs).Delete(&domain.Document{}).Error
	})
	if err != nil {
		return nil, err
	}
	return itemIDs, nil
}

// RemoveDocumentsLike bulk-deletes every document whose external id
// matches the LIKE pattern (source-id prefix cleanup).
func (r *repo) RemoveDocumentsLike(ctx context.Context, likeDocumentID string, orgID int) ([]int64, error) {
	var itemIDs []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var docIDs []int64
		if err := tx.Model(&domain.Document{}).
			Where("document_id LIKE ? AND org_id = ?", likeDocumentID, orgID).
			Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) == 0 {
			return nil
		}
		if err := tx.Model(&domain.Item{}).
			Where("document_id IN ?", docIDs).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id IN ?", docIDs).Delete(&domain.Item{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", docIDs).Delete(&domain.Document{}).Error
	})
	if err != nil {
		return nil, err
	}
	return itemIDs, nil
}
