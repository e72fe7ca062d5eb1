package search

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/search"
)

// BatchResult is one scored option as persisted in a search batch.
type BatchResult struct {
	ItemID     int64   `json:"itemId"`
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Distance   float64 `json:"distance"`
}

type AnalyticsRepo interface {
	// FromSearch persists one search execution and returns its batch id.
	FromSearch(ctx context.Context, orgID int, deploymentID, searchText, sortBy string, f search.Filters, results []BatchResult, limit *int) (uuid.UUID, error)
	FindBatch(ctx context.Context, id uuid.UUID) (*domain.SearchBatch, error)
}

type analyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) AnalyticsRepo {
	return &analyticsRepo{db: db, log: baseLog.With("repo", "SearchAnalyticsRepo")}
}

func (r *analyticsRepo) FromSearch(ctx context.Context, orgID int, deploymentID, searchText, sortBy string, f search.Filters, results []BatchResult, limit *int) (uuid.UUID, error) {
	filtersJSON, err := json.Marshal(f)
	if err != nil {
		return uuid.Nil, err
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return uuid.Nil, err
	}

	batch := domain.SearchBatch{
		ID:           uuid.New(),
		OrgID:        orgID,
		DeploymentID: deploymentID,
		Search:       searchText,
		SortBy:       sortBy,
		Filters:      datatypes.JSON(filtersJSON),
		Results:      datatypes.JSON(resultsJSON),
		Limit:        limit,
	}
	if err := r.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return uuid.Nil, err
	}
	return batch.ID, nil
}

func (r *analyticsRepo) FindBatch(ctx context.Context, id uuid.UUID) (*domain.SearchBatch, error) {
	var batch domain.SearchBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}
