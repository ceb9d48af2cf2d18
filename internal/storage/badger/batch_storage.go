package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
)

// BatchStorage implements the BatchStore interface for Badger
type BatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBatchStorage creates a new BatchStorage instance
func NewBatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BatchStore {
	return &BatchStorage{
		db:     db,
		logger: logger,
	}
}

func (s *BatchStorage) SaveBatch(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch ID is required")
	}

	if err := s.db.Store().Upsert(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (s *BatchStorage) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("batch not found: %s", batchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

func (s *BatchStorage) ListBatches(ctx context.Context) ([]*models.Batch, error) {
	var batches []models.Batch
	if err := s.db.Store().Find(&batches, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	result := make([]*models.Batch, len(batches))
	for i := range batches {
		result[i] = &batches[i]
	}
	return result, nil
}

func (s *BatchStorage) DeleteBatch(ctx context.Context, batchID string) error {
	if err := s.db.Store().Delete(batchID, &models.Batch{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
