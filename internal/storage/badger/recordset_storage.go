package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
)

// RecordSetStorage implements the RecordSetStore interface for Badger
type RecordSetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecordSetStorage creates a new RecordSetStorage instance
func NewRecordSetStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecordSetStore {
	return &RecordSetStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RecordSetStorage) SaveRecordSet(ctx context.Context, set *models.URLRecordSet) error {
	if set.ID == "" {
		return fmt.Errorf("record set ID is required")
	}

	if err := s.db.Store().Upsert(set.ID, set); err != nil {
		return fmt.Errorf("failed to save record set: %w", err)
	}

	s.logger.Debug().
		Str("set_id", set.ID).
		Int("records", len(set.Records)).
		Msg("Record set saved")
	return nil
}

func (s *RecordSetStorage) GetRecordSet(ctx context.Context, id string) (*models.URLRecordSet, error) {
	var set models.URLRecordSet
	if err := s.db.Store().Get(id, &set); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("record set not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get record set: %w", err)
	}
	return &set, nil
}

func (s *RecordSetStorage) DeleteRecordSet(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.URLRecordSet{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete record set: %w", err)
	}
	return nil
}

func (s *RecordSetStorage) ListRecordSets(ctx context.Context, batchID string) ([]*models.URLRecordSet, error) {
	var sets []models.URLRecordSet
	if err := s.db.Store().Find(&sets, badgerhold.Where("BatchID").Eq(batchID).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list record sets: %w", err)
	}

	result := make([]*models.URLRecordSet, len(sets))
	for i := range sets {
		result[i] = &sets[i]
	}
	return result, nil
}
