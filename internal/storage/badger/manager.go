package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/common"
	"github.com/sitewright/sitewright/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	batches    interfaces.BatchStore
	recordSets interfaces.RecordSetStore
	blobs      interfaces.BlobStore
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		batches:    NewBatchStorage(db, logger),
		recordSets: NewRecordSetStorage(db, logger),
		blobs:      NewBlobStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Batches returns the batch storage interface
func (m *Manager) Batches() interfaces.BatchStore {
	return m.batches
}

// RecordSets returns the URL record set storage interface
func (m *Manager) RecordSets() interfaces.RecordSetStore {
	return m.recordSets
}

// Blobs returns the blob storage interface
func (m *Manager) Blobs() interfaces.BlobStore {
	return m.blobs
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
