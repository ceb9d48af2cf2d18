package interfaces

import (
	"context"

	"github.com/sitewright/sitewright/internal/models"
)

// BlobStore persists produced document bytes keyed by name. List enumerates
// keys belonging to one batch.
type BlobStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, batchID string) ([]string, error)
}

// RecordSetStore persists conversion results
type RecordSetStore interface {
	SaveRecordSet(ctx context.Context, set *models.URLRecordSet) error
	GetRecordSet(ctx context.Context, id string) (*models.URLRecordSet, error)
	DeleteRecordSet(ctx context.Context, id string) error
	ListRecordSets(ctx context.Context, batchID string) ([]*models.URLRecordSet, error)
}

// BatchStore holds the durable copy of batch and task state
type BatchStore interface {
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)
	ListBatches(ctx context.Context) ([]*models.Batch, error)
	DeleteBatch(ctx context.Context, batchID string) error
}

// StorageManager bundles the storage collaborators behind one lifecycle
type StorageManager interface {
	Batches() BatchStore
	RecordSets() RecordSetStore
	Blobs() BlobStore
	Close() error
}
