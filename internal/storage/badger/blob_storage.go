package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sitewright/sitewright/internal/interfaces"
)

// Blob is one stored document. The leading key segment is the owning scope,
// so List can enumerate everything produced for a batch or record set
// regardless of how the remainder of the key is structured.
type Blob struct {
	Key     string
	Scope   string
	Data    []byte
	SavedAt time.Time
}

// BlobStorage implements the BlobStore interface for Badger
type BlobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBlobStorage creates a new BlobStorage instance
func NewBlobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BlobStore {
	return &BlobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *BlobStorage) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key is required")
	}

	blob := Blob{
		Key:     key,
		Scope:   scopeOf(key),
		Data:    data,
		SavedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(key, &blob); err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}

	s.logger.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Blob saved")
	return nil
}

func (s *BlobStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var blob Blob
	if err := s.db.Store().Get(key, &blob); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("blob not found: %s", key)
		}
		return nil, fmt.Errorf("failed to load blob %s: %w", key, err)
	}
	return blob.Data, nil
}

func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &Blob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

func (s *BlobStorage) List(ctx context.Context, scope string) ([]string, error) {
	var blobs []Blob
	if err := s.db.Store().Find(&blobs, badgerhold.Where("Scope").Eq(scope).SortBy("Key")); err != nil {
		return nil, fmt.Errorf("failed to list blobs for %s: %w", scope, err)
	}

	keys := make([]string, len(blobs))
	for i := range blobs {
		keys[i] = blobs[i].Key
	}
	return keys, nil
}

// scopeOf extracts the owning scope from a "<scope>/<name>" key
func scopeOf(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return key
}
