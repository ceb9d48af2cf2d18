package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
	"github.com/sitewright/sitewright/internal/sitemap"
)

// Service assembles sitemap documents from stored URL record sets and hands
// the rendered bytes to the blob store. Preview runs compute the same result
// without writing anything.
type Service struct {
	recordSets interfaces.RecordSetStore
	blobs      interfaces.BlobStore
	logger     arbor.ILogger
	now        func() time.Time
}

// NewService creates a generator service
func NewService(recordSets interfaces.RecordSetStore, blobs interfaces.BlobStore, logger arbor.ILogger) *Service {
	return &Service{
		recordSets: recordSets,
		blobs:      blobs,
		logger:     logger,
		now:        time.Now,
	}
}

// GenerateSitemaps partitions the record set, renders every chunk and the
// index (when more than one file exists) and persists the documents under
// the record set's key scope.
func (s *Service) GenerateSitemaps(ctx context.Context, recordSetID string, cfg models.ConversionConfig) (*models.GenerateResult, error) {
	return s.assemble(ctx, recordSetID, cfg, true)
}

// PreviewSitemaps returns the same result shape as GenerateSitemaps without
// writing output
func (s *Service) PreviewSitemaps(ctx context.Context, recordSetID string, cfg models.ConversionConfig) (*models.GenerateResult, error) {
	return s.assemble(ctx, recordSetID, cfg, false)
}

func (s *Service) assemble(ctx context.Context, recordSetID string, cfg models.ConversionConfig, write bool) (*models.GenerateResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, models.NewTaskError(models.ErrorCategoryValidation, err.Error())
	}

	set, err := s.recordSets.GetRecordSet(ctx, recordSetID)
	if err != nil {
		return nil, models.NewTaskError(models.ErrorCategoryStorage, fmt.Sprintf("failed to load record set %s: %v", recordSetID, err))
	}

	chunker := sitemap.NewChunker(cfg)
	files := chunker.Partition(set.Records)

	result := &models.GenerateResult{}
	for i := range files {
		file := &files[i]

		if write {
			data, err := sitemap.RenderSitemap(file)
			if err != nil {
				return nil, models.NewTaskError(models.ErrorCategoryProcessing, err.Error())
			}
			if err := s.blobs.Save(ctx, blobKey(set, file.Name), data); err != nil {
				return nil, models.NewTaskError(models.ErrorCategoryStorage, fmt.Sprintf("failed to store %s: %v", file.Name, err))
			}
		}

		result.Files = append(result.Files, models.GeneratedFile{
			Name:     file.Name,
			URLCount: file.Count(),
		})
	}

	if index := chunker.BuildIndex(files, s.now()); index != nil {
		result.HasIndex = true
		result.IndexName = index.Name

		if write {
			data, err := sitemap.RenderIndex(index)
			if err != nil {
				return nil, models.NewTaskError(models.ErrorCategoryProcessing, err.Error())
			}
			if err := s.blobs.Save(ctx, blobKey(set, index.Name), data); err != nil {
				return nil, models.NewTaskError(models.ErrorCategoryStorage, fmt.Sprintf("failed to store %s: %v", index.Name, err))
			}
		}
	}

	s.logger.Info().
		Str("record_set", recordSetID).
		Int("files", len(result.Files)).
		Bool("index", result.HasIndex).
		Bool("written", write).
		Msg("Sitemap assembly finished")

	return result, nil
}

// blobKey scopes produced documents to the owning batch and record set.
// Sibling tasks of one batch produce the same default file names, so the set
// ID keeps their documents from colliding while BlobStore.List still
// enumerates the whole batch.
func blobKey(set *models.URLRecordSet, name string) string {
	if set.BatchID == "" {
		return set.ID + "/" + name
	}
	return set.BatchID + "/" + set.ID + "/" + name
}
