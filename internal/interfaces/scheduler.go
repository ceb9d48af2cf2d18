package interfaces

import (
	"context"

	"github.com/sitewright/sitewright/internal/models"
)

// BatchInput describes one file submitted for conversion
type BatchInput struct {
	FileName string
	Size     int64
	Source   RowSource
}

// Scheduler owns the lifecycle of batches and their conversion tasks
type Scheduler interface {
	// SubmitBatch validates the configuration, registers one task per input
	// file and returns immediately; processing begins asynchronously.
	SubmitBatch(ctx context.Context, files []BatchInput, cfg models.ConversionConfig) (string, error)

	// GetStatus returns the best-known aggregate, even mid-failure
	GetStatus(ctx context.Context, batchID string) (*models.BatchStatusReport, error)

	// Pause stops new task dispatch; in-flight tasks run to completion
	Pause(ctx context.Context, batchID string) error

	// Resume re-enables task dispatch for a paused batch
	Resume(ctx context.Context, batchID string) error

	// Cancel halts dispatch and marks the batch cancelled. In-flight task
	// results are discarded from the aggregate.
	Cancel(ctx context.Context, batchID string) error
}

// Generator assembles sitemap documents from stored URL record sets
type Generator interface {
	// GenerateSitemaps partitions the record set and writes every produced
	// document (and index, when required) to the blob store
	GenerateSitemaps(ctx context.Context, recordSetID string, cfg models.ConversionConfig) (*models.GenerateResult, error)

	// PreviewSitemaps computes the same result shape without writing output
	PreviewSitemaps(ctx context.Context, recordSetID string, cfg models.ConversionConfig) (*models.GenerateResult, error)
}
