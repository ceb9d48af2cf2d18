// -----------------------------------------------------------------------
// Scheduler - batch lifecycle, bounded dispatch, retry and progress
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/common"
	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
	"github.com/sitewright/sitewright/internal/transform"
)

// Options tunes dispatch, retry and cleanup behavior
type Options struct {
	PollInterval    time.Duration // fallback dispatch re-check interval
	RetryBaseDelay  time.Duration // linear backoff base
	GracePeriod     time.Duration // retention of terminal batches in memory
	CleanupSchedule string        // cron expression for the cleanup sweep
}

// DefaultOptions returns production defaults
func DefaultOptions() Options {
	return Options{
		PollInterval:    500 * time.Millisecond,
		RetryBaseDelay:  2 * time.Second,
		GracePeriod:     30 * time.Minute,
		CleanupSchedule: "@every 5m",
	}
}

// batchRuntime pairs an active batch with its row sources and wake channel.
// The sources never outlive the runtime.
type batchRuntime struct {
	batch   *models.Batch
	sources map[string]interfaces.RowSource // keyed by task ID
	wake    chan struct{}
}

// Scheduler owns every active batch and is the single writer of batch and
// task state. Readers go through snapshot queries and never mutate.
type Scheduler struct {
	mu      sync.RWMutex
	batches map[string]*batchRuntime

	batchStore interfaces.BatchStore
	recordSets interfaces.RecordSetStore
	opts       Options
	logger     arbor.ILogger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler backed by the given stores
func New(batchStore interfaces.BatchStore, recordSets interfaces.RecordSetStore, opts Options, logger arbor.ILogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		batches:    make(map[string]*batchRuntime),
		batchStore: batchStore,
		recordSets: recordSets,
		opts:       opts,
		logger:     logger,
		cron:       cron.New(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the periodic cleanup of terminal batches
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.CleanupSchedule, s.cleanupTerminal); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.opts.CleanupSchedule, err)
	}
	s.cron.Start()
	s.logger.Info().
		Str("cleanup_schedule", s.opts.CleanupSchedule).
		Dur("poll_interval", s.opts.PollInterval).
		Msg("Scheduler started")
	return nil
}

// Stop halts dispatch loops and the cleanup cron. In-flight tasks observe
// context cancellation cooperatively.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// SubmitBatch validates the configuration, creates one pending task per file
// and returns immediately. Processing begins asynchronously.
func (s *Scheduler) SubmitBatch(ctx context.Context, files []interfaces.BatchInput, cfg models.ConversionConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", models.NewTaskError(models.ErrorCategoryValidation, err.Error())
	}
	if len(files) == 0 {
		return "", models.NewTaskError(models.ErrorCategoryValidation, "batch contains no files")
	}

	now := time.Now()
	batch := &models.Batch{
		ID:        common.NewBatchID(),
		Config:    cfg,
		Status:    models.BatchStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rt := &batchRuntime{
		batch:   batch,
		sources: make(map[string]interfaces.RowSource, len(files)),
		wake:    make(chan struct{}, 1),
	}

	for _, f := range files {
		task := &models.Task{
			ID:         common.NewTaskID(),
			BatchID:    batch.ID,
			SourceFile: f.FileName,
			SourceSize: f.Size,
			Status:     models.TaskStatusPending,
			CreatedAt:  now,
		}
		batch.Tasks = append(batch.Tasks, task)
		rt.sources[task.ID] = f.Source
	}

	if err := s.batchStore.SaveBatch(ctx, batch); err != nil {
		return "", models.NewTaskError(models.ErrorCategoryStorage, fmt.Sprintf("failed to persist batch: %v", err))
	}

	s.mu.Lock()
	s.batches[batch.ID] = rt
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runBatch(rt)

	s.logger.Info().
		Str("batch_id", batch.ID).
		Int("files", len(files)).
		Int("concurrency", cfg.MaxConcurrentFiles).
		Msg("Batch submitted")

	return batch.ID, nil
}

// runBatch is the dispatch loop for one batch. It wakes on task completion
// and falls back to a fixed poll tick for retry backoff expiry.
func (s *Scheduler) runBatch(rt *batchRuntime) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		s.dispatch(rt)

		if s.isBatchDone(rt) {
			s.finalize(rt)
			return
		}

		select {
		case <-rt.wake:
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

// dispatch admits pending tasks in submission order up to the concurrency
// limit. Tasks inside their retry backoff window are passed over.
func (s *Scheduler) dispatch(rt *batchRuntime) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := rt.batch
	if batch.Paused || batch.Status == models.BatchStatusCancelled {
		return
	}

	processing := 0
	for _, t := range batch.Tasks {
		if t.Status == models.TaskStatusProcessing {
			processing++
		}
	}

	available := batch.Config.MaxConcurrentFiles - processing
	now := time.Now()

	for _, task := range batch.Tasks {
		if available <= 0 {
			break
		}
		if task.Status != models.TaskStatusPending || task.NextAttemptAt.After(now) {
			continue
		}

		task.MarkStarted()
		if batch.StartedAt == nil {
			started := now
			batch.StartedAt = &started
		}
		available--

		s.logger.Debug().
			Str("batch_id", batch.ID).
			Str("task_id", task.ID).
			Str("file", task.SourceFile).
			Int("attempt", task.Attempts).
			Msg("Task dispatched")

		s.wg.Add(1)
		go s.runTask(rt, task, rt.sources[task.ID])
	}

	batch.Status = batch.DeriveStatus()
	batch.UpdatedAt = now
}

// runTask executes one conversion bounded by the configured timeout. Tracked
// by the scheduler's WaitGroup so Stop returns only after in-flight tasks
// have recorded their outcome.
func (s *Scheduler) runTask(rt *batchRuntime, task *models.Task, src interfaces.RowSource) {
	defer s.wg.Done()

	cfg := rt.batch.Config

	ctx, cancel := context.WithTimeout(s.ctx, cfg.Timeout())
	defer cancel()

	transformer := transform.New(cfg, s.logger)
	set, _, err := transformer.ConvertFile(ctx, task.SourceFile, src)

	if err == nil {
		set.BatchID = rt.batch.ID
		set.TaskID = task.ID
		if saveErr := s.recordSets.SaveRecordSet(ctx, set); saveErr != nil {
			err = models.NewTaskError(models.ErrorCategoryStorage, fmt.Sprintf("failed to save record set: %v", saveErr))
			set = nil
		}
	}

	s.completeTask(rt, task, set, err)
}

// completeTask applies the task outcome under the scheduler lock. Failures
// never propagate to sibling tasks.
func (s *Scheduler) completeTask(rt *batchRuntime, task *models.Task, set *models.URLRecordSet, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := rt.batch

	if batch.Status == models.BatchStatusCancelled {
		// Results of in-flight tasks are discarded from the aggregate
		task.MarkSkipped()
		s.persist(batch)
		return
	}

	switch {
	case err != nil:
		taskErr := Classify(err)
		if taskErr.Retryable && task.Attempts <= batch.Config.RetryAttempts {
			delay := RetryDelay(s.opts.RetryBaseDelay, task.Attempts)
			task.MarkRetrying(taskErr, time.Now().Add(delay))
			s.logger.Warn().
				Str("task_id", task.ID).
				Str("category", string(taskErr.Category)).
				Int("attempt", task.Attempts).
				Dur("retry_in", delay).
				Msg("Task failed, retry scheduled")
		} else {
			task.MarkFailed(taskErr)
			s.logger.Error().
				Str("task_id", task.ID).
				Str("category", string(taskErr.Category)).
				Int("attempts", task.Attempts).
				Msg("Task failed permanently")
		}
	default:
		task.MarkCompleted(set.ID, set.Stats)
		s.logger.Info().
			Str("task_id", task.ID).
			Str("result_set", set.ID).
			Int("valid_urls", set.Stats.ValidURLs).
			Msg("Task completed")
	}

	batch.Status = batch.DeriveStatus()
	batch.UpdatedAt = time.Now()
	s.persist(batch)

	// Wake the dispatch loop without blocking
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// isBatchDone reports whether the dispatch loop should exit
func (s *Scheduler) isBatchDone(rt *batchRuntime) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := rt.batch
	if batch.Status == models.BatchStatusCancelled {
		// Wait for in-flight tasks to drain before exiting
		for _, t := range batch.Tasks {
			if t.Status == models.TaskStatusProcessing {
				return false
			}
		}
		return true
	}

	for _, t := range batch.Tasks {
		if !t.IsTerminal() {
			return false
		}
	}
	return len(batch.Tasks) > 0
}

// finalize stamps the terminal state and persists the durable copy
func (s *Scheduler) finalize(rt *batchRuntime) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := rt.batch
	if batch.Status != models.BatchStatusCancelled {
		batch.Status = batch.DeriveStatus()
	}
	if batch.CompletedAt == nil {
		now := time.Now()
		batch.CompletedAt = &now
	}
	batch.UpdatedAt = time.Now()
	s.persist(batch)

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("status", string(batch.Status)).
		Msg("Batch finished")
}

// persist writes the durable copy. Persistence failures are logged, never
// allowed to disturb scheduling.
func (s *Scheduler) persist(batch *models.Batch) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.batchStore.SaveBatch(ctx, batch); err != nil {
		s.logger.Warn().
			Err(err).
			Str("batch_id", batch.ID).
			Msg("Failed to persist batch state")
	}
}

// GetStatus returns the best-known aggregate for the batch, even mid-failure.
// Batches already evicted from memory are answered from the durable copy.
func (s *Scheduler) GetStatus(ctx context.Context, batchID string) (*models.BatchStatusReport, error) {
	s.mu.RLock()
	rt, ok := s.batches[batchID]
	if ok {
		report := BuildReport(rt.batch, time.Now())
		s.mu.RUnlock()
		return report, nil
	}
	s.mu.RUnlock()

	batch, err := s.batchStore.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch not found: %s", batchID)
	}
	return BuildReport(batch, time.Now()), nil
}

// Pause stops new task dispatch. Tasks already processing run to completion.
func (s *Scheduler) Pause(ctx context.Context, batchID string) error {
	return s.setPaused(batchID, true)
}

// Resume re-enables dispatch for a paused batch
func (s *Scheduler) Resume(ctx context.Context, batchID string) error {
	return s.setPaused(batchID, false)
}

func (s *Scheduler) setPaused(batchID string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("batch not found: %s", batchID)
	}
	if rt.batch.IsTerminal() {
		return fmt.Errorf("batch %s is already %s", batchID, rt.batch.Status)
	}

	rt.batch.Paused = paused
	rt.batch.UpdatedAt = time.Now()
	s.persist(rt.batch)

	select {
	case rt.wake <- struct{}{}:
	default:
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Bool("paused", paused).
		Msg("Batch pause state changed")
	return nil
}

// Cancel halts dispatch and marks the batch cancelled. In-flight tasks are
// not forcibly aborted; their late results are discarded from the aggregate.
func (s *Scheduler) Cancel(ctx context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("batch not found: %s", batchID)
	}
	if rt.batch.IsTerminal() {
		return fmt.Errorf("batch %s is already %s", batchID, rt.batch.Status)
	}

	now := time.Now()
	rt.batch.Status = models.BatchStatusCancelled
	rt.batch.Paused = false
	rt.batch.UpdatedAt = now
	for _, t := range rt.batch.Tasks {
		if t.Status == models.TaskStatusPending {
			t.MarkSkipped()
		}
	}
	s.persist(rt.batch)

	select {
	case rt.wake <- struct{}{}:
	default:
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Msg("Batch cancelled")
	return nil
}

// cleanupTerminal evicts terminal batches past the grace period from active
// memory. The durable copy in the batch store is untouched.
func (s *Scheduler) cleanupTerminal() {
	cutoff := time.Now().Add(-s.opts.GracePeriod)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rt := range s.batches {
		b := rt.batch
		if b.IsTerminal() && b.CompletedAt != nil && b.CompletedAt.Before(cutoff) {
			delete(s.batches, id)
			s.logger.Debug().
				Str("batch_id", id).
				Str("status", string(b.Status)).
				Msg("Terminal batch evicted from memory")
		}
	}
}
