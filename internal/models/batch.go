// -----------------------------------------------------------------------
// Batch and Task - shared state model for the conversion scheduler
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of one file conversion task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusError      TaskStatus = "error"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// BatchStatus is derived from task states, never stored independently of them
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "queued"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusPartial    BatchStatus = "partial" // some tasks completed, some failed
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// ErrorCategory classifies task failures for retry decisions
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryProcessing ErrorCategory = "processing"
	ErrorCategoryStorage    ErrorCategory = "storage"
	ErrorCategoryTimeout    ErrorCategory = "timeout"
)

// TaskError is a classified task failure. It implements error so components
// can return it directly and the scheduler can recover the classification.
type TaskError struct {
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// NewTaskError creates a classified error. Storage and timeout categories
// are retryable by construction.
func NewTaskError(category ErrorCategory, message string) *TaskError {
	return &TaskError{
		Category:  category,
		Message:   message,
		Retryable: category == ErrorCategoryStorage || category == ErrorCategoryTimeout,
	}
}

// Task is the unit of scheduled work: converting one source file into a URL
// record set. A task belongs to exactly one batch and is mutated only by the
// scheduler's transition functions.
type Task struct {
	ID         string `json:"id"`
	BatchID    string `json:"batch_id"`
	SourceFile string `json:"source_file"`
	SourceSize int64  `json:"source_size"`

	Status   TaskStatus `json:"status"`
	Attempts int        `json:"attempts"`

	LastError   *TaskError      `json:"last_error,omitempty"`
	ResultSetID string          `json:"result_set_id,omitempty"`
	Stats       ConversionStats `json:"stats"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// NextAttemptAt gates re-dispatch after a retryable failure
	NextAttemptAt time.Time `json:"next_attempt_at,omitempty"`
}

// MarkStarted transitions the task to processing and counts the attempt
func (t *Task) MarkStarted() {
	t.Status = TaskStatusProcessing
	t.Attempts++
	now := time.Now()
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
}

// MarkCompleted records a successful conversion result
func (t *Task) MarkCompleted(resultSetID string, stats ConversionStats) {
	t.Status = TaskStatusCompleted
	t.ResultSetID = resultSetID
	t.Stats = stats
	t.LastError = nil
	now := time.Now()
	t.CompletedAt = &now
}

// MarkFailed records a terminal failure
func (t *Task) MarkFailed(taskErr *TaskError) {
	t.Status = TaskStatusError
	t.LastError = taskErr
	now := time.Now()
	t.CompletedAt = &now
}

// MarkRetrying returns the task to pending with a not-before time
func (t *Task) MarkRetrying(taskErr *TaskError, nextAttempt time.Time) {
	t.Status = TaskStatusPending
	t.LastError = taskErr
	t.NextAttemptAt = nextAttempt
}

// MarkSkipped marks the task as deliberately not processed
func (t *Task) MarkSkipped() {
	t.Status = TaskStatusSkipped
	now := time.Now()
	t.CompletedAt = &now
}

// IsTerminal returns true once the task can no longer change state
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted ||
		t.Status == TaskStatusError ||
		t.Status == TaskStatusSkipped
}

// Duration returns the observed processing time for a finished task
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}

// Batch is a submitted collection of conversion tasks sharing one
// configuration. Owned exclusively by the scheduler for its lifetime;
// immutable once terminal except for cleanup.
type Batch struct {
	ID     string           `json:"id"`
	Tasks  []*Task          `json:"tasks"`
	Config ConversionConfig `json:"config"`

	Status BatchStatus `json:"status"`
	Paused bool        `json:"paused"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DeriveStatus recomputes the batch status as a pure function of task states.
// Cancellation is sticky and bypasses derivation.
func (b *Batch) DeriveStatus() BatchStatus {
	if b.Status == BatchStatusCancelled {
		return BatchStatusCancelled
	}

	var completed, failed, skipped, terminal, started int
	for _, t := range b.Tasks {
		if t.IsTerminal() {
			terminal++
		}
		switch t.Status {
		case TaskStatusCompleted:
			completed++
		case TaskStatusError:
			failed++
		case TaskStatusSkipped:
			skipped++
		}
		if t.Attempts > 0 {
			started++
		}
	}

	if terminal == len(b.Tasks) && len(b.Tasks) > 0 {
		switch {
		case failed == 0:
			return BatchStatusCompleted
		case completed == 0 && skipped == 0:
			return BatchStatusFailed
		default:
			return BatchStatusPartial
		}
	}

	if started == 0 {
		return BatchStatusQueued
	}
	return BatchStatusProcessing
}

// IsTerminal returns true once the batch can no longer change state
func (b *Batch) IsTerminal() bool {
	switch b.Status {
	case BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// Progress is an aggregate snapshot of batch execution. Computed from task
// states so concurrent readers always see a consistent view.
type Progress struct {
	TotalTasks      int        `json:"total_tasks"`
	PendingTasks    int        `json:"pending_tasks"`
	ProcessingTasks int        `json:"processing_tasks"`
	CompletedTasks  int        `json:"completed_tasks"`
	FailedTasks     int        `json:"failed_tasks"`
	SkippedTasks    int        `json:"skipped_tasks"`
	Percentage      float64    `json:"percentage"`
	EstimatedDone   *time.Time `json:"estimated_done,omitempty"`
}

// TaskSummary is the per-task view exposed by status queries
type TaskSummary struct {
	ID          string          `json:"id"`
	SourceFile  string          `json:"source_file"`
	Status      TaskStatus      `json:"status"`
	Attempts    int             `json:"attempts"`
	Stats       ConversionStats `json:"stats"`
	ResultSetID string          `json:"result_set_id,omitempty"`
	Error       *TaskError      `json:"error,omitempty"`
}

// BatchStatusReport is the full answer to a status query
type BatchStatusReport struct {
	BatchID   string        `json:"batch_id"`
	Status    BatchStatus   `json:"status"`
	Paused    bool          `json:"paused"`
	Progress  Progress      `json:"progress"`
	Tasks     []TaskSummary `json:"tasks"`
	UpdatedAt time.Time     `json:"updated_at"`
}
