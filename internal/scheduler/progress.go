package scheduler

import (
	"time"

	"github.com/sitewright/sitewright/internal/models"
)

// ComputeProgress derives the aggregate snapshot as a pure function of the
// current task states. The ETA is the observed average duration of completed
// tasks multiplied by the remaining (pending plus processing) count.
func ComputeProgress(batch *models.Batch, now time.Time) models.Progress {
	p := models.Progress{TotalTasks: len(batch.Tasks)}

	var completedDuration time.Duration
	var timedCompleted int

	for _, t := range batch.Tasks {
		switch t.Status {
		case models.TaskStatusPending:
			p.PendingTasks++
		case models.TaskStatusProcessing:
			p.ProcessingTasks++
		case models.TaskStatusCompleted:
			p.CompletedTasks++
			if d := t.Duration(); d > 0 {
				completedDuration += d
				timedCompleted++
			}
		case models.TaskStatusError:
			p.FailedTasks++
		case models.TaskStatusSkipped:
			p.SkippedTasks++
		}
	}

	terminal := p.CompletedTasks + p.FailedTasks + p.SkippedTasks
	if p.TotalTasks > 0 {
		p.Percentage = float64(terminal) / float64(p.TotalTasks) * 100
	}

	remaining := p.PendingTasks + p.ProcessingTasks
	if timedCompleted > 0 && remaining > 0 {
		avg := completedDuration / time.Duration(timedCompleted)
		eta := now.Add(avg * time.Duration(remaining))
		p.EstimatedDone = &eta
	}

	return p
}

// BuildReport assembles the full status answer for one batch
func BuildReport(batch *models.Batch, now time.Time) *models.BatchStatusReport {
	report := &models.BatchStatusReport{
		BatchID:   batch.ID,
		Status:    batch.Status,
		Paused:    batch.Paused,
		Progress:  ComputeProgress(batch, now),
		UpdatedAt: batch.UpdatedAt,
	}

	for _, t := range batch.Tasks {
		report.Tasks = append(report.Tasks, models.TaskSummary{
			ID:          t.ID,
			SourceFile:  t.SourceFile,
			Status:      t.Status,
			Attempts:    t.Attempts,
			Stats:       t.Stats,
			ResultSetID: t.ResultSetID,
			Error:       t.LastError,
		})
	}

	return report
}
