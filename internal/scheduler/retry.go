package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sitewright/sitewright/internal/models"
)

// transientPhrases marks otherwise-terminal failures as retryable when the
// message indicates a passing condition
var transientPhrases = []string{
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"too many requests",
	"i/o timeout",
	"try again",
	"resource busy",
}

// Classify converts an arbitrary task failure into a classified error.
// Storage and timeout failures are retryable; validation never is;
// processing failures only when the message matches a transient phrase.
func Classify(err error) *models.TaskError {
	var taskErr *models.TaskError
	if errors.As(err, &taskErr) {
		if !taskErr.Retryable && taskErr.Category != models.ErrorCategoryValidation &&
			isTransientMessage(taskErr.Message) {
			taskErr.Retryable = true
		}
		return taskErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewTaskError(models.ErrorCategoryTimeout, err.Error())
	}

	classified := models.NewTaskError(models.ErrorCategoryProcessing, err.Error())
	classified.Retryable = isTransientMessage(classified.Message)
	return classified
}

func isTransientMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, phrase := range transientPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// RetryDelay grows linearly with the attempt number
func RetryDelay(baseDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseDelay * time.Duration(attempt)
}
