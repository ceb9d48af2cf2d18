package common

import (
	"github.com/google/uuid"
)

// NewBatchID generates a unique batch ID with the "batch_" prefix
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}

// NewTaskID generates a unique task ID with the "task_" prefix
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewRecordSetID generates a unique URL record set ID with the "set_" prefix
func NewRecordSetID() string {
	return "set_" + uuid.New().String()
}
