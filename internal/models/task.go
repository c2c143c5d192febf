// internal/models/task.go
package models

import (
	"encoding/json"
)

// TaskStatus represents the lifecycle state of a submitted task
type TaskStatus string

const (
	// TaskStatusNotStarted is derived, never persisted: it is what a status
	// query reports when no result record exists for a task id.
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusScheduled  TaskStatus = "SCHEDULED"
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusReady      TaskStatus = "READY"
	TaskStatusError      TaskStatus = "ERROR"
)

// Terminal reports whether no further transition is expected without a new submission.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusReady || s == TaskStatusError
}

// ResultRecord is the single blob persisted per task id. The executor is the
// sole writer; status queries only read. Every transition overwrites the full
// record, which is what makes redelivered queue messages safe to reprocess.
type ResultRecord struct {
	Status  TaskStatus      `json:"status"`
	Results json.RawMessage `json:"results"`
}

// QueueMessage is the payload published to the jobs queue at submission time.
// Delivery is at-least-once; handlers must tolerate duplicates.
type QueueMessage struct {
	TaskID     string          `json:"task_id"`
	TaskName   string          `json:"task_name"`
	TaskParams json.RawMessage `json:"task_params"`
}

// ToJSON converts the queue message to JSON
func (m *QueueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON populates the queue message from JSON
func (m *QueueMessage) FromJSON(data []byte) error {
	return json.Unmarshal(data, m)
}
