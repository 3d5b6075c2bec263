// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestionTask represents an asynchronous profile ingestion request.
type IngestionTask struct {
	RunID   string `json:"run_id"`
	Profile string `json:"profile"`
}
