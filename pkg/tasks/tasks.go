// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// SessionIndexTask represents an indexing job for a newly created session.
type SessionIndexTask struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}
