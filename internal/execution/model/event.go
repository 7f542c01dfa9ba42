package model

import "time"

// Pub/sub channels used by the result delivery path.
const (
	// ChannelJobResults carries terminal job_completed / job_failed events.
	ChannelJobResults = "job_results"
	// ChannelJobStatus carries job_started events only.
	ChannelJobStatus = "job_status"
)

// Event types published on the result channels.
const (
	EventJobStarted   = "job_started"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
)

// ResultKeyPrefix is the cache key convention for polled results.
const ResultKeyPrefix = "result:"

// DefaultResultTTL bounds how long an unconsumed result lives in the cache.
const DefaultResultTTL = 300 * time.Second

// Envelope is the message shape published on the result channels.
type Envelope struct {
	Type   string           `json:"type"`
	JobID  string           `json:"job_id"`
	Result *ExecutionResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// ResultKey returns the cache key for a job's result.
func ResultKey(jobID string) string {
	return ResultKeyPrefix + jobID
}
