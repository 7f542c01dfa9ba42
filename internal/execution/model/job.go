// Package model defines the data shapes shared across the execution pipeline.
package model

import (
	"time"

	appErr "kodecompiler/pkg/errors"
)

// MaxSourceLen is the maximum accepted source code length in characters.
const MaxSourceLen = 50000

// Job is one unit of code-execution work. A Job is immutable once created;
// it is owned by the queue until a worker claims it, after which the claiming
// worker processes it to completion with no shared state.
type Job struct {
	ID         string    `json:"job_id"`
	Language   string    `json:"language"`
	SourceCode string    `json:"code"`
	Stdin      string    `json:"input"`
	SubmittedAt time.Time `json:"timestamp"`

	// ConnectionID references the real-time channel awaiting the result.
	// Empty for polling clients.
	ConnectionID string `json:"connection_id,omitempty"`
}

// Validate checks the fields a job must carry before it may be queued.
func (j *Job) Validate() error {
	if j.ID == "" {
		return appErr.ValidationError("job_id", "required")
	}
	if j.Language == "" {
		return appErr.ValidationError("language", "required")
	}
	if j.SourceCode == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(j.SourceCode) > MaxSourceLen {
		return appErr.Newf(appErr.SourceTooLarge, "source code exceeds %d characters", MaxSourceLen)
	}
	return nil
}

// Job lifecycle status values surfaced to clients.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
)
