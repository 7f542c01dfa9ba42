// Package contextkey defines typed context keys shared across services.
package contextkey

type contextKey string

const (
	// JobID identifies the job being processed.
	JobID contextKey = "job_id"
	// ConnectionID identifies the real-time channel that submitted the job.
	ConnectionID contextKey = "connection_id"
	// Language is the language tag of the job being processed.
	Language contextKey = "language"
)
