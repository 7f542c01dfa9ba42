package model

// ExecutionResult is the terminal outcome of one job. It is produced exactly
// once by the worker that claimed the job and consumed exactly once by the
// delivery path.
type ExecutionResult struct {
	JobID         string  `json:"job_id,omitempty"`
	Status        string  `json:"status,omitempty"`
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
}

// EmptyOutputSentinel replaces empty stdout on a clean exit so clients can
// tell "ran fine, printed nothing" apart from "not ready".
const EmptyOutputSentinel = "Code executed successfully"

// FailureResult builds a failed result with the given error message.
func FailureResult(jobID, errMsg string) ExecutionResult {
	return ExecutionResult{
		JobID:   jobID,
		Status:  StatusFailed,
		Success: false,
		Error:   errMsg,
	}
}
