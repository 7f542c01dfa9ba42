package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20999: Admission & Queue errors
// 21000-21999: Execution errors
// 22000-22999: Delivery & Result errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError      ErrorCode = 10001
	InvalidParams      ErrorCode = 10002
	NotFound           ErrorCode = 10003
	ServiceUnavailable ErrorCode = 10004
	Timeout            ErrorCode = 10005

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Admission & Queue Errors (20000-20999) ==========

	AdmissionRejected ErrorCode = 20000
	QueueUnavailable  ErrorCode = 20001
	QueueClosed       ErrorCode = 20002
	DepthUnknown      ErrorCode = 20003

	// ========== Execution Errors (21000-21999) ==========

	UnsupportedLanguage ErrorCode = 21000
	ToolchainMissing    ErrorCode = 21001
	CompileError        ErrorCode = 21002
	RuntimeError        ErrorCode = 21003
	ExecutionTimeout    ErrorCode = 21004
	SourceTooLarge      ErrorCode = 21005
	WrapperError        ErrorCode = 21006

	// ========== Delivery & Result Errors (22000-22999) ==========

	ResultNotReady   ErrorCode = 22000
	ResultExpired    ErrorCode = 22001
	ConnectionClosed ErrorCode = 22002
	WaitTimeout      ErrorCode = 22003
)

var codeMessages = map[ErrorCode]string{
	Success:            "success",
	InternalError:      "internal error",
	InvalidParams:      "invalid parameters",
	NotFound:           "not found",
	ServiceUnavailable: "service unavailable",
	Timeout:            "operation timed out",

	CacheError: "cache operation failed",

	ValidationFailed:   "validation failed",
	RequiredFieldEmpty: "required field is empty",

	AdmissionRejected: "system is experiencing high load",
	QueueUnavailable:  "job queue is unavailable",
	QueueClosed:       "job queue is closed",
	DepthUnknown:      "queue depth cannot be determined",

	UnsupportedLanguage: "language is not supported",
	ToolchainMissing:    "language toolchain is not installed",
	CompileError:        "compilation failed",
	RuntimeError:        "execution failed",
	ExecutionTimeout:    "execution timeout",
	SourceTooLarge:      "source code exceeds the size limit",
	WrapperError:        "test harness generation failed",

	ResultNotReady:   "result is not ready yet",
	ResultExpired:    "result has expired",
	ConnectionClosed: "connection is closed",
	WaitTimeout:      "timed out waiting for result",
}

// Message returns the default human-readable message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "unknown error"
}

// Retryable reports whether a failure with this code may succeed on retry.
// User-caused failures (compile/runtime errors) and environment issues
// (missing toolchain) are not retryable without outside change.
func (c ErrorCode) Retryable() bool {
	switch c {
	case AdmissionRejected, QueueUnavailable, DepthUnknown, ExecutionTimeout, Timeout, ServiceUnavailable, ResultNotReady:
		return true
	default:
		return false
	}
}
