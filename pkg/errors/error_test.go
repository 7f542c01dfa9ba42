package errors

import (
	stderrors "errors"
	"testing"
)

func TestNewUsesCodeMessage(t *testing.T) {
	t.Parallel()

	err := New(AdmissionRejected)
	if err.Code != AdmissionRejected {
		t.Fatalf("code = %d", err.Code)
	}
	if err.Error() != AdmissionRejected.Message() {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	t.Parallel()

	base := stderrors.New("connection refused")
	err := Wrap(base, QueueUnavailable)
	if !stderrors.Is(err, base) {
		t.Fatal("wrapped error lost its cause")
	}
	if GetCode(err) != QueueUnavailable {
		t.Fatalf("code = %d", GetCode(err))
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	t.Parallel()

	if err := Wrap(nil, InternalError); err != nil {
		t.Fatalf("wrap(nil) = %v", err)
	}
}

func TestIsMatchesCode(t *testing.T) {
	t.Parallel()

	err := Newf(WaitTimeout, "job %s timed out", "j1")
	if !Is(err, WaitTimeout) {
		t.Fatal("Is should match the code")
	}
	if Is(err, Timeout) {
		t.Fatal("Is matched the wrong code")
	}
	if Is(stderrors.New("plain"), WaitTimeout) {
		t.Fatal("Is matched a foreign error")
	}
}

func TestGetCodeForeignError(t *testing.T) {
	t.Parallel()

	if GetCode(stderrors.New("x")) != InternalError {
		t.Fatal("foreign errors map to InternalError")
	}
	if GetCode(nil) != Success {
		t.Fatal("nil maps to Success")
	}
}

func TestWithDetailAccumulates(t *testing.T) {
	t.Parallel()

	err := New(ValidationFailed).WithDetail("field", "code").WithDetail("max", 50000)
	if err.Details["field"] != "code" || err.Details["max"] != 50000 {
		t.Fatalf("details = %v", err.Details)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if !QueueUnavailable.Retryable() {
		t.Fatal("QueueUnavailable should be retryable")
	}
	if UnsupportedLanguage.Retryable() {
		t.Fatal("UnsupportedLanguage is not retryable")
	}
}
