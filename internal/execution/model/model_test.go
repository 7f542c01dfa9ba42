package model

import (
	"strings"
	"testing"

	appErr "kodecompiler/pkg/errors"
)

func TestJobValidate(t *testing.T) {
	t.Parallel()

	valid := Job{ID: "j", Language: "python", SourceCode: "print(1)"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	cases := []struct {
		name string
		job  Job
		code appErr.ErrorCode
	}{
		{"missing id", Job{Language: "python", SourceCode: "x"}, appErr.ValidationFailed},
		{"missing language", Job{ID: "j", SourceCode: "x"}, appErr.ValidationFailed},
		{"missing code", Job{ID: "j", Language: "python"}, appErr.ValidationFailed},
		{"oversized code", Job{ID: "j", Language: "python", SourceCode: strings.Repeat("x", MaxSourceLen+1)}, appErr.SourceTooLarge},
	}
	for _, tc := range cases {
		if err := tc.job.Validate(); !appErr.Is(err, tc.code) {
			t.Fatalf("%s: got %v, want code %d", tc.name, err, tc.code)
		}
	}
}

func TestTestCaseExpectedValue(t *testing.T) {
	t.Parallel()

	if got := (TestCase{Expected: "a"}).ExpectedValue(); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := (TestCase{ExpectedOutput: "b"}).ExpectedValue(); got != "b" {
		t.Fatalf("got %q", got)
	}
	// The short key wins when both are present.
	if got := (TestCase{Expected: "a", ExpectedOutput: "b"}).ExpectedValue(); got != "a" {
		t.Fatalf("got %q", got)
	}
}

func TestResultKey(t *testing.T) {
	t.Parallel()

	if got := ResultKey("abc"); got != "result:abc" {
		t.Fatalf("got %q", got)
	}
}
