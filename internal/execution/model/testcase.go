package model

// TestCase is read-only reference data consumed by the test harness.
// The expected output may arrive under either "expected" or
// "expected_output"; ExpectedValue resolves the two.
type TestCase struct {
	Input          string `json:"input"`
	Expected       string `json:"expected,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	Hidden         bool   `json:"hidden,omitempty"`
}

// ExpectedValue returns the expected output regardless of which key it
// arrived under.
func (t TestCase) ExpectedValue() string {
	if t.Expected != "" {
		return t.Expected
	}
	return t.ExpectedOutput
}

// TestResult is one record of the harness's emitted JSON array. The array is
// fail-fast truncated: the record for the first failing case is the last one.
type TestResult struct {
	TestCase int    `json:"test_case"`
	Passed   bool   `json:"passed"`
	Actual   string `json:"actual,omitempty"`
	Expected string `json:"expected,omitempty"`
	Input    string `json:"input"`
	Error    string `json:"error,omitempty"`
}
