// Package wrapper synthesizes a single self-contained program that drives a
// user solution through N test cases in order, stops at the first failure,
// and emits one JSON result array on stdout. Running one process per
// submission instead of one per test case is what keeps per-submission cost
// flat as problems grow test cases.
package wrapper

import (
	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

type wrapFunc func(userCode string, tests []harnessCase) string

var wrappers = map[string]wrapFunc{
	"python":     wrapPython,
	"javascript": wrapJavaScript,
	"go":         wrapGo,
	"cpp":        wrapCpp,
	"c":          wrapC,
	"java":       wrapJava,
}

// harnessCase is the normalized test case embedded into generated programs.
// Normalization resolves the expected/expected_output key duality before any
// templating happens.
type harnessCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

func normalize(tests []model.TestCase) []harnessCase {
	cases := make([]harnessCase, len(tests))
	for i, tc := range tests {
		cases[i] = harnessCase{Input: tc.Input, Expected: tc.ExpectedValue()}
	}
	return cases
}

// Wrap generates the harness program for the given language. Languages
// without a harness template return the user code unchanged. Escaping is
// deterministic: wrapping the same inputs twice yields identical output.
func Wrap(userCode string, tests []model.TestCase, language string) (string, error) {
	if len(tests) == 0 {
		return "", appErr.New(appErr.WrapperError).WithMessage("at least one test case is required")
	}
	fn, ok := wrappers[language]
	if !ok {
		return userCode, nil
	}
	return fn(userCode, normalize(tests)), nil
}

// Supported reports whether a harness template exists for the language.
func Supported(language string) bool {
	_, ok := wrappers[language]
	return ok
}
