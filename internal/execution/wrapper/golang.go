package wrapper

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	goPackageRe = regexp.MustCompile(`package\s+main\s*\n?`)
	goImportRe  = regexp.MustCompile(`(?s)import\s+(?:\([^)]*\)|"[^"]*")\s*\n?`)
	goMainRe    = regexp.MustCompile(`\bfunc\s+main\s*\(`)
	goImportBlockRe = regexp.MustCompile(`(?s)\((.*?)\)`)
	goQuotedRe      = regexp.MustCompile(`"[^"]+"`)
)

// harness imports; user imports are merged in and deduplicated.
var goHarnessImports = []string{`"bytes"`, `"encoding/json"`, `"fmt"`, `"os"`, `"strings"`}

// wrapGo splices the user code into a driver program: the package clause is
// stripped, imports are extracted and merged with the harness's own, and the
// user's main is renamed to userMain so the driver can call it per case.
func wrapGo(userCode string, tests []harnessCase) string {
	body := goPackageRe.ReplaceAllString(userCode, "")

	userImports := goImportRe.FindAllString(body, -1)
	body = goImportRe.ReplaceAllString(body, "")
	body = goMainRe.ReplaceAllString(body, "func userMain(")

	imports := make(map[string]struct{}, len(goHarnessImports))
	for _, imp := range goHarnessImports {
		imports[imp] = struct{}{}
	}
	for _, block := range userImports {
		if strings.Contains(block, "(") {
			inner := goImportBlockRe.FindStringSubmatch(block)
			if inner == nil {
				continue
			}
			for _, line := range strings.Split(inner[1], "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, `"`) {
					imports[line] = struct{}{}
				}
			}
			continue
		}
		if pkg := goQuotedRe.FindString(block); pkg != "" {
			imports[pkg] = struct{}{}
		}
	}
	importList := make([]string, 0, len(imports))
	for imp := range imports {
		importList = append(importList, imp)
	}
	sort.Strings(importList)

	var caseLines strings.Builder
	for _, tc := range tests {
		caseLines.WriteString(fmt.Sprintf("\t\t{Input: \"%s\", Expected: \"%s\"},\n",
			escapeLiteral(tc.Input), escapeLiteral(tc.Expected)))
	}

	return fmt.Sprintf(`package main

import (
	%s
)

type TestCase struct {
	Input    string
	Expected string
}

type Result struct {
	TestCase int    `+"`"+`json:"test_case"`+"`"+`
	Passed   bool   `+"`"+`json:"passed"`+"`"+`
	Actual   string `+"`"+`json:"actual"`+"`"+`
	Expected string `+"`"+`json:"expected"`+"`"+`
	Input    string `+"`"+`json:"input"`+"`"+`
	Error    string `+"`"+`json:"error,omitempty"`+"`"+`
}

// User's code (main renamed to userMain, all functions included)
%s

func main() {
	tests := []TestCase{
%s	}
	results := []Result{}

	for i, test := range tests {
		oldStdin := os.Stdin
		r, w, _ := os.Pipe()
		os.Stdin = r
		w.Write([]byte(test.Input))
		w.Close()

		oldStdout := os.Stdout
		r2, w2, _ := os.Pipe()
		os.Stdout = w2

		failed := false
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					os.Stdout = oldStdout
					os.Stdin = oldStdin
					failed = true
					results = append(results, Result{
						TestCase: i + 1,
						Passed:   false,
						Error:    fmt.Sprintf("%%v", rec),
						Input:    test.Input,
					})
				}
			}()

			userMain()
		}()

		w2.Close()
		os.Stdout = oldStdout
		os.Stdin = oldStdin

		if failed {
			break
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r2)
		actual := strings.TrimSpace(buf.String())
		expected := strings.TrimSpace(test.Expected)

		passed := (actual == expected)
		results = append(results, Result{
			TestCase: i + 1,
			Passed:   passed,
			Actual:   actual,
			Expected: expected,
			Input:    test.Input,
		})

		if !passed {
			break
		}
	}

	jsonData, _ := json.Marshal(results)
	fmt.Println(string(jsonData))
}
`, strings.Join(importList, "\n\t"), body, caseLines.String())
}
