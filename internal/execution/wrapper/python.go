package wrapper

import "fmt"

// wrapPython embeds the user code and test cases as JSON-escaped string
// literals; the generated driver execs the user code in a fresh namespace
// per case with stdin/stdout redirected.
func wrapPython(userCode string, tests []harnessCase) string {
	return fmt.Sprintf(`import sys
import io
import json

test_cases = json.loads(%s)

user_code = %s

results = []

for i, tc in enumerate(test_cases):
    try:
        sys.stdin = io.StringIO(tc["input"])

        old_stdout = sys.stdout
        sys.stdout = io.StringIO()

        exec(user_code, {})

        actual_output = sys.stdout.getvalue().strip()
        sys.stdout = old_stdout

        expected = tc["expected"].strip()
        passed = (actual_output == expected)

        results.append({
            "test_case": i + 1,
            "passed": passed,
            "actual": actual_output,
            "expected": expected,
            "input": tc["input"]
        })

        if not passed:
            break

    except Exception as e:
        sys.stdout = old_stdout
        results.append({
            "test_case": i + 1,
            "passed": False,
            "error": str(e),
            "input": tc["input"]
        })
        break

print(json.dumps(results))
`, jsonLiteral(casesJSON(tests)), jsonLiteral(userCode))
}
