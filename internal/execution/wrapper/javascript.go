package wrapper

import "fmt"

// wrapJavaScript embeds the test cases as a JSON array literal and the user
// code as a string literal evaluated per case with console.log captured.
func wrapJavaScript(userCode string, tests []harnessCase) string {
	return fmt.Sprintf(`const testCases = %s;

const userCode = %s;

const results = [];

for (let i = 0; i < testCases.length; i++) {
    const tc = testCases[i];

    try {
        const inputLines = tc.input.split('\n');
        let lineIndex = 0;
        const readLine = () => inputLines[lineIndex++];

        let output = '';
        const originalLog = console.log;
        console.log = (...args) => {
            output += args.join(' ') + '\n';
        };

        eval(userCode);

        console.log = originalLog;

        const actualOutput = output.trim();
        const expected = tc.expected.trim();
        const passed = (actualOutput === expected);

        results.push({
            test_case: i + 1,
            passed: passed,
            actual: actualOutput,
            expected: expected,
            input: tc.input
        });

        if (!passed) break;

    } catch (error) {
        results.push({
            test_case: i + 1,
            passed: false,
            error: error.toString(),
            input: tc.input
        });
        break;
    }
}

console.log(JSON.stringify(results));
`, casesJSON(tests), jsonLiteral(userCode))
}
