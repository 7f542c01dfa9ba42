package wrapper

import (
	"fmt"
	"regexp"
	"strings"
)

var javaMainRe = regexp.MustCompile(`public\s+static\s+void\s+main\s*\(`)

// wrapJava rewrites the user's main into userMain and appends a driver main
// that swaps System.in/System.out per case. The result array goes to stdout
// so the executor reads it from the normal success stream.
func wrapJava(userCode string, tests []harnessCase) string {
	body := javaMainRe.ReplaceAllString(userCode, "public static void userMain(")

	// Driver is injected before the closing brace of the user class.
	idx := strings.LastIndex(body, "}")
	if idx < 0 {
		return userCode
	}

	var caseLines strings.Builder
	for _, tc := range tests {
		caseLines.WriteString(fmt.Sprintf("            {\"%s\", \"%s\"},\n",
			escapeLiteral(tc.Input), escapeLiteral(tc.Expected)))
	}

	driver := fmt.Sprintf(`
    public static void main(String[] args) throws Exception {
        String[][] testCases = {
%s        };

        java.io.InputStream originalIn = System.in;
        java.io.PrintStream originalOut = System.out;

        StringBuilder results = new StringBuilder("[");
        boolean first = true;

        for (int i = 0; i < testCases.length; i++) {
            String input = testCases[i][0];
            String expected = testCases[i][1].trim();

            System.setIn(new java.io.ByteArrayInputStream(input.getBytes()));
            java.io.ByteArrayOutputStream captured = new java.io.ByteArrayOutputStream();
            System.setOut(new java.io.PrintStream(captured));

            boolean failed = false;
            String error = "";
            try {
                userMain(args);
            } catch (Exception e) {
                failed = true;
                error = e.toString();
            }

            System.setIn(originalIn);
            System.setOut(originalOut);

            if (!first) results.append(",");
            first = false;

            if (failed) {
                results.append("{\"test_case\":").append(i + 1)
                       .append(",\"passed\":false,\"error\":\"").append(jsonEscape(error))
                       .append("\",\"input\":\"").append(jsonEscape(input)).append("\"}");
                break;
            }

            String actual = captured.toString().trim();
            boolean passed = actual.equals(expected);

            results.append("{\"test_case\":").append(i + 1)
                   .append(",\"passed\":").append(passed)
                   .append(",\"actual\":\"").append(jsonEscape(actual))
                   .append("\",\"expected\":\"").append(jsonEscape(expected))
                   .append("\",\"input\":\"").append(jsonEscape(input)).append("\"}");

            if (!passed) break;
        }

        results.append("]");
        System.out.println(results.toString());
    }

    private static String jsonEscape(String s) {
        StringBuilder out = new StringBuilder();
        for (char c : s.toCharArray()) {
            switch (c) {
                case '\\': out.append("\\\\"); break;
                case '"':  out.append("\\\""); break;
                case '\n': out.append("\\n"); break;
                case '\r': out.append("\\r"); break;
                case '\t': out.append("\\t"); break;
                default:   out.append(c); break;
            }
        }
        return out.toString();
    }
`, caseLines.String())

	return body[:idx] + driver + body[idx:]
}
