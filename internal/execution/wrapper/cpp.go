package wrapper

import (
	"fmt"
	"regexp"
	"strings"
)

var cppMainRe = regexp.MustCompile(`\bint\s+main\s*\(`)

// wrapCpp renames the user's main to userMain and drives it per case with
// cin/cout rebound to string streams. Result fields are escaped at runtime
// by the generated json_escape helper, so user output needs no pre-escaping.
func wrapCpp(userCode string, tests []harnessCase) string {
	body := cppMainRe.ReplaceAllString(userCode, "int userMain(")

	var caseLines strings.Builder
	for _, tc := range tests {
		caseLines.WriteString(fmt.Sprintf("    test_cases.push_back({\"%s\", \"%s\"});\n",
			escapeLiteral(tc.Input), escapeLiteral(tc.Expected)))
	}

	return fmt.Sprintf(`#include <iostream>
#include <sstream>
#include <string>
#include <vector>

// User's code (main renamed to userMain)
%s

struct TC {
    std::string input;
    std::string expected;
};

static std::string trim(const std::string &s) {
    size_t start = s.find_first_not_of(" \t\n\r");
    if (start == std::string::npos) return "";
    size_t end = s.find_last_not_of(" \t\n\r");
    return s.substr(start, end - start + 1);
}

static std::string json_escape(const std::string &s) {
    std::string out;
    for (char c : s) {
        switch (c) {
            case '\\': out += "\\\\"; break;
            case '"':  out += "\\\""; break;
            case '\n': out += "\\n"; break;
            case '\r': out += "\\r"; break;
            case '\t': out += "\\t"; break;
            default:   out += c; break;
        }
    }
    return out;
}

int main() {
    std::vector<TC> test_cases;
%s
    std::ostringstream results;
    results << "[";
    bool first = true;

    for (size_t i = 0; i < test_cases.size(); i++) {
        const TC &tc = test_cases[i];

        std::istringstream input_stream(tc.input);
        std::ostringstream output_stream;
        std::streambuf *old_cin = std::cin.rdbuf(input_stream.rdbuf());
        std::streambuf *old_cout = std::cout.rdbuf(output_stream.rdbuf());

        userMain();

        std::cin.rdbuf(old_cin);
        std::cout.rdbuf(old_cout);

        std::string actual = trim(output_stream.str());
        std::string expected = trim(tc.expected);
        bool passed = (actual == expected);

        if (!first) results << ",";
        first = false;
        results << "{\"test_case\":" << (i + 1)
                << ",\"passed\":" << (passed ? "true" : "false")
                << ",\"actual\":\"" << json_escape(actual) << "\""
                << ",\"expected\":\"" << json_escape(expected) << "\""
                << ",\"input\":\"" << json_escape(tc.input) << "\"}";

        if (!passed) break;
    }

    results << "]";
    std::cout << results.str() << std::endl;
    return 0;
}
`, body, caseLines.String())
}
