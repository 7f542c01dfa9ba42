package wrapper

import (
	"fmt"
	"regexp"
	"strings"
)

var cMainRe = regexp.MustCompile(`\bint\s+main\s*\(`)

// wrapC runs the user program per case by forking through freopen on temp
// files. C has no stream rebinding, so stdin/stdout are swapped at the fd
// level and the child output is read back from disk.
func wrapC(userCode string, tests []harnessCase) string {
	body := cMainRe.ReplaceAllString(userCode, "int userMain(")

	var caseLines strings.Builder
	for _, tc := range tests {
		caseLines.WriteString(fmt.Sprintf("        {\"%s\", \"%s\"},\n",
			escapeLiteral(tc.Input), escapeLiteral(tc.Expected)))
	}

	return fmt.Sprintf(`#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <unistd.h>
#include <sys/wait.h>

// User's code (main renamed to userMain)
%s

typedef struct {
    const char *input;
    const char *expected;
} TC;

static void trim(char *s) {
    size_t len = strlen(s);
    while (len > 0 && (s[len-1] == '\n' || s[len-1] == '\r' ||
                       s[len-1] == ' ' || s[len-1] == '\t')) {
        s[--len] = '\0';
    }
    size_t start = 0;
    while (s[start] == '\n' || s[start] == '\r' ||
           s[start] == ' ' || s[start] == '\t') {
        start++;
    }
    if (start > 0) memmove(s, s + start, len - start + 1);
}

static void json_escape(const char *s, FILE *out) {
    for (; *s; s++) {
        switch (*s) {
            case '\\': fputs("\\\\", out); break;
            case '"':  fputs("\\\"", out); break;
            case '\n': fputs("\\n", out); break;
            case '\r': fputs("\\r", out); break;
            case '\t': fputs("\\t", out); break;
            default:   fputc(*s, out); break;
        }
    }
}

int main(void) {
    TC test_cases[] = {
%s    };
    int n = sizeof(test_cases) / sizeof(test_cases[0]);

    printf("[");
    int first = 1;

    for (int i = 0; i < n; i++) {
        const TC *tc = &test_cases[i];

        FILE *in = fopen("__tc_in.txt", "w");
        if (!in) { break; }
        fputs(tc->input, in);
        fclose(in);

        pid_t pid = fork();
        if (pid == 0) {
            freopen("__tc_in.txt", "r", stdin);
            freopen("__tc_out.txt", "w", stdout);
            userMain();
            fflush(stdout);
            _exit(0);
        }
        int status = 0;
        waitpid(pid, &status, 0);
        int crashed = !WIFEXITED(status) || WEXITSTATUS(status) != 0;

        static char actual[1048576];
        actual[0] = '\0';
        FILE *out = fopen("__tc_out.txt", "r");
        if (out) {
            size_t got = fread(actual, 1, sizeof(actual) - 1, out);
            actual[got] = '\0';
            fclose(out);
        }
        trim(actual);

        static char expected[1048576];
        strncpy(expected, tc->expected, sizeof(expected) - 1);
        expected[sizeof(expected) - 1] = '\0';
        trim(expected);

        if (!first) printf(",");
        first = 0;

        if (crashed) {
            printf("{\"test_case\":%%d,\"passed\":false,\"error\":\"runtime error\",\"input\":\"", i + 1);
            json_escape(tc->input, stdout);
            printf("\"}");
            break;
        }

        int passed = (strcmp(actual, expected) == 0);
        printf("{\"test_case\":%%d,\"passed\":%%s,\"actual\":\"", i + 1, passed ? "true" : "false");
        json_escape(actual, stdout);
        printf("\",\"expected\":\"");
        json_escape(expected, stdout);
        printf("\",\"input\":\"");
        json_escape(tc->input, stdout);
        printf("\"}");

        if (!passed) break;
    }

    printf("]\n");
    remove("__tc_in.txt");
    remove("__tc_out.txt");
    return 0;
}
`, body, caseLines.String())
}
