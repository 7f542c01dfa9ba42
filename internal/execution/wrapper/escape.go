package wrapper

import (
	"encoding/json"
	"strings"
)

// escapeLiteral escapes untrusted text for splicing into a double-quoted
// string literal of a C-family language. Nothing may be interpolated into
// generated source without passing through here or jsonLiteral.
func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// jsonLiteral renders s as a JSON string literal, which is also a valid
// string literal in Python and JavaScript.
func jsonLiteral(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// casesJSON renders the normalized test cases as a canonical JSON array.
func casesJSON(tests []harnessCase) string {
	data, _ := json.Marshal(tests)
	return string(data)
}
