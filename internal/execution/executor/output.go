package executor

import (
	"fmt"
	"strings"
)

// limitOutput caps output at maxLines and appends a truncation notice when
// the cap is hit, so one print-heavy job cannot exhaust memory or bandwidth.
func limitOutput(output string, maxLines int) string {
	if output == "" {
		return output
	}

	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	separator := strings.Repeat("=", 60)
	var b strings.Builder
	b.WriteString(strings.Join(lines[:maxLines], "\n"))
	b.WriteString("\n\n")
	b.WriteString(separator)
	b.WriteString("\nOUTPUT TRUNCATED\n")
	b.WriteString(separator)
	b.WriteString(fmt.Sprintf("\nShowing first %d lines out of %d total lines.\n", maxLines, len(lines)))
	b.WriteString("Output truncated for performance reasons.\n")
	b.WriteString(separator)
	return b.String()
}
