package linknorm

import "strings"

// SplitLines splits a multi-line URL list, trimming each line and dropping
// blank ones. Order is preserved.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
