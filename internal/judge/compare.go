package judge

import "strings"

// normalizeOutput makes line endings, trailing spaces on each line and
// trailing blank lines insignificant.
func normalizeOutput(output string) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(output, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func outputMatches(observed string, expected string) bool {
	return normalizeOutput(observed) == normalizeOutput(expected)
}
