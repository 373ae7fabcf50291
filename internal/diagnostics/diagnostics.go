// Package diagnostics turns raw compiler output into structured diagnostics.
// Parsing is a pure function of the tool and the text so that the same
// compiler output always yields the same diagnostics.
package diagnostics

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Tool identifies the diagnostic grammar of a compiler.
type Tool string

const (
	GCC Tool = "gcc"
)

type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// gccLine matches `file:line[:column]: severity: message`.
var gccLine = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s+(fatal error|error|warning|note):\s+(.*)$`)

// Parse extracts every diagnostic it understands from the raw output of the
// given tool. Lines that do not match the grammar (source excerpts, include
// traces) are ignored.
func Parse(tool Tool, raw string) []Diagnostic {
	switch tool {
	case GCC:
		return parseGCC(raw)
	default:
		return nil
	}
}

// ForFailure is Parse for a failed compilation: it never returns an empty list.
// When nothing can be parsed a single error diagnostic carries the raw text.
func ForFailure(tool Tool, raw string) []Diagnostic {
	if parsed := Parse(tool, raw); hasError(parsed) {
		return parsed
	} else if len(parsed) > 0 {
		return append(parsed, synthetic(raw))
	}

	return []Diagnostic{synthetic(raw)}
}

func synthetic(raw string) Diagnostic {
	message := strings.TrimSpace(raw)

	if message == "" {
		message = "compilation failed"
	}

	return Diagnostic{Severity: SeverityError, Message: message}
}

func hasError(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

func parseGCC(raw string) []Diagnostic {
	var result []Diagnostic

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		match := gccLine.FindStringSubmatch(strings.TrimRight(line, " \t"))

		if match == nil {
			continue
		}

		lineNumber, _ := strconv.Atoi(match[2])
		column, _ := strconv.Atoi(match[3])

		severity := Severity(match[4])

		if match[4] == "fatal error" {
			severity = SeverityError
		}

		result = append(result, Diagnostic{
			File:     cleanFile(match[1]),
			Line:     lineNumber,
			Column:   column,
			Severity: severity,
			Message:  strings.TrimSpace(match[5]),
		})
	}

	return result
}

// cleanFile strips the sandbox mount so diagnostics do not depend on where the
// source was placed.
func cleanFile(file string) string {
	if strings.HasPrefix(file, "/sandbox/") {
		return path.Base(file)
	}

	return file
}
