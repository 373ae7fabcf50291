package judge

import (
	"github.com/pkg/errors"

	"submission-judge/internal/testcases"
)

// Outcome is everything the verdict depends on.
type Outcome struct {
	// CaseErr is the error of resolving the test cases, if any.
	CaseErr error
	// SandboxErr is set when the sandbox image could not be provisioned.
	SandboxErr    error
	CompileFailed bool
	PerCase       []CaseResult
}

// DeriveStatus maps an outcome to the top level status. The first matching
// rule wins: test case errors, sandbox provisioning, compilation, all cases
// passed, any timeout, otherwise rejected.
func DeriveStatus(outcome Outcome) Status {
	switch {
	case outcome.CaseErr != nil && errors.Is(outcome.CaseErr, testcases.ErrNoTestcases):
		return NoTestcases
	case outcome.CaseErr != nil:
		return TestcaseFetchError
	case outcome.SandboxErr != nil:
		return BuildError
	case outcome.CompileFailed:
		return CompileError
	case len(outcome.PerCase) == 0:
		return NoTestcases
	}

	accepted, timedOut := true, false

	for _, c := range outcome.PerCase {
		accepted = accepted && c.Passed

		if !c.Passed && c.FailureKind == Timeout {
			timedOut = true
		}
	}

	switch {
	case accepted:
		return Accepted
	case timedOut:
		return TimeLimitExceeded
	}

	return Rejected
}
