// Package judge runs a single judging attempt: resolve the test cases, build
// the sandbox image, compile, run every case and derive the verdict.
package judge

//go:generate mockgen -destination=mocks/case_resolver.go -package=mocks submission-judge/internal/judge CaseResolver

import (
	"context"

	"github.com/rs/zerolog"

	"submission-judge/internal/diagnostics"
	"submission-judge/internal/sandbox"
	"submission-judge/internal/testcases"
)

// Request is the immutable input of one judging attempt.
type Request struct {
	// ID keys the scratch directory of the attempt, the job id for queued
	// submissions.
	ID          string           `json:"id"`
	ProblemID   string           `json:"problem_id"`
	Language    sandbox.Language `json:"language"`
	SourceCode  string           `json:"source_code"`
	Mode        testcases.Mode   `json:"mode"`
	PrincipalID string           `json:"principal_id"`

	// Attempt numbers redeliveries of the same job. Concurrent attempts of one
	// job never share a scratch directory.
	Attempt int `json:"attempt,omitempty"`
}

func (r Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", r.ID).
		Str("problemID", r.ProblemID).
		Str("language", string(r.Language)).
		Str("mode", string(r.Mode)).
		Str("principalID", r.PrincipalID).
		Int("attempt", r.Attempt).
		Int("sourceBytes", len(r.SourceCode))
}

// CaseResolver resolves the ordered test cases of a problem.
type CaseResolver interface {
	Resolve(ctx context.Context, problemID string, mode testcases.Mode) ([]testcases.TestCase, error)
}

type Status string

const (
	Accepted           Status = "accepted"
	Rejected           Status = "rejected"
	CompileError       Status = "compile_error"
	TimeLimitExceeded  Status = "time_limit_exceeded"
	TestcaseFetchError Status = "testcase_fetch_error"
	NoTestcases        Status = "no_testcases"
	BuildError         Status = "builderror"
)

// Retryable reports if the status was caused by infrastructure rather than
// the submitted code, so the caller should try again later.
func (s Status) Retryable() bool {
	return s == BuildError || s == TestcaseFetchError
}

type FailureKind string

const (
	FailureNone    FailureKind = "none"
	Mismatch       FailureKind = "mismatch"
	Timeout        FailureKind = "timeout"
	RuntimeFailure FailureKind = "runtime_error"
)

type CaseResult struct {
	SequenceNumber int         `json:"sequence_number"`
	Passed         bool        `json:"passed"`
	ObservedOutput string      `json:"observed_output"`
	FailureKind    FailureKind `json:"failure_kind"`
	// Message carries stderr or the exit reason of a runtime error.
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type Result struct {
	Status            Status                   `json:"status"`
	PerCase           []CaseResult             `json:"per_case"`
	Diagnostics       []diagnostics.Diagnostic `json:"diagnostics,omitempty"`
	RawCompilerOutput string                   `json:"raw_compiler_output,omitempty"`
	// Error explains an infrastructure status such as builderror.
	Error     string `json:"error,omitempty"`
	CompileMs int64  `json:"compile_ms"`
}

// PassedCases returns the number of cases that passed.
func (r *Result) PassedCases() int {
	passed := 0

	for _, c := range r.PerCase {
		if c.Passed {
			passed++
		}
	}

	return passed
}

// RuntimeMs returns the summed execution time of every case.
func (r *Result) RuntimeMs() int64 {
	var total int64

	for _, c := range r.PerCase {
		total += c.DurationMs
	}

	return total
}
