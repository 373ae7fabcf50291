// Package sandbox runs untrusted code in isolated, resource-capped containers.
//
// The judge only depends on Runtime. DockerRuntime is the container backed
// implementation; a native implementation (cgroups/seccomp) can satisfy the
// same interface.
package sandbox

//go:generate mockgen -destination=mocks/runtime.go -package=mocks submission-judge/internal/sandbox Runtime

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"submission-judge/internal/diagnostics"
	"submission-judge/internal/memory"
)

// ErrUnavailable is returned when the sandbox image cannot be provisioned. It
// is fatal for the current job only; the next job retries the build.
var ErrUnavailable = errors.New("sandbox unavailable")

type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return "sandbox unavailable: " + e.cause.Error()
}

func (e *unavailableError) Unwrap() error { return e.cause }

func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(err error) error {
	return &unavailableError{cause: err}
}

// Runtime is an isolated execution environment for a single toolchain.
type Runtime interface {
	// EnsureImageBuilt is idempotent; it provisions the execution image if it
	// does not already exist for this runtime instance.
	EnsureImageBuilt(ctx context.Context) error

	// Compile writes the source into workDir and compiles it. A failed
	// compilation is reported in the outcome, not as an error.
	Compile(ctx context.Context, workDir string, source string) (*CompileOutcome, error)

	// Execute runs the binary compiled into workDir with stdin fed on standard
	// input. Timeouts and non-zero exits are outcome data, not errors.
	Execute(ctx context.Context, workDir string, stdin string, limits Limits) (*ExecutionOutcome, error)
}

// Limits are the hard caps applied to a single execution.
type Limits struct {
	RunTimeout  time.Duration
	Memory      memory.Memory
	NanoCPUs    int64
	PidsLimit   int64
	OutputLimit memory.Memory
}

func (l Limits) MarshalZerologObject(e *zerolog.Event) {
	e.Dur("runTimeout", l.RunTimeout).
		Str("memory", l.Memory.String()).
		Int64("nanoCPUs", l.NanoCPUs).
		Int64("pidsLimit", l.PidsLimit)
}

type CompileOutcome struct {
	Success     bool
	TimedOut    bool
	Output      string
	Diagnostics []diagnostics.Diagnostic
	Duration    time.Duration
}

type ExecutionStatus string

const (
	ExecutionSuccess      ExecutionStatus = "success"
	ExecutionTimeout      ExecutionStatus = "timeout"
	ExecutionRuntimeError ExecutionStatus = "runtime_error"
)

type ExecutionOutcome struct {
	Status   ExecutionStatus
	Stdout   string
	Stderr   string
	ExitCode int
	// Message explains a runtime error that is not visible in stderr, e.g. an
	// out of memory kill.
	Message  string
	Duration time.Duration

	// Truncated is set when stdout went past the output limit. Stdout then
	// holds only a prefix of what the program wrote.
	Truncated bool
}

// ErrOutputLimitExceeded is the message of an execution that wrote more than
// the output limit to stdout.
var ErrOutputLimitExceeded = errors.New("output limit exceeded")
