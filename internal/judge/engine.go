package judge

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/sandbox"
	"submission-judge/internal/testcases"
)

// attempt states, only used for logging.
const (
	stateReceived      = "received"
	stateCompiling     = "compiling"
	stateCompiled      = "compiled"
	stateCompileFailed = "compile_failed"
	stateRunningCases  = "running_cases"
	stateDone          = "done"
)

type Config struct {
	Runtime sandbox.Runtime
	Cases   CaseResolver

	// WorkRoot holds one scratch directory per attempt, keyed by request id.
	WorkRoot string

	// Limits applied to every case execution.
	Limits sandbox.Limits

	// CaseBudget bounds the whole case loop. Cases reached after it is spent
	// are failed as timeouts without being executed. Zero disables it.
	CaseBudget time.Duration
}

type Engine struct {
	runtime    sandbox.Runtime
	cases      CaseResolver
	workRoot   string
	limits     sandbox.Limits
	caseBudget time.Duration
}

func NewEngine(config *Config) (*Engine, error) {
	if config.Runtime == nil {
		return nil, errors.New("sandbox runtime is required")
	}

	if config.Cases == nil {
		return nil, errors.New("case resolver is required")
	}

	workRoot := config.WorkRoot

	if workRoot == "" {
		workRoot = filepath.Join(os.TempDir(), "judge")
	}

	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create work root")
	}

	return &Engine{
		runtime:    config.Runtime,
		cases:      config.Cases,
		workRoot:   workRoot,
		limits:     config.Limits,
		caseBudget: config.CaseBudget,
	}, nil
}

// Judge runs one attempt. User code failures are reported in the result;
// an error means the attempt itself could not be carried out. The scratch
// directory is removed on every return path, including panics.
func (e *Engine) Judge(ctx context.Context, request *Request) (*Result, error) {
	if !sandbox.Judged(request.Language) {
		return nil, errors.Errorf("language %s is not supported for judging", request.Language)
	}

	logger := log.With().Str("jobID", request.ID).Str("problemID", request.ProblemID).Logger()
	logger.Info().Object("request", request).Str("state", stateReceived).Msg("judging submission")

	started := time.Now()

	workDir, err := e.prepareWorkDir(request.ID, request.Attempt)

	if err != nil {
		return nil, err
	}

	defer e.cleanup(workDir)

	result, err := e.judge(ctx, &logger, request, workDir)

	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("state", stateDone).
		Str("status", string(result.Status)).
		Int("passed", result.PassedCases()).
		Int("cases", len(result.PerCase)).
		Int64("compileMs", result.CompileMs).
		Dur("took", time.Since(started)).
		Msg("judged submission")

	return result, nil
}

func (e *Engine) judge(ctx context.Context, logger *zerolog.Logger, request *Request, workDir string) (*Result, error) {
	result := &Result{PerCase: []CaseResult{}}
	outcome := Outcome{}

	cases, err := e.cases.Resolve(ctx, request.ProblemID, request.Mode)

	if err != nil {
		logger.Warn().Err(err).Msg("failed to resolve test cases")

		outcome.CaseErr = err
		return finish(result, outcome, err), nil
	}

	if err := e.runtime.EnsureImageBuilt(ctx); err != nil {
		if !errors.Is(err, sandbox.ErrUnavailable) {
			return nil, errors.Wrap(err, "failed to prepare sandbox")
		}

		logger.Error().Err(err).Msg("sandbox unavailable")

		outcome.SandboxErr = err
		return finish(result, outcome, err), nil
	}

	logger.Debug().Str("state", stateCompiling).Msg("compiling submission")

	compiled, err := e.runtime.Compile(ctx, workDir, request.SourceCode)

	if err != nil {
		return nil, errors.Wrap(err, "failed to compile submission")
	}

	result.Diagnostics = compiled.Diagnostics
	result.RawCompilerOutput = compiled.Output
	result.CompileMs = compiled.Duration.Milliseconds()

	if !compiled.Success {
		logger.Debug().Str("state", stateCompileFailed).Int("diagnostics", len(compiled.Diagnostics)).Msg("compilation failed")

		outcome.CompileFailed = true
		return finish(result, outcome, nil), nil
	}

	logger.Debug().Str("state", stateCompiled).Int64("compileMs", result.CompileMs).Msg("compiled submission")
	logger.Debug().Str("state", stateRunningCases).Int("cases", len(cases)).Msg("running test cases")

	perCase, err := e.runCases(ctx, logger, workDir, cases)

	if err != nil {
		return nil, err
	}

	result.PerCase = perCase
	outcome.PerCase = perCase

	return finish(result, outcome, nil), nil
}

func finish(result *Result, outcome Outcome, cause error) *Result {
	result.Status = DeriveStatus(outcome)

	if cause != nil {
		result.Error = cause.Error()
	}

	return result
}

// runCases executes every case in sequence order. A failing case never stops
// the loop, only the case budget does.
func (e *Engine) runCases(ctx context.Context, logger *zerolog.Logger, workDir string, cases []testcases.TestCase) ([]CaseResult, error) {
	results := make([]CaseResult, 0, len(cases))
	deadline := time.Now().Add(e.caseBudget)

	for i, testCase := range cases {
		sequence := i + 1

		if e.caseBudget > 0 && !time.Now().Before(deadline) {
			results = append(results, CaseResult{
				SequenceNumber: sequence,
				FailureKind:    Timeout,
				Message:        "case budget of " + e.caseBudget.String() + " exhausted",
			})

			continue
		}

		executed, err := e.runtime.Execute(ctx, workDir, testCase.Input, e.limits)

		if err != nil {
			return nil, errors.Wrapf(err, "failed to execute test case %d", sequence)
		}

		caseResult := classify(sequence, testCase, executed)
		results = append(results, caseResult)

		logger.Debug().
			Int("case", sequence).
			Bool("passed", caseResult.Passed).
			Str("failureKind", string(caseResult.FailureKind)).
			Int64("durationMs", caseResult.DurationMs).
			Msg("ran test case")
	}

	return results, nil
}

func classify(sequence int, testCase testcases.TestCase, executed *sandbox.ExecutionOutcome) CaseResult {
	result := CaseResult{
		SequenceNumber: sequence,
		ObservedOutput: executed.Stdout,
		FailureKind:    FailureNone,
		DurationMs:     executed.Duration.Milliseconds(),
	}

	switch {
	case executed.Status == sandbox.ExecutionTimeout:
		result.FailureKind = Timeout
		result.Message = executed.Message
	case executed.Truncated:
		// a prefix of the output says nothing about the rest of it.
		result.FailureKind = RuntimeFailure
		result.Message = executed.Message

		if result.Message == "" {
			result.Message = sandbox.ErrOutputLimitExceeded.Error()
		}
	case executed.Status == sandbox.ExecutionRuntimeError:
		result.FailureKind = RuntimeFailure
		result.Message = strings.TrimSpace(strings.Join([]string{executed.Message, executed.Stderr}, "\n"))
	default:
		if outputMatches(executed.Stdout, testCase.ExpectedOutput) {
			result.Passed = true
		} else {
			result.FailureKind = Mismatch
		}
	}

	return result
}

// prepareWorkDir creates an empty scratch directory for the attempt, keyed by
// request id and attempt number. A left over directory of the same attempt is
// wiped first.
func (e *Engine) prepareWorkDir(id string, attempt int) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", errors.Errorf("invalid request id %q", id)
	}

	name := id

	if attempt > 0 {
		name += "-" + strconv.Itoa(attempt)
	}

	workDir := filepath.Join(e.workRoot, name)

	if err := os.RemoveAll(workDir); err != nil {
		return "", errors.Wrap(err, "failed to clear scratch directory")
	}

	if err := os.Mkdir(workDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create scratch directory")
	}

	return workDir, nil
}

func (e *Engine) cleanup(workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		log.Error().Err(err).Str("workDir", workDir).Msg("failed to remove scratch directory")
	}
}
