// Package testcases resolves the ordered test cases a submission is judged
// against.
package testcases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/files"
	"submission-judge/internal/repository"
)

// DocumentName is the object holding the full test case set of a problem in
// remote storage, addressed by the problem id.
const DocumentName = "testcases.json"

var (
	// ErrFetch is returned when the test cases could not be loaded, as opposed
	// to the problem having none.
	ErrFetch = errors.New("testcase fetch error")

	ErrNoTestcases = errors.New("no testcases")
)

type Mode string

const (
	DryRun Mode = "dry_run"
	Submit Mode = "submit"
)

func (m Mode) Valid() bool {
	return m == DryRun || m == Submit
}

type TestCase struct {
	// SequenceNumber starts at 1 and follows the order of the source list.
	SequenceNumber int    `json:"sequence_number"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

type document struct {
	Testcases []struct {
		Input  *string `json:"input"`
		Output *string `json:"output"`
	} `json:"testcases"`
}

// ProblemStore supplies the problem record with its inline sample cases.
type ProblemStore interface {
	GetProblem(ctx context.Context, id string) (*repository.Problem, error)
}

type Source struct {
	problems ProblemStore
	files    files.Files
}

func NewSource(problems ProblemStore, filesHandler files.Files) *Source {
	return &Source{problems: problems, files: filesHandler}
}

// Resolve returns the cases of the problem for the mode. Dry runs read the
// inline samples and never touch remote storage; submits perform a single
// fetch of the test case document.
func (s *Source) Resolve(ctx context.Context, problemID string, mode Mode) ([]TestCase, error) {
	var (
		cases []TestCase
		err   error
	)

	switch mode {
	case DryRun:
		cases, err = s.samples(ctx, problemID)
	case Submit:
		cases, err = s.remote(ctx, problemID)
	default:
		return nil, errors.Errorf("unknown mode %s", mode)
	}

	if err != nil {
		return nil, err
	}

	if len(cases) == 0 {
		return nil, errors.Wrapf(ErrNoTestcases, "problem %s", problemID)
	}

	log.Debug().Str("problemID", problemID).Str("mode", string(mode)).Int("cases", len(cases)).Msg("resolved test cases")
	return cases, nil
}

func (s *Source) samples(ctx context.Context, problemID string) ([]TestCase, error) {
	problem, err := s.problems.GetProblem(ctx, problemID)

	if err != nil {
		return nil, fetchError(err, "failed to load samples of problem %s", problemID)
	}

	cases := make([]TestCase, 0, len(problem.SampleTestcases))

	for i, sample := range problem.SampleTestcases {
		cases = append(cases, TestCase{
			SequenceNumber: i + 1,
			Input:          sample.Input,
			ExpectedOutput: sample.Output,
		})
	}

	return cases, nil
}

func (s *Source) remote(ctx context.Context, problemID string) ([]TestCase, error) {
	data, err := s.files.GetFile(ctx, problemID, DocumentName)

	if err != nil {
		return nil, fetchError(err, "failed to fetch test cases of problem %s", problemID)
	}

	return Decode(data)
}

// Decode parses a test case document. Every entry needs both an input and an
// output, a document missing either is malformed.
func Decode(data []byte) ([]TestCase, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	var doc document

	if err := decoder.Decode(&doc); err != nil {
		return nil, fetchError(err, "malformed test case document")
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after the document")
		}

		return nil, fetchError(err, "malformed test case document")
	}

	if doc.Testcases == nil {
		return nil, fetchError(errors.New(`missing "testcases" array`), "malformed test case document")
	}

	cases := make([]TestCase, 0, len(doc.Testcases))

	for i, entry := range doc.Testcases {
		if entry.Input == nil || entry.Output == nil {
			return nil, fetchError(errors.Errorf("entry %d needs an input and an output", i), "malformed test case document")
		}

		cases = append(cases, TestCase{
			SequenceNumber: i + 1,
			Input:          *entry.Input,
			ExpectedOutput: *entry.Output,
		})
	}

	return cases, nil
}

type fetchErr struct {
	cause error
	msg   string
}

func (e *fetchErr) Error() string { return e.msg + ": " + e.cause.Error() }

func (e *fetchErr) Unwrap() error { return e.cause }

func (e *fetchErr) Is(target error) bool { return target == ErrFetch }

// fetchError marks err as a fetch failure while keeping the cause reachable
// with errors.Is, e.g. files.ErrNotFound.
func fetchError(err error, format string, args ...interface{}) error {
	return &fetchErr{cause: err, msg: fmt.Sprintf(format, args...)}
}
