package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-judge/internal/files"
	"submission-judge/internal/repository"
	"submission-judge/internal/testcases"
)

type savedProblems struct {
	problems []*repository.Problem
}

func (s *savedProblems) SaveProblem(_ context.Context, problem *repository.Problem) error {
	s.problems = append(s.problems, problem)
	return nil
}

func localFiles(t *testing.T) files.Files {
	handler, err := files.NewFilesHandler(&files.Config{
		Local:          &files.LocalConfig{LocalRootPath: t.TempDir()},
		ForceLocalMode: true,
	})
	require.NoError(t, err)

	return handler
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	saver := &savedProblems{}
	fileHandler := localFiles(t)

	definition := &problemDefinition{
		ID:        "two-sum",
		Title:     "Two Sum",
		Samples:   []repository.Sample{{Input: "1 2\n", Output: "3\n"}},
		Testcases: []repository.Sample{{Input: "1 2\n", Output: "3\n"}, {Input: "5 7\n", Output: "12\n"}},
	}

	require.NoError(t, load(ctx, definition, saver, fileHandler))

	require.Len(t, saver.problems, 1)
	assert.Equal(t, "Two Sum", saver.problems[0].Title)
	assert.Equal(t, definition.Samples, saver.problems[0].SampleTestcases)

	data, err := fileHandler.GetFile(ctx, "two-sum", testcases.DocumentName)
	require.NoError(t, err)

	cases, err := testcases.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []testcases.TestCase{
		{SequenceNumber: 1, Input: "1 2\n", ExpectedOutput: "3\n"},
		{SequenceNumber: 2, Input: "5 7\n", ExpectedOutput: "12\n"},
	}, cases)
}

func TestLoadWithoutTestcases(t *testing.T) {
	saver := &savedProblems{}

	err := load(context.Background(), &problemDefinition{ID: "empty"}, saver, localFiles(t))

	assert.Error(t, err)
	assert.Empty(t, saver.problems, "nothing is written for an invalid problem")
}

func TestReadDefinition(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "two-sum.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"id":"two-sum","testcases":[{"input":"1 2\n","output":"3\n"}]}`), 0o644))

	definition, err := readDefinition(valid)
	require.NoError(t, err)
	assert.Equal(t, "two-sum", definition.ID)
	assert.Len(t, definition.Testcases, 1)

	missingID := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingID, []byte(`{"testcases":[]}`), 0o644))

	_, err = readDefinition(missingID)
	assert.Error(t, err)

	_, err = readDefinition(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
