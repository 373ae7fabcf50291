package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/config"
	"submission-judge/internal/files"
	"submission-judge/internal/parser"
	"submission-judge/internal/repository"
	"submission-judge/internal/svc"
	"submission-judge/internal/testcases"
)

// problemDefinition is the file the loader reads, one per problem.
type problemDefinition struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Samples   []repository.Sample `json:"samples"`
	Testcases []repository.Sample `json:"testcases"`
}

type problemSaver interface {
	SaveProblem(ctx context.Context, problem *repository.Problem) error
}

func readDefinition(path string) (*problemDefinition, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var definition problemDefinition

	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	if definition.ID == "" {
		return nil, errors.Errorf("%s has no problem id", path)
	}

	return &definition, nil
}

// load uploads the full test case document and stores the samples on the
// problem record. The document is checked with the same decoder the judge
// uses before anything is written.
func load(ctx context.Context, definition *problemDefinition, problems problemSaver, fileHandler files.Files) error {
	document, err := json.Marshal(map[string][]repository.Sample{"testcases": definition.Testcases})

	if err != nil {
		return errors.Wrap(err, "failed to encode test cases")
	}

	cases, err := testcases.Decode(document)

	if err != nil {
		return err
	}

	if len(cases) == 0 {
		return errors.Errorf("problem %s has no test cases", definition.ID)
	}

	if err := fileHandler.WriteFile(ctx, &files.File{
		ID:   definition.ID,
		Name: testcases.DocumentName,
		Data: document,
	}); err != nil {
		return errors.Wrapf(err, "failed to upload test cases of %s", definition.ID)
	}

	samples := definition.Samples

	if samples == nil {
		samples = []repository.Sample{}
	}

	if err := problems.SaveProblem(ctx, &repository.Problem{
		ID:              definition.ID,
		Title:           definition.Title,
		SampleTestcases: samples,
	}); err != nil {
		return errors.Wrapf(err, "failed to save problem %s", definition.ID)
	}

	log.Info().Str("problemID", definition.ID).Int("samples", len(samples)).Int("cases", len(cases)).Msg("loaded problem")
	return nil
}

func main() {
	config.ConfigureLogger()
	log.Info().Msg("starting testcase-loader")

	args := parser.ParseDefaultConfigurationArguments()
	paths := args.Positional

	if len(paths) == 0 {
		log.Fatal().Msg("usage: testcase-loader [flags] problem.json...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo, err := repository.NewRepository(args.DatabaseConn)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database connection")
	}

	defer repo.Close()

	fileHandler, err := svc.NewFiles(args)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create file handler")
	}

	for _, path := range paths {
		definition, readErr := readDefinition(path)

		if readErr != nil {
			log.Fatal().Err(readErr).Msg("failed to read problem")
		}

		if loadErr := load(ctx, definition, repo, fileHandler); loadErr != nil {
			log.Fatal().Err(loadErr).Str("path", path).Msg("failed to load problem")
		}
	}
}
