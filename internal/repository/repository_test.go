//go:build e2e

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	ctx context.Context
	suite.Suite

	client *Client
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	connection := os.Getenv("DATABASE_CONNECTION_STRING")

	if connection == "" {
		connection = "host=localhost user=root password=root port=54320 dbname=judge TimeZone=UTC"
	}

	client, err := NewRepository(connection)
	s.Require().NoError(err, "postgres is required")

	s.client = client
}

func (s *RepositorySuite) TearDownSuite() {
	_ = s.client.Close()
}

func (s *RepositorySuite) TestProblemSamples() {
	id := uuid.NewString()

	s.Require().NoError(s.client.SaveProblem(s.ctx, &Problem{
		ID:              id,
		Title:           "echo",
		SampleTestcases: []Sample{{Input: "1\n", Output: "1\n"}, {Input: "2\n", Output: "2\n"}},
	}))

	problem, err := s.client.GetProblem(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]Sample{{Input: "1\n", Output: "1\n"}, {Input: "2\n", Output: "2\n"}}, problem.SampleTestcases)

	s.Require().NoError(s.client.SaveProblem(s.ctx, &Problem{ID: id, Title: "echo", SampleTestcases: []Sample{}}))

	problem, err = s.client.GetProblem(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(problem.SampleTestcases)
}

func (s *RepositorySuite) TestUnknownProblem() {
	_, err := s.client.GetProblem(s.ctx, uuid.NewString())
	s.True(errors.Is(err, ErrProblemNotFound))
}

func (s *RepositorySuite) TestRecordSubmission() {
	submission := &Submission{
		ID:          uuid.NewString(),
		ProblemID:   "echo",
		PrincipalID: "user-1",
		Language:    "cpp",
		Status:      "accepted",
		PassedCases: 3,
		TotalCases:  3,
	}

	s.Require().NoError(s.client.RecordSubmission(s.ctx, submission))

	var stored Submission
	s.Require().NoError(s.client.DB.First(&stored, "id = ?", submission.ID).Error)
	s.Equal("accepted", stored.Status)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
