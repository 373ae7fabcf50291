package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is the part of a problem record the judge reads. Samples are the
// small inline cases used for dry runs, stored as a json column.
type Problem struct {
	ID    string `gorm:"primarykey"`
	Title string

	SampleTestcases []Sample `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) GetProblem(ctx context.Context, id string) (*Problem, error) {
	var problem Problem

	err := c.DB.WithContext(ctx).First(&problem, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrProblemNotFound, "problem %s", id)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to get problem %s", id)
	}

	return &problem, nil
}

// SaveProblem inserts the problem or replaces its title and samples.
func (c *Client) SaveProblem(ctx context.Context, problem *Problem) error {
	result := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "sample_testcases", "updated_at"}),
	}).Create(problem)

	return errors.Wrapf(result.Error, "failed to save problem %s", problem.ID)
}
