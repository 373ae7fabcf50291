package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrProblemNotFound = errors.New("problem not found")

type Client struct {
	DB *gorm.DB
}

func NewRepository(connectionUrl string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(connectionUrl), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	if err := db.AutoMigrate(&Problem{}, &Submission{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Client{DB: db}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()

	if err != nil {
		return err
	}

	return sqlDB.Close()
}

type Repository interface {
	GetProblem(ctx context.Context, id string) (*Problem, error)
	SaveProblem(ctx context.Context, problem *Problem) error
	RecordSubmission(ctx context.Context, submission *Submission) error
}

var _ Repository = (*Client)(nil)
