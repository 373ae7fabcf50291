// Package svc wires the shared dependencies of the api and the runner.
package svc

import (
	"context"
	"os"
	"path/filepath"

	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/cache"
	"submission-judge/internal/files"
	"submission-judge/internal/jobs"
	"submission-judge/internal/judge"
	"submission-judge/internal/parser"
	"submission-judge/internal/queue"
	"submission-judge/internal/ratelimit"
	"submission-judge/internal/repository"
	"submission-judge/internal/sandbox"
	"submission-judge/internal/testcases"
)

type ServiceContext struct {
	Args parser.Arguments

	// Redis is nil in local mode, the job store and the limiter then live in
	// process.
	Redis   *redis.Client
	Repo    *repository.Client
	Files   files.Files
	Runtime *sandbox.DockerRuntime
	Engine  *judge.Engine
	Store   jobs.Store
	Limiter *ratelimit.Limiter
}

func NewServiceContext(ctx context.Context, args parser.Arguments) (*ServiceContext, error) {
	svcCtx := &ServiceContext{Args: args}

	if err := svcCtx.connect(ctx); err != nil {
		svcCtx.Close(ctx)
		return nil, err
	}

	return svcCtx, nil
}

func (s *ServiceContext) connect(ctx context.Context) error {
	args := s.Args

	if args.ForceLocalMode {
		s.Store = jobs.NewMemoryStore(args.JobRetention)
		s.Limiter = ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), args.RateLimit, args.RateWindow)
	} else {
		redisConfig := cache.DefaultRedisConfig(args.RedisAddress)
		redisConfig.Password = args.RedisPassword

		redisClient, err := cache.NewRedisClient(ctx, redisConfig)

		if err != nil {
			return err
		}

		s.Redis = redisClient
		s.Store = jobs.NewRedisStore(redisClient, args.JobRetention)
		s.Limiter = ratelimit.NewLimiter(ratelimit.NewRedisCounter(redisClient), args.RateLimit, args.RateWindow)
	}

	repo, err := repository.NewRepository(args.DatabaseConn)

	if err != nil {
		return errors.Wrap(err, "failed to create database connection")
	}

	s.Repo = repo

	fileHandler, err := NewFiles(args)

	if err != nil {
		return err
	}

	s.Files = fileHandler

	runtime, profile, err := NewRuntime(args)

	if err != nil {
		return err
	}

	s.Runtime = runtime

	workRoot := args.WorkRoot

	if workRoot == "" {
		workRoot = filepath.Join(os.TempDir(), "judge")
	}

	engine, err := judge.NewEngine(&judge.Config{
		Runtime:    runtime,
		Cases:      testcases.NewSource(repo, fileHandler),
		WorkRoot:   workRoot,
		Limits:     profile.Limits(),
		CaseBudget: profile.CaseBudget,
	})

	if err != nil {
		return errors.Wrap(err, "failed to create judge engine")
	}

	s.Engine = engine
	return nil
}

// NewFiles creates the storage holding the test case documents.
func NewFiles(args parser.Arguments) (files.Files, error) {
	fileHandler, err := files.NewFilesHandler(&files.Config{
		Backend: files.Backend(args.StorageBackend),
		Local:   &files.LocalConfig{LocalRootPath: args.StorageLocalRoot},
		S3:      &files.S3Config{BucketName: args.StorageBucket},
		Minio: &files.MinioConfig{
			Endpoint:   args.MinioEndpoint,
			AccessKey:  args.MinioAccessKey,
			SecretKey:  args.MinioSecretKey,
			UseSSL:     args.MinioUseSSL,
			BucketName: args.StorageBucket,
		},
		ForceLocalMode: args.ForceLocalMode,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create file handler")
	}

	return fileHandler, nil
}

// NewRuntime creates the docker sandbox runtime with the profile of the
// machine and the configured overrides.
func NewRuntime(args parser.Arguments) (*sandbox.DockerRuntime, *sandbox.Profile, error) {
	profile := sandbox.GetProfileForMachine()

	if err := args.ApplyProfile(profile); err != nil {
		return nil, nil, err
	}

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create docker client")
	}

	runtime, err := sandbox.NewDockerRuntime(dockerClient, &sandbox.DockerConfig{
		Profile:                 profile,
		MaxConcurrentContainers: args.MaxConcurrentContainers,
	})

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create sandbox runtime")
	}

	return runtime, profile, nil
}

// NewConsumer creates the handler that judges queued jobs and records submit
// mode results.
func (s *ServiceContext) NewConsumer() (*jobs.Consumer, error) {
	return jobs.NewConsumer(&jobs.ConsumerConfig{
		Store:    s.Store,
		Judge:    s.Engine,
		Recorder: s.Repo,
	})
}

// NewQueue creates the configured transport. A nil handler creates a producer
// only, except in local mode where the queue is always consumed in process.
func (s *ServiceContext) NewQueue(handler queue.Handler) (queue.Queue, error) {
	args := s.Args
	consume := handler != nil

	return queue.NewQueue(&queue.Config{
		Backend:        queue.Backend(args.QueueBackend),
		ForceLocalMode: args.ForceLocalMode,
		Handler:        handler,

		Local: &queue.LocalConfig{Workers: args.Workers},
		Nsq: &queue.NsqConfig{
			Topic:            args.NsqTopic,
			Channel:          args.NsqChannel,
			NsqLookupAddress: args.NsqAddress,
			NsqLookupPort:    args.NsqPort,
			Workers:          args.Workers,
			Consumer:         consume,
			Producer:         true,
		},
		Sqs: &queue.SqsConfig{
			QueueURL:          args.SqsQueue,
			WaitTimeSeconds:   args.SqsWaitTimeSeconds,
			VisibilityTimeout: args.SqsVisibilityTimeout,
			Workers:           args.Workers,
			Consumer:          consume,
		},
	})
}

func (s *ServiceContext) Close(ctx context.Context) {
	if s.Runtime != nil {
		if err := s.Runtime.Close(ctx); err != nil {
			log.Error().Err(err).Msg("failed to close sandbox runtime")
		}
	}

	if s.Repo != nil {
		if err := s.Repo.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database connection")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis connection")
		}
	}
}
