package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"submission-judge/internal/config"
	"submission-judge/internal/parser"
	"submission-judge/internal/svc"
)

func main() {
	config.ConfigureLogger()
	log.Info().Str("environment", config.GetCurrentEnvironment()).Msg("starting judge-runner")

	args := parser.ParseDefaultConfigurationArguments()

	if args.ForceLocalMode {
		log.Fatal().Msg("the local queue is consumed by judge-api, the runner needs nsq or sqs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.NewServiceContext(ctx, args)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create service context")
	}

	// building up front keeps the first job from paying for it, a failure
	// here is retried by the first job.
	if buildErr := svcCtx.Runtime.EnsureImageBuilt(ctx); buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build sandbox image")
	}

	consumer, err := svcCtx.NewConsumer()

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consumer")
	}

	queueRunner, err := svcCtx.NewQueue(consumer)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue")
	}

	log.Info().Int("workers", args.Workers).Str("backend", args.QueueBackend).Msg("consuming jobs")

	<-ctx.Done()
	log.Info().Msg("shutting down judge-runner")

	queueRunner.Stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svcCtx.Close(closeCtx)
}
