package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/config"
	"submission-judge/internal/jobs"
	"submission-judge/internal/parser"
	"submission-judge/internal/queue"
	"submission-judge/internal/routing"
	"submission-judge/internal/svc"
	"submission-judge/internal/validation"
)

func main() {
	config.ConfigureLogger()
	log.Info().Str("environment", config.GetCurrentEnvironment()).Msg("starting judge-api")

	args := parser.ParseDefaultConfigurationArguments()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.NewServiceContext(ctx, args)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create service context")
	}

	// the local queue only exists in this process, so it is consumed here.
	var handler queue.Handler

	if args.ForceLocalMode {
		consumer, consumerErr := svcCtx.NewConsumer()

		if consumerErr != nil {
			log.Fatal().Err(consumerErr).Msg("failed to create consumer")
		}

		handler = consumer
	}

	queueRunner, err := svcCtx.NewQueue(handler)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue")
	}

	validate, translator := validation.NewValidator()

	r := mux.NewRouter()

	routing.SubmissionHandlers{
		Jobs:       jobs.NewService(svcCtx.Store, queueRunner),
		Judge:      svcCtx.Engine,
		Limiter:    svcCtx.Limiter,
		Translator: translator,
		Validator:  validate,
	}.Register(r)

	server := &http.Server{
		Addr:              args.ListenAddress,
		Handler:           handlers.LoggingHandler(os.Stdout, handlers.CompressHandler(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", args.ListenAddress).Msg("listening")

		if listenErr := server.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			log.Fatal().Err(listenErr).Msg("failed to listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down judge-api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("failed to shut down http server")
	}

	queueRunner.Stop()
	svcCtx.Close(shutdownCtx)
}
