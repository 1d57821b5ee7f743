package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	grpcapi "github.com/frankwiersma/speech-to-jira/internal/api/grpc"
	"github.com/frankwiersma/speech-to-jira/internal/app"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/events"
	apihttp "github.com/frankwiersma/speech-to-jira/internal/http"
	"github.com/frankwiersma/speech-to-jira/internal/observability"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
	"github.com/frankwiersma/speech-to-jira/internal/service/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	application := app.New(cfg)
	m := metrics.DefaultMetrics

	// Kafka publisher for transcript and ticket notifications
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		TopicTickets:     cfg.Kafka.TopicTickets,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	svc := pipeline.New(pipeline.ConfigFrom(cfg),
		pipeline.WithPublisher(publisher),
		pipeline.WithMetrics(m),
	)

	obs := observability.NewServer(":"+cfg.Service.MetricsPort, application.Ready)
	obs.Start()

	grpcServer := grpcapi.NewServer(m)
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("failed to listen")
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve failed")
		}
	}()

	// Provider calls can take a full stage timeout each, so writes get room
	// for two stages.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application, svc, m),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2*svc.Limits().StageTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Speech-to-Jira API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("application start failed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Shutdown()
	grpcServer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("observability shutdown failed")
	}
}
