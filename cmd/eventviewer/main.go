// Command eventviewer shows pipeline events from Kafka in the browser.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/eventviewer"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	port := flag.String("port", "8081", "HTTP server port")
	since := flag.Duration("since", time.Hour, "replay events newer than this")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: "console",
	})

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := eventviewer.NewHub()
	go hub.Run(ctx)

	for _, topic := range []string{cfg.Kafka.TopicTranscripts, cfg.Kafka.TopicTickets} {
		reader := eventviewer.NewReader(ctx, cfg.Kafka.Brokers, topic, *since)
		go eventviewer.Consume(ctx, hub, reader, topic, time.Second)
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           eventviewer.Handler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", "http://localhost:"+*port).
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topicTranscripts", cfg.Kafka.TopicTranscripts).
		Str("topicTickets", cfg.Kafka.TopicTickets).
		Msg("event viewer starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
