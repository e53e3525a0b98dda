// The worker relays lifecycle events published by the API: it
// subscribes to the broker channel, logs each event, and exposes
// per-type counters for dashboards. Downstream consumers (sync jobs,
// notification fan-out) hang off the same channel.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/medscribe/scribe-api/internal/config"
	"github.com/medscribe/scribe-api/internal/event"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/messaging"
	messagingRedis "github.com/medscribe/scribe-api/pkg/messaging/redis"
)

var (
	eventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_worker_events_relayed_total",
		Help: "Lifecycle events received from the broker",
	}, []string{"event_type"})
	eventsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_worker_events_malformed_total",
		Help: "Broker payloads that could not be decoded",
	})
)

func main() {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	workerLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    true,
	})

	broker, err := messagingRedis.NewBroker(messagingRedis.Config{
		URL:        cfg.RedisURL,
		MaxRetries: 3,
		PoolSize:   5,
	}, workerLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, event.ChannelLifecycle)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe")
	}

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	workerLogger.Info("worker started", "channel", event.ChannelLifecycle)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			workerLogger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			metricsSrv.Shutdown(shutdownCtx)
			return
		case payload, ok := <-messages:
			if !ok {
				workerLogger.Info("subscription closed")
				return
			}
			relay(workerLogger, payload)
		}
	}
}

func relay(workerLogger *logger.Logger, payload []byte) {
	var evt messaging.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		eventsMalformed.Inc()
		workerLogger.Error(err, "malformed event payload")
		return
	}
	eventsRelayed.WithLabelValues(evt.Type).Inc()
	workerLogger.Info("event relayed", "event_type", evt.Type)
}
