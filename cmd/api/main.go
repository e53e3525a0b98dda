package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medscribe/scribe-api/internal/capture"
	"github.com/medscribe/scribe-api/internal/config"
	"github.com/medscribe/scribe-api/internal/event"
	"github.com/medscribe/scribe-api/internal/handler"
	captureHandler "github.com/medscribe/scribe-api/internal/handler/capture"
	consultationHandler "github.com/medscribe/scribe-api/internal/handler/consultation"
	patientHandler "github.com/medscribe/scribe-api/internal/handler/patient"
	"github.com/medscribe/scribe-api/internal/router"
	consultationService "github.com/medscribe/scribe-api/internal/service/consultation"
	patientService "github.com/medscribe/scribe-api/internal/service/patient"
	viewService "github.com/medscribe/scribe-api/internal/service/view"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/messaging"
	messagingRedis "github.com/medscribe/scribe-api/pkg/messaging/redis"
	"github.com/medscribe/scribe-api/pkg/metrics"
	"github.com/medscribe/scribe-api/pkg/recordstore"
	"github.com/medscribe/scribe-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    true,
	})

	if err := validator.RegisterCustomRules(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validation rules")
	}

	appMetrics := metrics.NewMetrics("scribe", "api")

	storeClient := recordstore.NewClient(recordstore.Config{
		BaseURL: cfg.RecordStore.BaseURL,
		Timeout: cfg.RecordStore.Timeout,
	}, appLogger.Zerolog(), appMetrics)
	snapshots := store.New(storeClient, cfg.Snapshot.TTL)

	// Event publishing is optional infrastructure; the engine runs
	// without redis.
	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = messagingRedis.NewBroker(messagingRedis.Config{
			URL:        cfg.Redis.URL,
			MaxRetries: 3,
			PoolSize:   10,
		}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer broker.Close()
	}
	emitter := event.NewEmitter(broker, appLogger.WithComponent("events"), appMetrics)

	generator := capture.NewSimulatedGenerator(capture.SimulatedConfig{
		Seed:      cfg.Simulation.Seed,
		Increment: cfg.Simulation.Increment,
		Interval:  cfg.Simulation.Interval,
	})
	captureManager := capture.NewManager(capture.NewMemoryRecorder, generator, appMetrics, appLogger.WithComponent("capture"))

	patientSvc := patientService.NewService(snapshots, emitter, appLogger.WithComponent("patients"))
	consultationSvc := consultationService.NewService(snapshots, emitter, appMetrics, appLogger.WithComponent("consultations"))
	viewSvc := viewService.NewService(snapshots)

	routerCfg := router.Config{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPrefix:  "scribe",
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(routerCfg, handler.NewHandler(),
		patientHandler.NewHandler(patientSvc, viewSvc),
		consultationHandler.NewHandler(consultationSvc, viewSvc),
		captureHandler.NewHandler(captureManager, patientSvc, consultationSvc, appLogger.WithComponent("capture")),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}
