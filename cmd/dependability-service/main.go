package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dependability/pkg/common/config"
	"github.com/synaptica-ai/dependability/pkg/common/database"
	"github.com/synaptica-ai/dependability/pkg/common/kafka"
	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/gateway/middleware"
	"github.com/synaptica-ai/dependability/pkg/serving"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
)

func main() {
	logger.Init()
	cfg := config.Load()

	bundle, err := predictor.LoadBundle(cfg.ArtifactPrefix)
	if err != nil {
		logger.Log.WithError(err).WithField("prefix", cfg.ArtifactPrefix).Fatal("Failed to load model artifacts")
	}
	if cfg.DefaultModel != "" {
		bundle.Manifest.DefaultModel = cfg.DefaultModel
	}
	engine, err := predictor.FromBundle(bundle)
	if err != nil {
		logger.Log.WithError(err).Fatal("Model artifacts failed integrity checks")
	}
	logger.WithFields(logrus.Fields{
		"version":       engine.Version(),
		"default_model": engine.DefaultModel(),
		"models":        len(engine.Models()),
	}).Info("Model artifacts loaded")

	var opts []serving.Option

	if cfg.PredictionLogEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		repo := serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
		}
		opts = append(opts, serving.WithStore(repo))
		defer database.ClosePostgres()
	}

	if cfg.ResultCacheEnabled {
		opts = append(opts, serving.WithCache(serving.NewResultCache(database.GetRedis(cfg), cfg.ResultCacheTTL)))
		defer database.CloseRedis()
	}

	if cfg.EventsEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic, "dependability-service")
		opts = append(opts, serving.WithEvents(producer))
		defer producer.Close()
	}

	service := serving.NewService(engine, opts...)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	serving.NewHTTPHandler(service, cfg.MaxUploadBytes).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Dependability Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Dependability Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Dependability Service stopped")
}
