package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	"github.com/kplanner/kplanner-backend/internal/db"
	"github.com/kplanner/kplanner-backend/internal/queue"
	"github.com/kplanner/kplanner-backend/internal/repository"
	"github.com/kplanner/kplanner-backend/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is required for the worker")
	}

	conn, err := db.Open(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	relationService := &service.RelationService{
		Relations: &repository.RelationRepository{DB: conn},
		Keywords:  &repository.KeywordRepository{DB: conn},
		Cfg:       cfg,
		Log:       logger,
	}

	amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal("queue unavailable", zap.Error(err))
	}
	defer amqpQueue.Close()

	// Bridge broker deliveries onto the worker's job channel so the sweep
	// loop stays broker-agnostic.
	jobChan := make(chan string)
	worker := service.NewWorker(relationService, jobChan, logger)

	err = amqpQueue.Subscribe(service.CleanupTopic, func(payload any) error {
		owner, ok := payload.(string)
		if !ok {
			logger.Warn("invalid cleanup payload, expected owner id string")
			return nil
		}
		jobChan <- owner
		return nil
	})
	if err != nil {
		logger.Fatal("failed to start cleanup subscriber", zap.Error(err))
	}

	logger.Info("worker running, waiting for cleanup jobs")
	worker.Start()
}
