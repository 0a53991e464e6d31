// Package app wires the grading pipeline's collaborators from config.
// Both grading commands share this bootstrap.
package app

import (
	"context"

	"go.uber.org/zap"

	"evograder/internal/common/cache"
	"evograder/internal/common/db"
	"evograder/internal/common/mq"
	"evograder/internal/common/storage"
	"evograder/internal/grading/config"
	"evograder/internal/grading/repository"
	"evograder/internal/grading/scoringdir"
	"evograder/internal/grading/service"
	"evograder/pkg/utils/logger"
)

// App holds the wired pipeline. Cache and Producer are nil when their
// config sections are absent.
type App struct {
	Config *config.AppConfig

	DB       db.Database
	Blobs    storage.BlobStore
	Cache    cache.Cache
	Producer mq.Producer

	Repo         repository.Repository
	Graders      repository.GraderSource
	Events       *repository.AttemptEventPublisher
	Logs         *service.LogStore
	Orchestrator *service.Orchestrator
}

// New loads config, initializes logging and connects every configured
// collaborator.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	if err := a.connect(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect() error {
	ctx := context.Background()
	cfg := a.Config

	database, err := db.NewMySQLWithConfig(&cfg.Database)
	if err != nil {
		return err
	}
	a.DB = database
	if err := a.DB.Ping(ctx); err != nil {
		return err
	}

	a.Blobs, err = cfg.BuildBlobStore()
	if err != nil {
		return err
	}

	repo := repository.NewMySQLRepository(a.DB)
	a.Repo = repo
	a.Graders = repo

	if cfg.Redis != nil {
		c, err := cache.NewRedisCacheWithConfig(cfg.Redis)
		if err != nil {
			return err
		}
		a.Cache = c
		a.Graders = repository.NewCachedGraderSource(repo, c, cfg.Worker.GraderCacheTTL)
	}

	if cfg.Events != nil {
		producer, err := mq.NewKafkaProducer(cfg.Events.Kafka)
		if err != nil {
			return err
		}
		a.Producer = producer
		a.Events = repository.NewAttemptEventPublisher(producer, cfg.Events.Topic)
	}

	builder := scoringdir.NewBuilder(cfg.Worker.ScoringTmp, a.Blobs, cfg.Worker.ScorerCommand)
	builder.SeccompProfile = cfg.Worker.SeccompProfile
	a.Logs = service.NewLogStore(a.Blobs)
	a.Orchestrator = service.NewOrchestrator(a.Repo, a.Graders, builder, a.Logs, a.Events,
		service.OrchestratorConfig{
			RunnerCmd:    []string{cfg.Worker.RunnerPath},
			PollInterval: cfg.Worker.AttemptPollInterval,
		})
	return nil
}

// Close releases every held connection. Safe on a partially built App.
func (a *App) Close() {
	ctx := context.Background()
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			logger.Warn(ctx, "close producer", zap.Error(err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			logger.Warn(ctx, "close cache", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Warn(ctx, "close database", zap.Error(err))
		}
	}
	logger.Sync()
}
