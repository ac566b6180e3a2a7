package main

import (
	"os"

	"go.uber.org/zap"

	"slide-extractor/config"
	"slide-extractor/internal/deps"
	"slide-extractor/internal/queue"
	"slide-extractor/internal/server"
	"slide-extractor/internal/service"
	"slide-extractor/internal/storage"
	"slide-extractor/internal/taskrunner"
	"slide-extractor/log"
)

func main() {
	log.InitLogger()
	defer log.GetLogger().Sync()

	if _, err := config.LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("invalid config", zap.Error(err))
		os.Exit(1)
	}
	if err := deps.CheckDependency(); err != nil {
		log.GetLogger().Error("dependency check failed", zap.Error(err))
		os.Exit(1)
	}

	storage.InitDB()

	// Pending tasks only survive a restart when they sit in Redis.
	if count, err := storage.MarkStaleTasks(!config.Conf.Queue.Enabled); err != nil {
		log.GetLogger().Warn("failed to mark stale tasks", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked stale tasks as failed", zap.Int64("count", count))
	}

	svc := service.NewService()
	if config.Conf.Queue.Enabled {
		q := queue.NewQueue(queue.ConfigFrom(config.Conf.Queue))
		if err := queue.Start(q, svc); err != nil {
			log.GetLogger().Error("failed to start queue worker", zap.Error(err))
			os.Exit(1)
		}
		defer q.Close()
		svc.Dispatcher = q
	} else {
		runner := taskrunner.New(svc, taskrunner.Config{
			QueueSize:   config.Conf.App.QueueSize,
			Concurrency: config.Conf.App.WorkerCount,
		})
		defer runner.Close()
		svc.Dispatcher = runner
	}

	if err := server.StartBackend(svc); err != nil {
		log.GetLogger().Error("backend failed", zap.Error(err))
		os.Exit(1)
	}
}
