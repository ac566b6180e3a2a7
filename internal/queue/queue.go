// Package queue provides background task processing using Asynq.
// It is used instead of the in-process runner when [queue] is enabled, so
// pending extractions survive restarts and can be spread over workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slide-extractor/config"
	"slide-extractor/internal/service"
	"slide-extractor/log"
)

// Task type names
const (
	TypeSlideTask = "slides:extract"
)

const (
	slideTaskMaxRetry = 2
	slideTaskTimeout  = 2 * time.Hour
)

// SlideTaskPayload identifies a persisted extraction task.
type SlideTaskPayload struct {
	TaskID string `json:"task_id"`
}

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// ConfigFrom maps the [queue] config section.
func ConfigFrom(c config.Queue) QueueConfig {
	cfg := QueueConfig{
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		Concurrency:   c.Concurrency,
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg
}

// Queue manages task enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

var _ service.Dispatcher = (*Queue)(nil)

// NewQueue creates a new Queue instance
func NewQueue(cfg QueueConfig) *Queue {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			RetryDelayFunc: retryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client: client,
		server: server,
		config: cfg,
	}
}

// retryDelay backs off exponentially: 10s, 20s, 40s, ...
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(10<<uint(n)) * time.Second
}

// NewSlideTask builds the asynq task for a persisted extraction.
func NewSlideTask(taskID string) (*asynq.Task, error) {
	data, err := json.Marshal(SlideTaskPayload{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSlideTask, data,
		asynq.MaxRetry(slideTaskMaxRetry),
		asynq.Timeout(slideTaskTimeout),
		asynq.Queue("default"),
	), nil
}

// Dispatch enqueues a persisted extraction task.
func (q *Queue) Dispatch(taskID string) error {
	task, err := NewSlideTask(taskID)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("Task enqueued",
		zap.String("task_id", taskID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))

	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}
