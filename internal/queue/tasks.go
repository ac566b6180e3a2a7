package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slide-extractor/internal/service"
	"slide-extractor/log"
)

// RunFunc executes a persisted extraction task.
type RunFunc func(ctx context.Context, taskID string) error

// TaskHandlers provides handlers for different task types
type TaskHandlers struct {
	run RunFunc
}

func NewTaskHandlers(run RunFunc) *TaskHandlers {
	return &TaskHandlers{run: run}
}

// HandleSlideTask runs one extraction. Failures are already recorded on the
// task row by the service; returning the error lets asynq retry.
func (h *TaskHandlers) HandleSlideTask(ctx context.Context, t *asynq.Task) error {
	var payload SlideTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.TaskID == "" {
		return fmt.Errorf("empty task id: %w", asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing slide task", zap.String("task_id", payload.TaskID))
	if err := h.run(ctx, payload.TaskID); err != nil {
		return err
	}
	log.GetLogger().Info("[Queue] Slide task completed", zap.String("task_id", payload.TaskID))
	return nil
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSlideTask, h.HandleSlideTask)
}

// Start runs the worker in the background. Use Close to stop it.
func Start(q *Queue, svc *service.Service) error {
	handlers := NewTaskHandlers(svc.RunSlideTask)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Start(mux)
}
