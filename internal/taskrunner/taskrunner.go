package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"slide-extractor/internal/service"
	"slide-extractor/log"
)

const (
	defaultQueueSize   = 64
	defaultConcurrency = 2
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// TaskFunc runs one persisted extraction task.
type TaskFunc func(ctx context.Context, taskId string) error

// Runner executes queued extraction tasks with in-memory workers.
type Runner struct {
	run    TaskFunc
	config Config

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

var _ service.Dispatcher = (*Runner)(nil)

// New creates and starts a runner that executes tasks through svc.
func New(svc *service.Service, cfg Config) *Runner {
	if svc == nil {
		svc = service.NewService()
	}
	return NewWithFunc(svc.RunSlideTask, cfg)
}

// NewWithFunc creates and starts a runner around an arbitrary task function.
func NewWithFunc(run TaskFunc, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		run:    run,
		config: cfg,
		queue:  make(chan string, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Dispatch queues a task without blocking. It fails with ErrQueueFull when
// every slot is taken.
func (r *Runner) Dispatch(taskId string) error {
	if taskId == "" {
		return errors.New("task id is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- taskId:
		log.GetLogger().Info("[TaskRunner] task submitted",
			zap.String("task_id", taskId),
			zap.Int("pending", len(r.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case taskId := <-r.queue:
			r.processTask(workerID, taskId)
		}
	}
}

func (r *Runner) processTask(workerID int, taskId string) {
	defer func() {
		if p := recover(); p != nil {
			log.GetLogger().Error("[TaskRunner] task panicked",
				zap.Int("worker_id", workerID),
				zap.String("task_id", taskId),
				zap.Any("panic", p))
		}
	}()

	if err := r.run(r.ctx, taskId); err != nil {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", taskId),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] task completed",
		zap.Int("worker_id", workerID),
		zap.String("task_id", taskId))
}

// Close stops workers and rejects new tasks. Running tasks see their
// context cancelled.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
