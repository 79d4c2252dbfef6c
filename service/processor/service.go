// Package processor runs the worker pool that drains the task queue and
// feeds runnable tasks into the pipeline's execute phase. Tasks are
// serialised per id: a task already in flight is redelivered instead of being
// executed twice, and the persisted status is re-read before every attempt so
// stale queue payloads never override a later transition.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/messaging"
	"github.com/stewardlab/steward/service/pipeline"
)

// Config represents the worker pool configuration.
type Config struct {
	// WorkerCount is the number of workers draining the queue.
	WorkerCount int

	// RetryDelay is the delay before a retried task is re-published.
	RetryDelay time.Duration
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 5,
		RetryDelay:  100 * time.Millisecond,
	}
}

// Service drains the task queue.
type Service struct {
	config   Config
	taskDAO  dao.Service[string, model.Task]
	queue    messaging.Queue[model.Task]
	pipeline *pipeline.Service
	logger   *zap.Logger

	inFlight map[string]bool
	mu       sync.Mutex

	workers  []*worker
	workerWg sync.WaitGroup
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// Option customises the processor.
type Option func(*Service)

// WithConfig overrides the worker pool configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a processor.
func New(taskDAO dao.Service[string, model.Task],
	queue messaging.Queue[model.Task],
	pipelineService *pipeline.Service,
	options ...Option) (*Service, error) {
	s := &Service{
		config:   DefaultConfig(),
		taskDAO:  taskDAO,
		queue:    queue,
		pipeline: pipelineService,
		logger:   zap.NewNop(),
		inFlight: make(map[string]bool),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.taskDAO == nil {
		return nil, fmt.Errorf("taskDAO is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("message queue is required")
	}
	if s.pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	return s, nil
}

// Start launches the worker goroutines; they stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

// Shutdown stops the workers and waits for in-flight work to finish.
func (s *Service) Shutdown() {
	for _, w := range s.workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

// run processes messages from the queue.
func (w *worker) run() {
	defer w.service.workerWg.Done()

	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			// Transient error (e.g. queue closed); back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			w.service.logger.Error("failed to process message",
				zap.Int("worker", w.id),
				zap.Error(pErr))
		}
	}
}

func (s *Service) processMessage(ctx context.Context, msg messaging.Message[model.Task]) error {
	payload := msg.T()
	if payload == nil || payload.ID == "" {
		return msg.Ack()
	}

	if !s.acquire(payload.ID) {
		// Another worker holds the task; redeliver rather than run twice.
		return msg.Nack(fmt.Errorf("task %s already in flight", payload.ID))
	}
	defer s.release(payload.ID)

	// The queue payload may be stale; the persisted record decides.
	task, err := s.taskDAO.Load(ctx, payload.ID)
	if errors.Is(err, dao.ErrNotFound) {
		return msg.Ack()
	}
	if err != nil {
		_ = msg.Nack(err)
		return err
	}
	if !task.Status.Runnable() {
		return msg.Ack()
	}

	err = s.pipeline.Execute(ctx, task)
	switch {
	case err == nil:
		return msg.Ack()
	case errors.Is(err, pipeline.ErrRetryScheduled):
		if ackErr := msg.Ack(); ackErr != nil {
			return ackErr
		}
		s.republishLater(ctx, task)
		return nil
	case errors.Is(err, pipeline.ErrExecutionBlocked):
		// Leave the task pending; resume re-publishes the backlog.
		return msg.Ack()
	default:
		_ = msg.Ack()
		return err
	}
}

// republishLater re-publishes a retried task after the configured delay,
// re-checking the persisted status right before publishing.
func (s *Service) republishLater(ctx context.Context, task *model.Task) {
	s.workerWg.Add(1)
	go func() {
		defer s.workerWg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.RetryDelay):
		}
		current, err := s.taskDAO.Load(ctx, task.ID)
		if err != nil || !current.Status.Runnable() {
			return
		}
		if err := s.queue.Publish(ctx, current); err != nil {
			s.logger.Error("failed to re-publish task",
				zap.String("task", task.ID),
				zap.Error(err))
		}
	}()
}

func (s *Service) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
