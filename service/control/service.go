// Package control implements the engine's control plane: per-principal
// system status with pause, resume and emergency-stop operations. Emergency
// stop is the most severe control – it force-pauses every running task for
// the principal and blocks intake until an explicit resume.
package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/internal/idgen"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
)

// ErrSystemHalted is returned by intake while a principal's engine is
// stopped or emergency-stopped.
var ErrSystemHalted = errors.New("control: system halted")

// Service is the control plane for all principals.
type Service struct {
	statusDAO dao.Service[string, model.SystemStatus]
	taskDAO   dao.Service[string, model.Task]
	logger    *zap.Logger
	mu        sync.Mutex
}

// Option customises the service.
type Option func(*Service)

// WithStatusDAO overrides the backing status store (keyed by principal).
func WithStatusDAO(service dao.Service[string, model.SystemStatus]) Option {
	return func(s *Service) { s.statusDAO = service }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a control plane service. taskDAO is consulted by EmergencyStop
// to locate the principal's running tasks.
func New(taskDAO dao.Service[string, model.Task], options ...Option) *Service {
	ret := &Service{taskDAO: taskDAO, logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	if ret.statusDAO == nil {
		ret.statusDAO = store.NewMemoryStore[string, model.SystemStatus](
			func(s *model.SystemStatus) string { return s.Principal })
	}
	return ret
}

// Ensure returns the principal's status record, creating a running one on
// first access.
func (s *Service) Ensure(ctx context.Context, principal string) (*model.SystemStatus, error) {
	if principal == "" {
		return nil, dao.ErrInvalidID
	}
	status, err := s.statusDAO.Load(ctx, principal)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if status, err = s.statusDAO.Load(ctx, principal); err == nil {
		return status, nil
	}
	now := time.Now()
	status = &model.SystemStatus{
		ID:        idgen.New(),
		Principal: principal,
		Status:    model.EngineRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.statusDAO.Save(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// EnsureAccepting fails with ErrSystemHalted when the principal's engine
// refuses new tasks.
func (s *Service) EnsureAccepting(ctx context.Context, principal string) error {
	status, err := s.Ensure(ctx, principal)
	if err != nil {
		return err
	}
	if status.Halted() {
		return ErrSystemHalted
	}
	return nil
}

// ExecutionBlocked reports whether execution must not proceed for the
// principal: pause blocks new side effects, stop and emergency stop block
// everything. It is re-checked immediately before every side effect and
// retry re-attempt.
func (s *Service) ExecutionBlocked(ctx context.Context, principal string) bool {
	status, err := s.Ensure(ctx, principal)
	if err != nil {
		return false
	}
	return status.Halted() || status.Status == model.EnginePaused
}

// Pause suspends new execute transitions for the principal. Running tasks
// are left untouched.
func (s *Service) Pause(ctx context.Context, principal, reason string) (*model.SystemStatus, error) {
	return s.transition(ctx, principal, model.EnginePaused, reason)
}

// Stop halts the principal's engine; intake refuses new tasks until resume.
func (s *Service) Stop(ctx context.Context, principal, reason string) (*model.SystemStatus, error) {
	return s.transition(ctx, principal, model.EngineStopped, reason)
}

// Resume clears pause and emergency markers and returns the engine to
// running. Individually paused tasks stay paused – resuming them is a
// separate, explicit action.
func (s *Service) Resume(ctx context.Context, principal string) (*model.SystemStatus, error) {
	status, err := s.Ensure(ctx, principal)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status.Status = model.EngineRunning
	status.PausedAt = nil
	status.PausedReason = ""
	status.UpdatedAt = time.Now()
	if err = s.statusDAO.Save(ctx, status); err != nil {
		return nil, err
	}
	s.logger.Info("engine resumed", zap.String("principal", principal))
	return status, nil
}

// EmergencyStop force-pauses every running task for the principal and sets
// the engine to emergency_stop. The bulk pause is best-effort: a task
// transitioning out of running concurrently may be missed, and the returned
// count reflects the records actually changed.
func (s *Service) EmergencyStop(ctx context.Context, principal string) (int, error) {
	affected := 0
	tasks, err := s.taskDAO.List(ctx,
		dao.NewParameter(dao.ParamPrincipal, principal),
		dao.NewParameter(dao.ParamStatus, string(model.TaskStateRunning)))
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		if task.Status != model.TaskStateRunning {
			continue
		}
		task.Pause()
		if err := s.taskDAO.Save(ctx, task); err != nil {
			continue
		}
		affected++
	}

	if _, err = s.transition(ctx, principal, model.EngineEmergencyStop, "emergency stop activated"); err != nil {
		return affected, err
	}
	s.logger.Warn("emergency stop activated",
		zap.String("principal", principal),
		zap.Int("tasksPaused", affected))
	return affected, nil
}

// UpdateCounters applies a mutation to the principal's rolling counters.
func (s *Service) UpdateCounters(ctx context.Context, principal string, mutate func(*model.SystemStatus)) error {
	status, err := s.Ensure(ctx, principal)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(status)
	status.UpdatedAt = time.Now()
	return s.statusDAO.Save(ctx, status)
}

func (s *Service) transition(ctx context.Context, principal string, state model.EngineState, reason string) (*model.SystemStatus, error) {
	status, err := s.Ensure(ctx, principal)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	status.Status = state
	status.PausedAt = &now
	status.PausedReason = reason
	status.UpdatedAt = now
	if err = s.statusDAO.Save(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}
