// Package pipeline implements the six-phase task life cycle:
// intake, analyze, decide, execute, verify, report. Each phase is a method so
// collaborators (processor, approval re-entry, tests) can enter at the stage
// they need; the persisted task status is the only hand-off between phases.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/internal/idgen"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/policy"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/control"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/executor"
	"github.com/stewardlab/steward/service/metrics"
	"github.com/stewardlab/steward/service/trust"
	"github.com/stewardlab/steward/tracing"
)

// ErrExecutionBlocked signals that the control plane refused the execute
// phase; the task keeps its pre-execution status.
var ErrExecutionBlocked = errors.New("pipeline: execution blocked by control plane")

// ErrRetryScheduled signals a recoverable execution failure: the task went
// back to pending with one retry consumed and should be re-published.
var ErrRetryScheduled = errors.New("pipeline: retry scheduled")

// ErrValidation wraps intake validation failures.
var ErrValidation = errors.New("pipeline: invalid task")

// Decide phase outcomes.
const (
	OutcomeExecute         = "execute"
	OutcomeRequestApproval = "request_approval"
	OutcomeBlocked         = "block"
)

// Verification is the read-only record the verify phase derives from an
// execution outcome.
type Verification struct {
	TaskID     string                 `json:"taskId"`
	Success    bool                   `json:"success"`
	Status     model.TaskState        `json:"status"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	VerifiedAt time.Time              `json:"verifiedAt"`
}

// Service runs tasks through the phases.
type Service struct {
	taskDAO   dao.Service[string, model.Task]
	trust     *trust.Service
	control   *control.Service
	approvals approval.Service
	executor  executor.Service
	metrics   *metrics.Service
	logger    *zap.Logger
	ttl       time.Duration
}

// Option customises the pipeline.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithApprovalTTL overrides how long approval requests stay answerable.
func WithApprovalTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// New assembles the pipeline from its collaborators.
func New(taskDAO dao.Service[string, model.Task],
	trustService *trust.Service,
	controlService *control.Service,
	approvalService approval.Service,
	executorService executor.Service,
	metricsService *metrics.Service,
	options ...Option) *Service {
	ret := &Service{
		taskDAO:   taskDAO,
		trust:     trustService,
		control:   controlService,
		approvals: approvalService,
		executor:  executorService,
		metrics:   metricsService,
		logger:    zap.NewNop(),
		ttl:       approval.DefaultTTL,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Intake validates and classifies a freshly submitted task and persists it.
// Intake is refused outright while the principal's engine is halted.
func (s *Service) Intake(ctx context.Context, task *model.Task) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.intake", "INTERNAL")
	err := s.intake(ctx, task)
	tracing.EndSpan(span, err)
	return err
}

func (s *Service) intake(ctx context.Context, task *model.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task was empty", ErrValidation)
	}
	if task.Principal == "" {
		return fmt.Errorf("%w: principal is required", ErrValidation)
	}
	if !task.Kind.Valid() {
		return fmt.Errorf("%w: unknown action kind %q", ErrValidation, task.Kind)
	}
	if task.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.control.EnsureAccepting(ctx, task.Principal); err != nil {
		return err
	}

	if task.ID == "" {
		task.ID = idgen.New()
	}
	task.RequiredTrustLevel = policy.RequiredLevel(task.Kind)
	task.Reversible = policy.Reversible(task.Kind)
	// A caller-chosen priority wins over the kind classification.
	if task.Priority == model.DefaultPriority {
		task.Priority = policy.ClassifyPriority(task.Kind)
	}
	if task.MaxRetries <= 0 {
		task.MaxRetries = model.DefaultMaxRetries
	}
	if err := s.taskDAO.Save(ctx, task); err != nil {
		return err
	}
	s.logger.Info("task accepted",
		zap.String("task", task.ID),
		zap.String("principal", task.Principal),
		zap.String("kind", string(task.Kind)),
		zap.Int("priority", task.Priority))
	return nil
}

// Analyze evaluates the task against the principal's trust configuration.
// The phase is pure: nothing is persisted.
func (s *Service) Analyze(ctx context.Context, task *model.Task) (*policy.Analysis, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.analyze", "INTERNAL")
	cfg, err := s.trust.Ensure(ctx, task.Principal)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}
	analysis := policy.Evaluate(task, cfg, time.Now())
	tracing.EndSpan(span, nil)
	return analysis, nil
}

// Decide routes the analysed task: blocked tasks are cancelled, tasks needing
// sign-off are parked behind an approval request, everything else falls
// through to execution. The returned outcome names the branch taken.
func (s *Service) Decide(ctx context.Context, task *model.Task, analysis *policy.Analysis) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.decide", "INTERNAL")
	outcome, err := s.decide(ctx, task, analysis)
	tracing.EndSpan(span, err)
	return outcome, err
}

func (s *Service) decide(ctx context.Context, task *model.Task, analysis *policy.Analysis) (string, error) {
	if !analysis.CanExecute {
		task.Cancel(analysis.BlockedReason)
		if err := s.taskDAO.Save(ctx, task); err != nil {
			return "", err
		}
		s.logger.Warn("task blocked",
			zap.String("task", task.ID),
			zap.String("reason", analysis.BlockedReason))
		return OutcomeBlocked, nil
	}

	if analysis.RequiresApproval {
		// The request is persisted before the task is parked: a failing
		// approval store leaves the task runnable instead of stranding it
		// behind a request that was never created.
		summary := fmt.Sprintf("%s: %s", task.Kind, task.Title)
		request := approval.NewRequest(idgen.New(), task, summary, s.ttl)
		if err := s.approvals.RequestApproval(ctx, request); err != nil {
			return "", err
		}
		task.AwaitApproval()
		if err := s.taskDAO.Save(ctx, task); err != nil {
			return "", err
		}
		_ = s.metrics.IncrementDaily(ctx, task.Principal, func(m *model.DailyMetrics) {
			m.ApprovalsRequested++
		})
		_ = s.control.UpdateCounters(ctx, task.Principal, func(st *model.SystemStatus) {
			st.ApprovalsPending++
		})
		return OutcomeRequestApproval, nil
	}

	return OutcomeExecute, nil
}

// Execute performs the side effect for a runnable task and drives the verify
// and report phases on any terminal outcome. The control-plane flag is
// re-checked immediately before the side effect; a recoverable failure sends
// the task back to pending with one retry consumed and returns
// ErrRetryScheduled so the caller can re-publish it.
func (s *Service) Execute(ctx context.Context, task *model.Task) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.execute", "INTERNAL")
	err := s.execute(ctx, task)
	tracing.EndSpan(span, err)
	return err
}

func (s *Service) execute(ctx context.Context, task *model.Task) error {
	if !task.Status.Runnable() {
		return fmt.Errorf("task %s is not runnable in state %v", task.ID, task.Status)
	}
	if s.control.ExecutionBlocked(ctx, task.Principal) {
		return ErrExecutionBlocked
	}

	task.Start()
	if err := s.taskDAO.Save(ctx, task); err != nil {
		return err
	}

	result, execErr := s.executor.Execute(ctx, task)
	if execErr != nil {
		if task.RetryCount < task.MaxRetries {
			task.Retry(execErr)
			if err := s.taskDAO.Save(ctx, task); err != nil {
				return err
			}
			s.logger.Warn("execution failed, retry scheduled",
				zap.String("task", task.ID),
				zap.Int("retryCount", task.RetryCount),
				zap.Error(execErr))
			return fmt.Errorf("%w: %v", ErrRetryScheduled, execErr)
		}
		task.Fail(execErr)
		if err := s.taskDAO.Save(ctx, task); err != nil {
			return err
		}
		s.logger.Error("execution failed terminally",
			zap.String("task", task.ID),
			zap.Error(execErr))
		return s.Report(ctx, task, s.Verify(ctx, task))
	}

	task.Complete(result)
	if err := s.taskDAO.Save(ctx, task); err != nil {
		return err
	}
	s.logger.Info("task completed", zap.String("task", task.ID))
	return s.Report(ctx, task, s.Verify(ctx, task))
}

// Verify derives the read-only verification record from the task's terminal
// state. It never mutates the task.
func (s *Service) Verify(ctx context.Context, task *model.Task) *Verification {
	_, span := tracing.StartSpan(ctx, "pipeline.verify", "INTERNAL")
	defer tracing.EndSpan(span, nil)
	return &Verification{
		TaskID:     task.ID,
		Success:    task.Status == model.TaskStateCompleted,
		Status:     task.Status,
		Result:     task.Result,
		Error:      task.Error,
		VerifiedAt: time.Now(),
	}
}

// Report writes the activity-log record and rolls the daily metrics and
// control-plane counters forward. Time saved is credited only on success.
func (s *Service) Report(ctx context.Context, task *model.Task, verification *Verification) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.report", "INTERNAL")
	err := s.report(ctx, task, verification)
	tracing.EndSpan(span, err)
	return err
}

func (s *Service) report(ctx context.Context, task *model.Task, verification *Verification) error {
	estimate := policy.TimeEstimate(task.Kind)

	approvalStatus := "auto"
	if task.ApprovedAt != nil {
		approvalStatus = "approved"
	}
	entry := &model.ActivityLog{
		Principal:       task.Principal,
		TaskID:          task.ID,
		Kind:            task.Kind,
		Description:     task.Title,
		TrustLevelUsed:  task.RequiredTrustLevel,
		ApprovalStatus:  approvalStatus,
		ExecutionStatus: string(task.Status),
		Reversible:      task.Reversible,
		Details:         verification.Result,
	}
	if verification.Success && task.Reversible && task.CompletedAt != nil {
		expires := task.CompletedAt.Add(time.Duration(task.RollbackWindowSeconds) * time.Second)
		entry.RollbackExpiresAt = &expires
	}
	if err := s.metrics.RecordActivity(ctx, entry); err != nil {
		return err
	}

	if err := s.metrics.IncrementDaily(ctx, task.Principal, func(m *model.DailyMetrics) {
		if verification.Success {
			m.TasksCompleted++
			m.TimeSavedMinutes += estimate
			if task.ApprovedAt == nil {
				m.AutoCompleted++
			}
		} else {
			m.TasksFailed++
		}
	}); err != nil {
		return err
	}

	return s.control.UpdateCounters(ctx, task.Principal, func(st *model.SystemStatus) {
		now := time.Now()
		st.LastActivityAt = &now
		if st.TasksPending > 0 {
			st.TasksPending--
		}
		if verification.Success {
			st.TasksCompletedToday++
			st.TimeSavedMinutes += estimate
		}
	})
}
