package steward

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/internal/clock"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/pipeline"
	"github.com/stewardlab/steward/service/processor"
)

// SubmitRequest describes a task submission.
type SubmitRequest struct {
	Principal   string                 `json:"principal"`
	Kind        model.ActionKind       `json:"kind"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Priority    int                    `json:"priority,omitempty"`
	Source      string                 `json:"source,omitempty"`
	MaxRetries  int                    `json:"maxRetries,omitempty"`
}

// Runtime is the inbound facade of a running engine.
type Runtime struct {
	service    *Service
	processor  *processor.Service
	expireStop func()
}

// Start launches the worker pool and the periodic approval expiry sweep;
// both stop when ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.processor.Start(ctx); err != nil {
		return err
	}
	r.expireStop = approval.AutoExpirer(ctx, r.service.approvals, time.Minute)
	return nil
}

// Shutdown stops the workers and waits for in-flight work to finish.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.expireStop != nil {
		r.expireStop()
		r.expireStop = nil
	}
	r.processor.Shutdown()
	return nil
}

// SubmitTask runs one intake/analyze/decide pass and, when the decision is
// to execute, publishes the task to the worker queue. The returned task
// reflects the decision: pending (queued), awaiting_approval, or cancelled
// (blocked).
func (r *Runtime) SubmitTask(ctx context.Context, req *SubmitRequest) (*model.Task, error) {
	if req == nil {
		return nil, fmt.Errorf("request was empty")
	}
	s := r.service
	task := model.NewTask("", req.Principal, req.Kind, req.Title, req.Payload)
	task.Description = req.Description
	if req.Priority != 0 {
		task.Priority = req.Priority
	}
	if req.Source != "" {
		task.Source = req.Source
	}
	if req.MaxRetries > 0 {
		task.MaxRetries = req.MaxRetries
	}

	if err := s.pipeline.Intake(ctx, task); err != nil {
		return nil, err
	}
	analysis, err := s.pipeline.Analyze(ctx, task)
	if err != nil {
		return nil, err
	}
	outcome, err := s.pipeline.Decide(ctx, task, analysis)
	if err != nil {
		return nil, err
	}
	if outcome == pipeline.OutcomeExecute {
		if err = s.queue.Publish(ctx, task); err != nil {
			return nil, err
		}
		_ = s.control.UpdateCounters(ctx, task.Principal, func(st *model.SystemStatus) {
			st.TasksPending++
		})
	}
	return task, nil
}

// WaitForTask polls the task store until the task settles: a terminal state,
// awaiting_approval or paused. It errors when the timeout elapses first.
func (r *Runtime) WaitForTask(ctx context.Context, id string, timeout time.Duration) (*model.Task, error) {
	deadline := time.Now().Add(timeout)
	for {
		task, err := r.service.taskDAO.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case task.Status.Terminal(),
			task.Status == model.TaskStateAwaitingApproval,
			task.Status == model.TaskStatePaused:
			return task, nil
		}
		if time.Now().After(deadline) {
			return task, fmt.Errorf("timeout waiting for task %q", id)
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// RespondToApproval records a decision on a pending approval request. The
// decision is exactly-once: a duplicate response returns the original
// decision together with approval.ErrAlreadyResolved.
func (r *Runtime) RespondToApproval(ctx context.Context, id string, approved bool, respondedBy, comment string) (*approval.Decision, error) {
	s := r.service
	decision, err := s.approvals.Decide(ctx, id, approved, respondedBy, comment)
	if err != nil {
		return decision, err
	}
	principal := respondedBy
	if task, loadErr := s.taskDAO.Load(ctx, decision.TaskID); loadErr == nil {
		principal = task.Principal
	}
	_ = s.metrics.IncrementDaily(ctx, principal, func(m *model.DailyMetrics) {
		if approved {
			m.ApprovalsGranted++
		} else {
			m.ApprovalsDenied++
		}
	})
	_ = s.control.UpdateCounters(ctx, principal, func(st *model.SystemStatus) {
		if st.ApprovalsPending > 0 {
			st.ApprovalsPending--
		}
	})
	return decision, nil
}

// RespondToApprovals resolves a batch of approval responses independently;
// one failing item never blocks the rest.
func (r *Runtime) RespondToApprovals(ctx context.Context, items []approval.BatchItem) []approval.BatchOutcome {
	outcomes := make([]approval.BatchOutcome, 0, len(items))
	for _, item := range items {
		decision, err := r.RespondToApproval(ctx, item.ID, item.Approved, item.RespondedBy, item.Reason)
		outcomes = append(outcomes, approval.BatchOutcome{ID: item.ID, Decision: decision, Err: err})
	}
	return outcomes
}

// Pause suspends execution for the principal; intake keeps accepting.
func (r *Runtime) Pause(ctx context.Context, principal, reason string) (*model.SystemStatus, error) {
	return r.service.control.Pause(ctx, principal, reason)
}

// Resume returns the principal's engine to running and re-publishes the
// pending backlog so that the workers pick it up again.
func (r *Runtime) Resume(ctx context.Context, principal string) (*model.SystemStatus, error) {
	s := r.service
	status, err := s.control.Resume(ctx, principal)
	if err != nil {
		return nil, err
	}
	pending, err := s.taskDAO.List(ctx,
		dao.NewParameter(dao.ParamPrincipal, principal),
		dao.NewParameter(dao.ParamStatus, string(model.TaskStatePending)))
	if err != nil {
		return status, err
	}
	for _, task := range pending {
		if err := s.queue.Publish(ctx, task); err != nil {
			s.logger.Error("failed to re-publish pending task",
				zap.String("task", task.ID),
				zap.Error(err))
		}
	}
	return status, nil
}

// EmergencyStop force-pauses the principal's running tasks and halts the
// engine; the returned count is how many tasks were paused.
func (r *Runtime) EmergencyStop(ctx context.Context, principal string) (int, error) {
	return r.service.control.EmergencyStop(ctx, principal)
}

// ExpireApprovals resolves overdue approval requests.
func (r *Runtime) ExpireApprovals(ctx context.Context) (int, error) {
	return r.service.approvals.Expire(ctx)
}

// Task returns a task by id.
func (r *Runtime) Task(ctx context.Context, id string) (*model.Task, error) {
	return r.service.taskDAO.Load(ctx, id)
}

// TasksByStatus lists the principal's tasks in the given state.
func (r *Runtime) TasksByStatus(ctx context.Context, principal string, state model.TaskState) ([]*model.Task, error) {
	return r.service.taskDAO.List(ctx,
		dao.NewParameter(dao.ParamPrincipal, principal),
		dao.NewParameter(dao.ParamStatus, string(state)))
}

// Approval returns one approval request by id.
func (r *Runtime) Approval(ctx context.Context, id string) (*approval.Request, error) {
	return r.service.approvals.Pending(ctx, id)
}

// PendingApprovals lists the principal's unanswered approval requests.
func (r *Runtime) PendingApprovals(ctx context.Context, principal string) ([]*approval.Request, error) {
	return r.service.approvals.ListPending(ctx, principal)
}

// Activity lists the principal's audit records.
func (r *Runtime) Activity(ctx context.Context, principal string) ([]*model.ActivityLog, error) {
	return r.service.metrics.Activity(ctx, principal)
}

// Metrics returns the principal's daily metrics row; date defaults to today.
func (r *Runtime) Metrics(ctx context.Context, principal, date string) (*model.DailyMetrics, error) {
	if date == "" {
		date = clock.Today()
	}
	return r.service.metrics.Daily(ctx, principal, date)
}

// MetricsHistory lists the principal's daily metrics rows; an empty date
// lists every recorded day.
func (r *Runtime) MetricsHistory(ctx context.Context, principal, date string) ([]*model.DailyMetrics, error) {
	return r.service.metrics.History(ctx, principal, date)
}

// Status returns the principal's control-plane record.
func (r *Runtime) Status(ctx context.Context, principal string) (*model.SystemStatus, error) {
	return r.service.control.Ensure(ctx, principal)
}

// TrustConfiguration returns the principal's trust configuration, creating
// it on first access.
func (r *Runtime) TrustConfiguration(ctx context.Context, principal string) (*model.TrustConfiguration, error) {
	return r.service.trust.Ensure(ctx, principal)
}

// UpdateTrust mutates the principal's trust configuration.
func (r *Runtime) UpdateTrust(ctx context.Context, principal string, mutate func(*model.TrustConfiguration)) (*model.TrustConfiguration, error) {
	return r.service.trust.Update(ctx, principal, mutate)
}
