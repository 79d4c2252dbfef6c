// Package memory is the DAO-backed approval service. A decision is recorded
// exactly once per request: the decision store is the resolved set, and all
// resolution paths (approve, deny, expire) are serialised behind one mutex so
// duplicate responses observe the original outcome instead of racing it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/internal/idgen"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
	"github.com/stewardlab/steward/service/messaging"
	qmem "github.com/stewardlab/steward/service/messaging/memory"
)

type service struct {
	taskDAO dao.Service[string, model.Task]

	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	// fan-out queue for request/decision events
	events messaging.Queue[approval.Event]

	// optional – approved tasks are published here for execution
	taskQueue messaging.Queue[model.Task]

	ttl    time.Duration
	logger *zap.Logger
	mu     sync.Mutex
}

func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

// New creates an approval service. taskDAO is consulted on every decision to
// flip the gated task's state.
func New(taskDAO dao.Service[string, model.Task], options ...Option) approval.Service {
	ret := &service{
		taskDAO: taskDAO,
		reqDAO:  store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO:  store.NewMemoryStore[string, approval.Decision](decKey),
		events:  qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
		ttl:     approval.DefaultTTL,
		logger:  zap.NewNop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}
	if r.ID == "" {
		r.ID = idgen.New()
	}
	if r.Status == "" {
		r.Status = approval.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.ExpiresAt == nil {
		expires := r.CreatedAt.Add(s.ttl)
		r.ExpiresAt = &expires
	}
	if err := s.reqDAO.Save(ctx, r); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	s.logger.Info("approval requested",
		zap.String("request", r.ID),
		zap.String("task", r.TaskID),
		zap.String("kind", string(r.Kind)))
	return nil
}

func (s *service) Pending(ctx context.Context, id string) (*approval.Request, error) {
	request, err := s.reqDAO.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, approval.ErrNotFound
	}
	return request, err
}

func (s *service) ListPending(ctx context.Context, principal string) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if r.Status != approval.StatusPending {
			continue
		}
		if principal != "" && r.Principal != principal {
			continue
		}
		pending = append(pending, r)
	}
	return pending, nil
}

// Decide records the outcome for a pending request and transitions the gated
// task. A second call for the same id returns the original decision together
// with ErrAlreadyResolved; an expired request resolves the same way with no
// decision record.
func (s *service) Decide(ctx context.Context, id string, approved bool, respondedBy, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.reqDAO.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, approval.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if prior, err := s.decDAO.Load(ctx, id); err == nil {
		return prior, approval.ErrAlreadyResolved
	}
	if request.Status != approval.StatusPending {
		return nil, fmt.Errorf("%w: request %v is %v", approval.ErrAlreadyResolved, id, request.Status)
	}

	now := time.Now()
	// A pending request past its deadline is terminal even when no sweep has
	// run yet; the late response expires it instead of resolving it.
	if request.ExpiresAt != nil && !request.ExpiresAt.After(now) {
		s.expireLocked(ctx, request)
		return nil, fmt.Errorf("%w: request %v is %v", approval.ErrAlreadyResolved, id, request.Status)
	}
	decision := &approval.Decision{
		ID:          id,
		TaskID:      request.TaskID,
		Approved:    approved,
		RespondedBy: respondedBy,
		Reason:      reason,
		DecidedAt:   now,
	}
	if err = s.decDAO.Save(ctx, decision); err != nil {
		return nil, err
	}

	request.Status = approval.StatusDenied
	if approved {
		request.Status = approval.StatusApproved
	}
	request.Response = reason
	request.RespondedAt = &now
	if err = s.reqDAO.Save(ctx, request); err != nil {
		return nil, err
	}

	if err = s.transitionTask(ctx, request, decision); err != nil {
		return nil, err
	}

	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: decision})
	s.logger.Info("approval decided",
		zap.String("request", id),
		zap.String("task", request.TaskID),
		zap.Bool("approved", approved))
	return decision, nil
}

func (s *service) transitionTask(ctx context.Context, request *approval.Request, decision *approval.Decision) error {
	if s.taskDAO == nil || request.TaskID == "" {
		return nil
	}
	task, err := s.taskDAO.Load(ctx, request.TaskID)
	if errors.Is(err, dao.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if decision.Approved {
		task.Approve(decision.RespondedBy)
		if err = s.taskDAO.Save(ctx, task); err != nil {
			return err
		}
		if s.taskQueue != nil {
			return s.taskQueue.Publish(ctx, task)
		}
		return nil
	}
	reason := decision.Reason
	if reason == "" {
		reason = "approval denied"
	}
	task.Cancel(reason)
	return s.taskDAO.Save(ctx, task)
}

// Expire resolves every pending request whose deadline has passed: the
// request flips to expired and the gated task is cancelled. No decision
// record is written, so a late Decide still reports ErrAlreadyResolved.
func (s *service) Expire(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	expired := 0
	for _, r := range all {
		if r.Status != approval.StatusPending || r.ExpiresAt == nil || r.ExpiresAt.After(now) {
			continue
		}
		if s.expireLocked(ctx, r) {
			expired++
		}
	}
	if expired > 0 {
		s.logger.Info("approval requests expired", zap.Int("count", expired))
	}
	return expired, nil
}

// expireLocked flips one pending request to expired and cancels its gated
// task. The caller holds s.mu.
func (s *service) expireLocked(ctx context.Context, r *approval.Request) bool {
	r.Status = approval.StatusExpired
	if err := s.reqDAO.Save(ctx, r); err != nil {
		return false
	}
	if s.taskDAO != nil && r.TaskID != "" {
		if task, err := s.taskDAO.Load(ctx, r.TaskID); err == nil && task.Status == model.TaskStateAwaitingApproval {
			task.Cancel("approval request expired")
			_ = s.taskDAO.Save(ctx, task)
		}
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestExpired, Data: r})
	return true
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

var _ approval.Service = (*service)(nil)
