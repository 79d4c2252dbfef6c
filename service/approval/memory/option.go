package memory

import (
	"time"

	"go.uber.org/zap"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/messaging"
)

// Option customises the in-memory approval service.
type Option func(*service)

// WithTaskQueue attaches the task queue so that an approved task is published
// back for execution. Without it the task state still flips to approved and
// the caller is responsible for scheduling.
func WithTaskQueue(q messaging.Queue[model.Task]) Option {
	return func(s *service) { s.taskQueue = q }
}

// WithRequestDAO overrides the request store.
func WithRequestDAO(d dao.Service[string, approval.Request]) Option {
	return func(s *service) { s.reqDAO = d }
}

// WithDecisionDAO overrides the decision store.
func WithDecisionDAO(d dao.Service[string, approval.Decision]) Option {
	return func(s *service) { s.decDAO = d }
}

// WithTTL overrides how long new requests stay answerable.
func WithTTL(ttl time.Duration) Option {
	return func(s *service) { s.ttl = ttl }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *service) { s.logger = logger }
}
