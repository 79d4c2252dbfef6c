package steward

import (
	"go.uber.org/zap"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
	"github.com/stewardlab/steward/service/action/sim"
	"github.com/stewardlab/steward/service/approval"
	approvalmem "github.com/stewardlab/steward/service/approval/memory"
	"github.com/stewardlab/steward/service/control"
	"github.com/stewardlab/steward/service/dao"
	activityfs "github.com/stewardlab/steward/service/dao/activity/fs"
	"github.com/stewardlab/steward/service/dao/store"
	"github.com/stewardlab/steward/service/executor"
	"github.com/stewardlab/steward/service/messaging"
	qmem "github.com/stewardlab/steward/service/messaging/memory"
	"github.com/stewardlab/steward/service/metrics"
	"github.com/stewardlab/steward/service/pipeline"
	"github.com/stewardlab/steward/service/processor"
	"github.com/stewardlab/steward/service/trust"
)

// ErrSystemHalted is returned by task submission while the principal's
// engine refuses new work.
var ErrSystemHalted = control.ErrSystemHalted

// Service assembles the engine: trust policy, approval life cycle, control
// plane, pipeline and worker pool behind a single embeddable facade.
type Service struct {
	config *Config
	logger *zap.Logger

	taskDAO dao.Service[string, model.Task]
	queue   messaging.Queue[model.Task]

	registry        *action.Registry
	handlers        []action.Handler
	executor        executor.Service
	executorOptions []executor.Option

	trust     *trust.Service
	control   *control.Service
	approvals approval.Service
	metrics   *metrics.Service
	pipeline  *pipeline.Service

	runtime *Runtime
}

// New creates an engine service.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig(), runtime: &Runtime{}}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.registry = action.NewRegistry()
	simOptions := []sim.Option{}
	if s.config.Storage.DocumentBaseURL != "" {
		simOptions = append(simOptions, sim.WithDocumentBaseURL(s.config.Storage.DocumentBaseURL))
	}
	sim.Register(s.registry, simOptions...)
	for _, handler := range s.handlers {
		s.registry.Register(handler)
	}
	s.executor = executor.New(s.registry, s.executorOptions...)

	if s.approvals == nil {
		s.approvals = approvalmem.New(s.taskDAO,
			approvalmem.WithTaskQueue(s.queue),
			approvalmem.WithTTL(s.config.approvalTTL()),
			approvalmem.WithLogger(s.logger))
	}

	s.pipeline = pipeline.New(s.taskDAO, s.trust, s.control, s.approvals,
		s.executor, s.metrics,
		pipeline.WithLogger(s.logger),
		pipeline.WithApprovalTTL(s.config.approvalTTL()))

	s.runtime.service = s
	s.runtime.processor, _ = processor.New(s.taskDAO, s.queue, s.pipeline,
		processor.WithConfig(processor.Config{
			WorkerCount: s.config.Processor.WorkerCount,
			RetryDelay:  s.config.retryDelay(),
		}),
		processor.WithLogger(s.logger))
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.taskDAO == nil {
		s.taskDAO = store.NewMemoryStore[string, model.Task](
			func(t *model.Task) string { return t.ID },
			store.WithMatcher[string, model.Task](matchTask),
			store.WithCloner[string, model.Task]((*model.Task).Clone))
	}
	if s.queue == nil {
		s.queue = qmem.NewQueue[model.Task](qmem.DefaultConfig())
	}
	if s.trust == nil {
		trustOptions := []trust.Option{}
		if s.config.Trust.SeedBaseURL != "" {
			trustOptions = append(trustOptions, trust.WithSeedBaseURL(s.config.Trust.SeedBaseURL))
		}
		s.trust = trust.New(trustOptions...)
	}
	if s.control == nil {
		s.control = control.New(s.taskDAO, control.WithLogger(s.logger))
	}
	if s.metrics == nil {
		metricsOptions := []metrics.Option{}
		if s.config.Storage.ActivityBaseURL != "" {
			metricsOptions = append(metricsOptions,
				metrics.WithActivityDAO(activityfs.New(s.config.Storage.ActivityBaseURL)))
		}
		s.metrics = metrics.New(metricsOptions...)
	}
}

// matchTask applies principal and status list filters to the in-memory task
// store.
func matchTask(t *model.Task, parameters []*dao.Parameter) bool {
	for _, p := range parameters {
		switch p.Name {
		case dao.ParamPrincipal:
			if p.Value != t.Principal {
				return false
			}
		case dao.ParamStatus:
			if p.Value != string(t.Status) {
				return false
			}
		}
	}
	return true
}

// RegisterHandler installs an action handler on the live registry.
func (s *Service) RegisterHandler(handler action.Handler) {
	s.registry.Register(handler)
}

// Runtime returns the engine's runtime facade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}
