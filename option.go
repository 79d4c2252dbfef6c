package steward

import (
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/executor"
	"github.com/stewardlab/steward/service/messaging"
	"github.com/stewardlab/steward/service/trust"
	"github.com/stewardlab/steward/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the structured logger shared by every sub-service.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTaskDAO overrides the task store.
func WithTaskDAO(service dao.Service[string, model.Task]) Option {
	return func(s *Service) { s.taskDAO = service }
}

// WithQueue sets the task queue.
func WithQueue(queue messaging.Queue[model.Task]) Option {
	return func(s *Service) { s.queue = queue }
}

// WithTrustService overrides the trust configuration service.
func WithTrustService(service *trust.Service) Option {
	return func(s *Service) { s.trust = service }
}

// WithApprovalService overrides the approval service.
func WithApprovalService(service approval.Service) Option {
	return func(s *Service) { s.approvals = service }
}

// WithHandlers registers additional action handlers; a handler for an
// already-covered kind replaces the simulated one.
func WithHandlers(handlers ...action.Handler) Option {
	return func(s *Service) { s.handlers = append(s.handlers, handlers...) }
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.New (e.g. attaching a listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) { s.executorOptions = append(s.executorOptions, opts...) }
}

// WithTrustSeedBaseURL points the trust service at per-principal seed
// documents (<principal>.yaml).
func WithTrustSeedBaseURL(baseURL string) Option {
	return func(s *Service) { s.config.Trust.SeedBaseURL = baseURL }
}

// WithActivityBaseURL persists activity-log records under the given URL
// instead of in memory.
func WithActivityBaseURL(baseURL string) Option {
	return func(s *Service) { s.config.Storage.ActivityBaseURL = baseURL }
}

// WithDocumentBaseURL sets where the document_create handler writes.
func WithDocumentBaseURL(baseURL string) Option {
	return func(s *Service) { s.config.Storage.DocumentBaseURL = baseURL }
}

// WithProcessorWorkers sets the worker pool size.
func WithProcessorWorkers(count int) Option {
	return func(s *Service) { s.config.Processor.WorkerCount = count }
}

// WithTracing configures OpenTelemetry tracing for the engine. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times – the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter (OTLP, Jaeger, Zipkin …). Safe to call multiple times – the
// first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
