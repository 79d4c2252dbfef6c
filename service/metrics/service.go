// Package metrics is the report sink: it appends activity-log records and
// maintains per-principal daily counters. Counter updates are serialised
// inside the service so concurrent report calls never lose increments.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stewardlab/steward/internal/clock"
	"github.com/stewardlab/steward/internal/idgen"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
)

// Service records audit and metric data.
type Service struct {
	activityDAO dao.Service[string, model.ActivityLog]
	metricsDAO  dao.Service[string, model.DailyMetrics]
	mu          sync.Mutex
}

// Option customises the service.
type Option func(*Service)

// WithActivityDAO overrides the activity log store.
func WithActivityDAO(service dao.Service[string, model.ActivityLog]) Option {
	return func(s *Service) { s.activityDAO = service }
}

// WithMetricsDAO overrides the daily metrics store.
func WithMetricsDAO(service dao.Service[string, model.DailyMetrics]) Option {
	return func(s *Service) { s.metricsDAO = service }
}

// New creates a metrics service backed by in-memory stores unless overridden.
func New(options ...Option) *Service {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.activityDAO == nil {
		ret.activityDAO = store.NewMemoryStore[string, model.ActivityLog](
			func(a *model.ActivityLog) string { return a.ID },
			store.WithMatcher[string, model.ActivityLog](matchActivity))
	}
	if ret.metricsDAO == nil {
		ret.metricsDAO = store.NewMemoryStore[string, model.DailyMetrics](
			func(m *model.DailyMetrics) string { return m.Principal + "/" + m.Date },
			store.WithMatcher[string, model.DailyMetrics](matchDaily))
	}
	return ret
}

func matchDaily(row *model.DailyMetrics, parameters []*dao.Parameter) bool {
	for _, p := range parameters {
		switch p.Name {
		case dao.ParamPrincipal:
			if p.Value != row.Principal {
				return false
			}
		case dao.ParamDate:
			if p.Value != row.Date {
				return false
			}
		}
	}
	return true
}

func matchActivity(entry *model.ActivityLog, parameters []*dao.Parameter) bool {
	for _, p := range parameters {
		switch p.Name {
		case dao.ParamPrincipal:
			if p.Value != entry.Principal {
				return false
			}
		case dao.ParamTaskID:
			if p.Value != entry.TaskID {
				return false
			}
		}
	}
	return true
}

// RecordActivity appends one audit record; the entry id and creation time
// are assigned here.
func (s *Service) RecordActivity(ctx context.Context, entry *model.ActivityLog) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.ID == "" {
		entry.ID = idgen.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return s.activityDAO.Save(ctx, entry)
}

// IncrementDaily applies counter increments to today's row for the
// principal, creating it on first use. The mutation runs under the service
// lock so increments commute and never overwrite each other.
func (s *Service) IncrementDaily(ctx context.Context, principal string, mutate func(*model.DailyMetrics)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := clock.Today()
	row, err := s.metricsDAO.Load(ctx, principal+"/"+today)
	if errors.Is(err, dao.ErrNotFound) {
		now := time.Now()
		row = &model.DailyMetrics{
			ID:        idgen.New(),
			Principal: principal,
			Date:      today,
			CreatedAt: now,
		}
		err = nil
	}
	if err != nil {
		return err
	}
	mutate(row)
	row.UpdatedAt = time.Now()
	return s.metricsDAO.Save(ctx, row)
}

// Daily returns the principal's metrics row for the given date
// (YYYY-MM-DD); a zero-valued row is returned when nothing was recorded.
func (s *Service) Daily(ctx context.Context, principal, date string) (*model.DailyMetrics, error) {
	row, err := s.metricsDAO.Load(ctx, principal+"/"+date)
	if errors.Is(err, dao.ErrNotFound) {
		return &model.DailyMetrics{Principal: principal, Date: date}, nil
	}
	return row, err
}

// History lists the principal's daily metrics rows, optionally narrowed to a
// single date (YYYY-MM-DD).
func (s *Service) History(ctx context.Context, principal, date string) ([]*model.DailyMetrics, error) {
	parameters := []*dao.Parameter{dao.NewParameter(dao.ParamPrincipal, principal)}
	if date != "" {
		parameters = append(parameters, dao.NewParameter(dao.ParamDate, date))
	}
	return s.metricsDAO.List(ctx, parameters...)
}

// Activity lists audit records for a principal.
func (s *Service) Activity(ctx context.Context, principal string) ([]*model.ActivityLog, error) {
	return s.activityDAO.List(ctx, dao.NewParameter(dao.ParamPrincipal, principal))
}
