// Package trust manages per-principal trust configurations. Exactly one
// configuration exists per principal; the first access creates it, either
// from a seed YAML document resolved against the configured base URL or from
// engine defaults.
package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/stewardlab/steward/internal/idgen"
	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
)

// Service resolves and mutates trust configurations.
type Service struct {
	dao     dao.Service[string, model.TrustConfiguration]
	fs      afs.Service
	baseURL string
	mu      sync.Mutex
}

// Option customises the service.
type Option func(*Service)

// WithDAO overrides the backing store (keyed by principal).
func WithDAO(service dao.Service[string, model.TrustConfiguration]) Option {
	return func(s *Service) { s.dao = service }
}

// WithSeedBaseURL points the service at a directory of per-principal seed
// documents (<principal>.yaml). When unset every principal starts with
// Default.
func WithSeedBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = baseURL }
}

// New creates a trust configuration service.
func New(options ...Option) *Service {
	ret := &Service{fs: afs.New()}
	for _, option := range options {
		option(ret)
	}
	if ret.dao == nil {
		ret.dao = store.NewMemoryStore[string, model.TrustConfiguration](
			func(c *model.TrustConfiguration) string { return c.Principal })
	}
	return ret
}

// Default returns the configuration a principal starts with: approval
// required for everything above the "approved" line, no pre-approved
// contacts, financial auto-approval off.
func Default(principal string) *model.TrustConfiguration {
	now := time.Now()
	return &model.TrustConfiguration{
		ID:               idgen.New(),
		Principal:        principal,
		GlobalTrustLevel: model.TrustApproved,
		FinancialLimits:  model.FinancialLimits{Require2FA: true},
		QuietHours:       model.QuietHours{Start: "22:00", End: "07:00", TrustLevelDuring: model.TrustSuggested},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Ensure returns the principal's configuration, creating it on first access.
func (s *Service) Ensure(ctx context.Context, principal string) (*model.TrustConfiguration, error) {
	if principal == "" {
		return nil, dao.ErrInvalidID
	}
	cfg, err := s.dao.Load(ctx, principal)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have won the upsert race while we waited.
	if cfg, err = s.dao.Load(ctx, principal); err == nil {
		return cfg, nil
	}

	cfg, err = s.seed(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err = s.dao.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update applies the mutation to the principal's configuration and persists
// the result.
func (s *Service) Update(ctx context.Context, principal string, mutate func(*model.TrustConfiguration)) (*model.TrustConfiguration, error) {
	cfg, err := s.Ensure(ctx, principal)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(cfg)
	cfg.UpdatedAt = time.Now()
	if err = s.dao.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// seed builds the initial configuration, preferring a YAML document when the
// service has a seed base URL and one exists for the principal.
func (s *Service) seed(ctx context.Context, principal string) (*model.TrustConfiguration, error) {
	cfg := Default(principal)
	if s.baseURL == "" {
		return cfg, nil
	}
	location := url.Join(s.baseURL, principal+".yaml")
	exists, _ := s.fs.Exists(ctx, location)
	if !exists {
		return cfg, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust configuration %s: %w", location, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode trust configuration %s: %w", location, err)
	}
	cfg.Principal = principal
	if cfg.ID == "" {
		cfg.ID = idgen.New()
	}
	return cfg, nil
}
