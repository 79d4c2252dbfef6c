package steward

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML or JSON; the zero-value is useful – all nested
// fields inherit their package defaults.
type Config struct {
	Processor ProcessorConfig `json:"processor" yaml:"processor"`
	Approval  ApprovalConfig  `json:"approval" yaml:"approval"`
	Trust     TrustConfig     `json:"trust" yaml:"trust"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
}

// ProcessorConfig controls the worker pool.
type ProcessorConfig struct {
	WorkerCount int    `json:"workers" yaml:"workers"`
	RetryDelay  string `json:"retryDelay" yaml:"retryDelay"`
}

// ApprovalConfig controls the approval life cycle.
type ApprovalConfig struct {
	TTLHours int `json:"ttlHours" yaml:"ttlHours"`
}

// TrustConfig points at per-principal trust seed documents.
type TrustConfig struct {
	SeedBaseURL string `json:"seedBaseURL" yaml:"seedBaseURL"`
}

// StorageConfig points at the engine's file-backed stores.
type StorageConfig struct {
	// ActivityBaseURL, when set, persists activity-log records as documents
	// instead of keeping them in memory.
	ActivityBaseURL string `json:"activityBaseURL" yaml:"activityBaseURL"`
	// DocumentBaseURL is where the document_create handler writes.
	DocumentBaseURL string `json:"documentBaseURL" yaml:"documentBaseURL"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Processor: ProcessorConfig{
			WorkerCount: 5,
			RetryDelay:  "100ms",
		},
		Approval: ApprovalConfig{
			TTLHours: 24,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Processor.WorkerCount <= 0 {
		return fmt.Errorf("processor.workers must be > 0")
	}
	if c.Processor.RetryDelay != "" {
		if _, err := time.ParseDuration(c.Processor.RetryDelay); err != nil {
			return fmt.Errorf("processor.retryDelay: %w", err)
		}
	}
	if c.Approval.TTLHours < 0 {
		return fmt.Errorf("approval.ttlHours must be >= 0")
	}
	return nil
}

func (c *Config) retryDelay() time.Duration {
	if c.Processor.RetryDelay == "" {
		return 100 * time.Millisecond
	}
	delay, err := time.ParseDuration(c.Processor.RetryDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return delay
}

func (c *Config) approvalTTL() time.Duration {
	if c.Approval.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Approval.TTLHours) * time.Hour
}

// LoadConfig reads and validates a YAML configuration document from the
// supplied URL (file, mem, s3 … any scheme the file system abstraction
// knows).
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %v: %w", URL, err)
	}
	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
