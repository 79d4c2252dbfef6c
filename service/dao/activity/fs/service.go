// Package fs persists activity-log records as JSON documents on any file
// system the afs abstraction can reach (local disk, s3://, gs://, mem://).
// Records are written once and never modified afterwards.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/dao"
)

// Service implements a filesystem-based activity log store.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[string, model.ActivityLog] = (*Service)(nil)

// Save persists a log entry. Entries are append-only: overwriting an
// existing record is rejected.
func (s *Service) Save(ctx context.Context, entry *model.ActivityLog) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.entryURL(entry.ID)
	if exists, _ := s.fs.Exists(ctx, location); exists {
		return fmt.Errorf("activity log %s is immutable", entry.ID)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal activity log: %w", err)
	}
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save activity log to %s: %w", location, err)
	}
	return nil
}

// Load retrieves a log entry by id.
func (s *Service) Load(ctx context.Context, id string) (*model.ActivityLog, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.entryURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check activity log %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity log %s: %w", id, err)
	}
	var entry model.ActivityLog
	if err = json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity log %s: %w", id, err)
	}
	return &entry, nil
}

// Delete removes a log entry; it exists to satisfy the DAO contract and is
// intended for retention housekeeping only.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Delete(ctx, s.entryURL(id))
}

// List returns log entries, optionally filtered by principal and task id.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	var out []*model.ActivityLog
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		var entry model.ActivityLog
		if err = json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if !matches(&entry, parameters) {
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}

func matches(entry *model.ActivityLog, parameters []*dao.Parameter) bool {
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

func (s *Service) entryURL(id string) string {
	return url.Join(s.baseURL, path.Clean(id)+".json")
}

// New creates an activity log store rooted at baseURL.
func New(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		fs:      afs.New(),
	}
}
