package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/google/uuid"
)

// SavedTemplate is the outcome of a template save. LocalOnly means the API
// could not be reached and the template only exists in the fallback store.
type SavedTemplate struct {
	dto.DesignTemplateResponse
	LocalOnly bool `json:"localOnly"`
}

// SaveDesignTemplate persists a template. When the API is unreachable or fails
// with a server error and a fallback store is configured, the template is kept
// locally instead. Validation failures are never masked.
func (c *Client) SaveDesignTemplate(ctx context.Context, req *dto.SaveDesignTemplateRequest) (*SavedTemplate, error) {
	var out dto.DesignTemplateResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/design-templates", req, &out)
	if err == nil {
		return &SavedTemplate{DesignTemplateResponse: out}, nil
	}
	if c.templates == nil || !retryableLocally(err) {
		return nil, err
	}

	local, storeErr := c.templates.Save(req)
	if storeErr != nil {
		return nil, errors.Join(err, storeErr)
	}
	return &SavedTemplate{DesignTemplateResponse: *local, LocalOnly: true}, nil
}

// LocalTemplates lists templates held by the fallback store
func (c *Client) LocalTemplates() ([]dto.DesignTemplateResponse, error) {
	if c.templates == nil {
		return nil, nil
	}
	return c.templates.List()
}

func retryableLocally(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// FileTemplateStore keeps design templates in a JSON file on this device.
// It is not authoritative: nothing here is visible to other devices.
type FileTemplateStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileTemplateStore creates a store backed by path. The file is created on first save.
func NewFileTemplateStore(path string) *FileTemplateStore {
	return &FileTemplateStore{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Save inserts or replaces a template. Templates without an id get a local one.
func (s *FileTemplateStore) Save(req *dto.SaveDesignTemplateRequest) (*dto.DesignTemplateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return nil, err
	}

	now := s.now()
	tpl := dto.DesignTemplateResponse{
		Name:       req.Name,
		Width:      req.Width,
		Height:     req.Height,
		CanvasJSON: req.CanvasJSON,
		PreviewURL: req.PreviewURL,
		CreatedAt:  now,
	}
	if req.ID != nil && *req.ID != "" {
		tpl.ID = *req.ID
	} else {
		tpl.ID = "local-" + uuid.NewString()
	}

	idx := slices.IndexFunc(items, func(t dto.DesignTemplateResponse) bool { return t.ID == tpl.ID })
	if idx >= 0 {
		tpl.CreatedAt = items[idx].CreatedAt
		tpl.UpdatedAt = &now
		items[idx] = tpl
	} else {
		items = append(items, tpl)
	}

	if err := s.write(items); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// List returns every stored template, oldest first
func (s *FileTemplateStore) List() ([]dto.DesignTemplateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Delete removes a template. Unknown ids are ignored.
func (s *FileTemplateStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(items, func(t dto.DesignTemplateResponse) bool { return t.ID == id })
	return s.write(kept)
}

func (s *FileTemplateStore) load() ([]dto.DesignTemplateResponse, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local templates: %w", err)
	}

	var items []dto.DesignTemplateResponse
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode local templates: %w", err)
	}
	return items, nil
}

// write replaces the file atomically
func (s *FileTemplateStore) write(items []dto.DesignTemplateResponse) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode local templates: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".templates-*.json")
	if err != nil {
		return fmt.Errorf("failed to write local templates: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write local templates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write local templates: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
