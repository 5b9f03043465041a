package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
)

// MaxCanvasSessionBytes bounds a single hand-off payload
const MaxCanvasSessionBytes = 8 << 20

// CanvasSessionFlow hands large canvas payloads between pages through a TTL store
type CanvasSessionFlow interface {
	Create(ctx context.Context, req *dto.CreateCanvasSessionRequest) (*dto.CreateCanvasSessionResponse, error)
	Get(ctx context.Context, customerID uint, sessionID string) (*dto.CanvasSessionResponse, error)
}

// CanvasSessionFlowImpl implements CanvasSessionFlow
type CanvasSessionFlowImpl struct {
	store repository.CanvasSessionStore
	ttl   time.Duration
}

// storedCanvasSession binds a payload to its owner
type storedCanvasSession struct {
	CustomerID uint            `json:"customer_id"`
	Payload    json.RawMessage `json:"payload"`
}

// NewCanvasSessionFlow creates a canvas session flow
func NewCanvasSessionFlow(store repository.CanvasSessionStore, ttl time.Duration) CanvasSessionFlow {
	return &CanvasSessionFlowImpl{store: store, ttl: ttl}
}

// Create stores the payload under a fresh id
func (s *CanvasSessionFlowImpl) Create(ctx context.Context, req *dto.CreateCanvasSessionRequest) (*dto.CreateCanvasSessionResponse, error) {
	if s.store == nil {
		return nil, NewBusinessError("CACHE_NOT_AVAILABLE", "Canvas sessions are not available", ErrCacheNotAvailable)
	}
	if len(req.Payload) > MaxCanvasSessionBytes {
		return nil, NewBusinessErrorf("CANVAS_PAYLOAD_TOO_LARGE", "Canvas payload exceeds %d bytes", ErrCanvasPayloadTooLarge, MaxCanvasSessionBytes)
	}
	if !json.Valid(req.Payload) {
		return nil, NewBusinessError("INVALID_CANVAS_JSON", "Canvas payload is not valid JSON", ErrInvalidCanvasJSON)
	}

	raw, err := json.Marshal(storedCanvasSession{CustomerID: req.CustomerID, Payload: req.Payload})
	if err != nil {
		return nil, NewBusinessError("CANVAS_SESSION_CREATE_FAILED", "Failed to create canvas session", err)
	}

	id := uuid.NewString()
	if err := s.store.Put(ctx, id, raw, s.ttl); err != nil {
		return nil, NewBusinessError("CANVAS_SESSION_CREATE_FAILED", "Failed to create canvas session", err)
	}

	return &dto.CreateCanvasSessionResponse{
		SessionID: id,
		ExpiresAt: utils.UTCNowAdd(s.ttl),
	}, nil
}

// Get returns the payload if it exists, has not expired and belongs to the caller
func (s *CanvasSessionFlowImpl) Get(ctx context.Context, customerID uint, sessionID string) (*dto.CanvasSessionResponse, error) {
	if s.store == nil {
		return nil, NewBusinessError("CACHE_NOT_AVAILABLE", "Canvas sessions are not available", ErrCacheNotAvailable)
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, NewBusinessError("CANVAS_SESSION_NOT_FOUND", "Canvas session not found", ErrCanvasSessionNotFound)
	}

	raw, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("CANVAS_SESSION_LOOKUP_FAILED", "Failed to load canvas session", err)
	}
	if raw == nil {
		return nil, NewBusinessError("CANVAS_SESSION_NOT_FOUND", "Canvas session not found", ErrCanvasSessionNotFound)
	}

	var stored storedCanvasSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, NewBusinessError("CANVAS_SESSION_LOOKUP_FAILED", "Failed to load canvas session", fmt.Errorf("corrupt session: %w", err))
	}
	// Someone else's session looks the same as a missing one.
	if stored.CustomerID != customerID {
		return nil, NewBusinessError("CANVAS_SESSION_NOT_FOUND", "Canvas session not found", ErrCanvasSessionNotFound)
	}

	return &dto.CanvasSessionResponse{SessionID: sessionID, Payload: stored.Payload}, nil
}
