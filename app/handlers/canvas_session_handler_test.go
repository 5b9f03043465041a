package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCanvasSessionFlow struct {
	stored map[string]*dto.CreateCanvasSessionRequest
	err    error
}

func (f *fakeCanvasSessionFlow) Create(_ context.Context, req *dto.CreateCanvasSessionRequest) (*dto.CreateCanvasSessionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stored == nil {
		f.stored = map[string]*dto.CreateCanvasSessionRequest{}
	}
	f.stored["s-1"] = req
	return &dto.CreateCanvasSessionResponse{SessionID: "s-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeCanvasSessionFlow) Get(_ context.Context, customerID uint, sessionID string) (*dto.CanvasSessionResponse, error) {
	req, ok := f.stored[sessionID]
	if !ok || req.CustomerID != customerID {
		return nil, businessflow.ErrCanvasSessionNotFound
	}
	return &dto.CanvasSessionResponse{SessionID: sessionID, Payload: req.Payload}, nil
}

func canvasApp(flow *fakeCanvasSessionFlow, s *session) *fiber.App {
	h := NewCanvasSessionHandler(flow)
	app := newTestApp(s)
	app.Post("/api/canvas-session/create", h.Create)
	app.Get("/api/canvas-session/:id", h.Get)
	return app
}

func TestCanvasSessionHandler_RoundTrip(t *testing.T) {
	flow := &fakeCanvasSessionFlow{}
	payload := json.RawMessage(`{"objects":[{"type":"text","text":"Hi {{customer-name}}"}]}`)

	resp, envelope := doJSON(t, canvasApp(flow, &session{customerID: 5}), http.MethodPost, "/api/canvas-session/create", map[string]any{"payload": payload})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "s-1", dataMap(t, envelope)["sessionId"])

	resp, envelope = doJSON(t, canvasApp(flow, &session{customerID: 5}), http.MethodGet, "/api/canvas-session/s-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stored, err := json.Marshal(dataMap(t, envelope)["payload"])
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(stored))

	resp, envelope = doJSON(t, canvasApp(flow, &session{customerID: 6}), http.MethodGet, "/api/canvas-session/s-1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CANVAS_SESSION_NOT_FOUND", errorCode(t, envelope))
}

func TestCanvasSessionHandler_Create(t *testing.T) {
	t.Run("payload required", func(t *testing.T) {
		resp, envelope := doJSON(t, canvasApp(&fakeCanvasSessionFlow{}, &session{customerID: 5}), http.MethodPost, "/api/canvas-session/create", map[string]any{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, envelope))
	})

	t.Run("too large", func(t *testing.T) {
		flow := &fakeCanvasSessionFlow{err: businessflow.ErrCanvasPayloadTooLarge}
		resp, envelope := doJSON(t, canvasApp(flow, &session{customerID: 5}), http.MethodPost, "/api/canvas-session/create", map[string]any{"payload": map[string]any{}})
		assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "CANVAS_PAYLOAD_TOO_LARGE", errorCode(t, envelope))
	})

	t.Run("cache down", func(t *testing.T) {
		flow := &fakeCanvasSessionFlow{err: businessflow.ErrCacheNotAvailable}
		resp, _ := doJSON(t, canvasApp(flow, &session{customerID: 5}), http.MethodPost, "/api/canvas-session/create", map[string]any{"payload": map[string]any{}})
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}
