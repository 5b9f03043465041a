package dto

import (
	"encoding/json"
	"time"
)

// CreateCanvasSessionRequest hands a large canvas payload to the server
type CreateCanvasSessionRequest struct {
	CustomerID uint            `json:"-"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
}

// CreateCanvasSessionResponse identifies the stored payload
type CreateCanvasSessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CanvasSessionResponse returns a stored payload
type CanvasSessionResponse struct {
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
}
