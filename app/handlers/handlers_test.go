package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// session mimics what the auth middleware leaves in Locals
type session struct {
	customerID uint
	isAdmin    bool
}

func newTestApp(s *session) *fiber.App {
	app := fiber.New()
	if s != nil {
		app.Use(func(c fiber.Ctx) error {
			c.Locals("customer_id", s.customerID)
			c.Locals("is_admin", s.isAdmin)
			return c.Next()
		})
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, dto.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := app.Test(req)
	require.NoError(t, err)

	var envelope dto.APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope
}

func errorCode(t *testing.T, envelope dto.APIResponse) string {
	t.Helper()
	detail, ok := envelope.Error.(map[string]any)
	require.True(t, ok, "error detail missing: %#v", envelope.Error)
	code, _ := detail["code"].(string)
	return code
}

func dataMap(t *testing.T, envelope dto.APIResponse) map[string]any {
	t.Helper()
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "data missing: %#v", envelope.Data)
	return data
}

func TestBusinessErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"customer not found", businessflow.ErrCustomerNotFound, fiber.StatusUnauthorized, "CUSTOMER_NOT_FOUND"},
		{"inactive", businessflow.ErrAccountInactive, fiber.StatusUnauthorized, "ACCOUNT_INACTIVE"},
		{"wrapped insufficient funds", businessflow.NewBusinessError("INSUFFICIENT_FUNDS", "Need $5,400.00", businessflow.ErrInsufficientFunds), fiber.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"empty filters", businessflow.ErrEmptyFilters, fiber.StatusBadRequest, "EMPTY_FILTERS"},
		{"no contacts", businessflow.ErrNoContactsAvailable, fiber.StatusUnprocessableEntity, "NO_CONTACTS_AVAILABLE"},
		{"provider", businessflow.ErrProviderUnavailable, fiber.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
		{"campaign access", businessflow.ErrCampaignAccessDenied, fiber.StatusForbidden, "CAMPAIGN_ACCESS_DENIED"},
		{"transition", businessflow.ErrInvalidStatusTransition, fiber.StatusConflict, "INVALID_STATUS_TRANSITION"},
		{"too large", businessflow.ErrCanvasPayloadTooLarge, fiber.StatusRequestEntityTooLarge, "CANVAS_PAYLOAD_TOO_LARGE"},
		{"cache", businessflow.ErrCacheNotAvailable, fiber.StatusServiceUnavailable, "CACHE_NOT_AVAILABLE"},
		{"timeout", context.DeadlineExceeded, fiber.StatusGatewayTimeout, "REQUEST_TIMEOUT"},
		{"unknown", assert.AnError, fiber.StatusInternalServerError, "FALLBACK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newBaseHandler()
			app := fiber.New()
			app.Get("/", func(c fiber.Ctx) error {
				return h.BusinessErrorResponse(c, tt.err, "fallback", "FALLBACK")
			})

			resp, envelope := doJSON(t, app, http.MethodGet, "/", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, envelope.Success)
			assert.Equal(t, tt.code, errorCode(t, envelope))
		})
	}

	t.Run("insufficient funds keeps the business message", func(t *testing.T) {
		h := newBaseHandler()
		app := fiber.New()
		app.Get("/", func(c fiber.Ctx) error {
			err := businessflow.NewBusinessError("INSUFFICIENT_FUNDS", "Insufficient credits: need $5,400.00", businessflow.ErrInsufficientFunds)
			return h.BusinessErrorResponse(c, err, "fallback", "FALLBACK")
		})

		_, envelope := doJSON(t, app, http.MethodGet, "/", nil)
		assert.Contains(t, envelope.Message, "$5,400.00")
	})
}

func TestPageParams(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		page, limit := pageParams(c)
		return c.JSON(fiber.Map{"page": page, "limit": limit})
	})

	tests := []struct {
		query string
		page  float64
		limit float64
	}{
		{"", 1, 20},
		{"?page=3&limit=50", 3, 50},
		{"?page=abc&limit=-2", 1, 20},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		var body map[string]float64
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, tt.page, body["page"], tt.query)
		assert.Equal(t, tt.limit, body["limit"], tt.query)
	}
}
