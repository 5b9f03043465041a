package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/config"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) services.TokenService {
	t.Helper()
	svc, err := services.NewTokenService(&config.JWTConfig{
		SecretKey:      "middleware-test-secret-key-32-chars!!",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "mailpiece",
		Audience:       "mailpiece-web",
		Algorithm:      "HS256",
	})
	require.NoError(t, err)
	return svc
}

func protectedApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/me", m.Authenticate(), func(c fiber.Ctx) error {
		id, _ := GetCustomerIDFromContext(c)
		return c.JSON(fiber.Map{"customerId": id, "isAdmin": IsAdminFromContext(c)})
	})
	app.Post("/deposit", m.Authenticate(), m.RequireAdmin(), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func request(t *testing.T, app *fiber.App, method, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthenticate(t *testing.T) {
	svc := newTokenService(t)
	app := protectedApp(NewAuthMiddleware(svc))

	access, err := svc.IssueAccessToken(42, false)
	require.NoError(t, err)

	resp := request(t, app, http.MethodGet, "/me", access)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(42), body["customerId"])
	assert.Equal(t, false, body["isAdmin"])

	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, http.MethodGet, "/me", "").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, http.MethodGet, "/me", "not-a-jwt").StatusCode)

	other, err := services.NewTokenService(&config.JWTConfig{
		SecretKey:      "a-different-secret-key-of-32-chars!!",
		AccessTokenTTL: time.Minute,
		Issuer:         "mailpiece",
		Audience:       "mailpiece-web",
		Algorithm:      "HS256",
	})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken(42, true)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, http.MethodGet, "/me", foreign).StatusCode)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		code   string
	}{
		{"", "", "MISSING_AUTHORIZATION_HEADER"},
		{"Basic abc", "", "INVALID_AUTHORIZATION_FORMAT"},
		{"Bearer   ", "", "MISSING_ACCESS_TOKEN"},
		{"Bearer abc.def", "abc.def", ""},
	}
	for _, tt := range tests {
		token, code, _ := bearerToken(tt.header)
		assert.Equal(t, tt.token, token, tt.header)
		assert.Equal(t, tt.code, code, tt.header)
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTokenService(t)
	app := protectedApp(NewAuthMiddleware(svc))

	customer, err := svc.IssueAccessToken(7, false)
	require.NoError(t, err)
	admin, err := svc.IssueAccessToken(1, true)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, request(t, app, http.MethodPost, "/deposit", customer).StatusCode)
	assert.Equal(t, fiber.StatusCreated, request(t, app, http.MethodPost, "/deposit", admin).StatusCode)
}

func TestMetrics(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/t/:trackingId", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/t/:trackingId", "200"))
	for _, id := range []string{"aaaa", "bbbb", "cccc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/t/"+id, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/t/:trackingId", "200"))
	assert.Equal(t, 3.0, after-before)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
}
