package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/handlers"
	"github.com/amirphl/mailpiece/app/middleware"
	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandlers answers every route with its own method name and the caller's customer id
type echoHandlers struct{}

func (echoHandlers) reply(c fiber.Ctx, name string) error {
	return c.JSON(dto.APIResponse{Success: true, Message: name, Data: fiber.Map{"customerId": c.Locals("customer_id")}})
}

func (h echoHandlers) Count(c fiber.Ctx) error          { return h.reply(c, "Count") }
func (h echoHandlers) Purchase(c fiber.Ctx) error       { return h.reply(c, "Purchase") }
func (h echoHandlers) Save(c fiber.Ctx) error           { return h.reply(c, "Save") }
func (h echoHandlers) ListSaved(c fiber.Ctx) error      { return h.reply(c, "ListSaved") }
func (h echoHandlers) GetBalance(c fiber.Ctx) error     { return h.reply(c, "GetBalance") }
func (h echoHandlers) Deposit(c fiber.Ctx) error        { return h.reply(c, "Deposit") }
func (h echoHandlers) History(c fiber.Ctx) error        { return h.reply(c, "History") }
func (h echoHandlers) CheckAdmin(c fiber.Ctx) error     { return h.reply(c, "CheckAdmin") }
func (h echoHandlers) CreateCampaign(c fiber.Ctx) error { return h.reply(c, "CreateCampaign") }
func (h echoHandlers) UpdateCampaign(c fiber.Ctx) error { return h.reply(c, "UpdateCampaign") }
func (h echoHandlers) GetCampaign(c fiber.Ctx) error    { return h.reply(c, "GetCampaign") }
func (h echoHandlers) ListCampaigns(c fiber.Ctx) error  { return h.reply(c, "ListCampaigns") }
func (h echoHandlers) GetPerformance(c fiber.Ctx) error { return h.reply(c, "GetPerformance") }
func (h echoHandlers) SaveTemplate(c fiber.Ctx) error   { return h.reply(c, "SaveTemplate") }
func (h echoHandlers) GetTemplate(c fiber.Ctx) error    { return h.reply(c, "GetTemplate") }
func (h echoHandlers) ListTemplates(c fiber.Ctx) error  { return h.reply(c, "ListTemplates") }

func testRouter(t *testing.T) (*FiberRouter, services.TokenService) {
	t.Helper()

	tokens, err := services.NewTokenService(&config.JWTConfig{
		SecretKey:      "0123456789abcdef0123456789abcdef",
		AccessTokenTTL: time.Hour,
		Issuer:         "mailpiece",
		Audience:       "mailpiece-api",
		Algorithm:      "HS256",
	})
	require.NoError(t, err)

	cfg := &config.ProductionConfig{
		Server: config.ServerConfig{EnableCompression: true, CompressionLevel: 6},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		Deployment: config.DeploymentConfig{Environment: "test", Domain: "api.mailpiece.test"},
	}

	stub := echoHandlers{}
	r := NewFiberRouter(cfg, Handlers{
		Audience:       stub,
		Credits:        stub,
		Campaign:       stub,
		DesignTemplate: stub,
		CanvasSession:  handlers.NewCanvasSessionHandler(nil),
		RecipientList:  handlers.NewRecipientListHandler(nil),
		Tracking:       handlers.NewTrackingHandler(nil),
		Health:         handlers.NewHealthHandler("mailpiece-api", handlers.BuildInfo{Version: "test", Commit: "abc123"}, nil),
	}, middleware.NewAuthMiddleware(tokens))
	r.SetupRoutes()
	return r, tokens
}

func call(t *testing.T, app *fiber.App, method, path, token string) (*http.Response, dto.APIResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var envelope dto.APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope
}

func envelopeCode(envelope dto.APIResponse) string {
	detail, _ := envelope.Error.(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestRoutes_Health(t *testing.T) {
	r, _ := testRouter(t)

	resp, envelope := call(t, r.GetApp(), http.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "Mailpiece", resp.Header.Get("Server"))

	data := envelope.Data.(map[string]any)
	assert.Equal(t, "test", data["version"])
	assert.Equal(t, "abc123", data["commit"])
}

func TestRoutes_CreditsGroup(t *testing.T) {
	r, tokens := testRouter(t)
	app := r.GetApp()

	member, err := tokens.IssueAccessToken(7, false)
	require.NoError(t, err)
	admin, err := tokens.IssueAccessToken(1, true)
	require.NoError(t, err)

	t.Run("requires a token", func(t *testing.T) {
		resp, envelope := call(t, app, http.MethodGet, "/api/organization/credits", "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", envelopeCode(envelope))
	})

	t.Run("group root serves the balance", func(t *testing.T) {
		for _, path := range []string{"/api/organization/credits", "/api/organization/credits/"} {
			resp, envelope := call(t, app, http.MethodGet, path, member)
			require.Equal(t, fiber.StatusOK, resp.StatusCode, path)
			assert.Equal(t, "GetBalance", envelope.Message, path)
			assert.Equal(t, float64(7), envelope.Data.(map[string]any)["customerId"], path)
		}
	})

	t.Run("history", func(t *testing.T) {
		resp, envelope := call(t, app, http.MethodGet, "/api/organization/credits/history?page=2", member)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "History", envelope.Message)
	})

	t.Run("deposit is admin only", func(t *testing.T) {
		resp, envelope := call(t, app, http.MethodPost, "/api/organization/credits/deposit", member)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "ADMIN_REQUIRED", envelopeCode(envelope))

		resp, envelope = call(t, app, http.MethodPost, "/api/organization/credits/deposit", admin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Deposit", envelope.Message)
	})
}

func TestRoutes_GroupsAndFallback(t *testing.T) {
	r, tokens := testRouter(t)
	app := r.GetApp()

	token, err := tokens.IssueAccessToken(3, false)
	require.NoError(t, err)

	cases := []struct {
		method, path, handler string
	}{
		{http.MethodPost, "/api/audience/count", "Count"},
		{http.MethodGet, "/api/audience/saved", "ListSaved"},
		{http.MethodGet, "/api/auth/check-admin", "CheckAdmin"},
		{http.MethodGet, "/api/campaigns", "ListCampaigns"},
		{http.MethodPatch, "/api/campaigns/c-1", "UpdateCampaign"},
		{http.MethodGet, "/api/campaigns/c-1/performance", "GetPerformance"},
		{http.MethodPost, "/api/design-templates", "SaveTemplate"},
		{http.MethodGet, "/api/design-templates/t-1", "GetTemplate"},
	}
	for _, tc := range cases {
		resp, envelope := call(t, app, tc.method, tc.path, token)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, tc.path)
		assert.Equal(t, tc.handler, envelope.Message, tc.path)
	}

	resp, envelope := call(t, app, http.MethodGet, "/api/unknown", token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", envelopeCode(envelope))

	resp, _ = call(t, app, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRouteDocumentation(t *testing.T) {
	paths := map[string]bool{}
	for _, route := range GetRouteDocumentation() {
		paths[route["method"].(string)+" "+route["path"].(string)] = true
	}
	assert.True(t, paths["GET /api/organization/credits"])
	assert.True(t, paths["GET /api/organization/credits/history"])
	assert.True(t, paths["POST /api/organization/credits/deposit"])
}

func TestCompressionLevel(t *testing.T) {
	assert.Equal(t, compress.LevelDefault, compressionLevel(0))
	assert.Equal(t, compress.LevelBestSpeed, compressionLevel(1))
	assert.Equal(t, compress.LevelBestSpeed, compressionLevel(3))
	assert.Equal(t, compress.LevelDefault, compressionLevel(6))
	assert.Equal(t, compress.LevelBestCompression, compressionLevel(9))
}

func TestListenConfig(t *testing.T) {
	r := &FiberRouter{cfg: &config.ProductionConfig{}}
	assert.Empty(t, r.listenConfig().CertFile)

	r.cfg.Security = config.SecurityConfig{TLSEnabled: true, TLSCertFile: "/etc/tls/cert.pem", TLSKeyFile: "/etc/tls/key.pem"}
	lc := r.listenConfig()
	assert.Equal(t, "/etc/tls/cert.pem", lc.CertFile)
	assert.Equal(t, "/etc/tls/key.pem", lc.CertKeyFile)
}
