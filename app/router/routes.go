// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/handlers"
	"github.com/amirphl/mailpiece/app/middleware"
	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/docs"
	"github.com/amirphl/mailpiece/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const healthPath = "/api/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Audience       handlers.AudienceHandlerInterface
	Credits        handlers.CreditsHandlerInterface
	Campaign       handlers.CampaignHandlerInterface
	DesignTemplate handlers.DesignTemplateHandlerInterface
	CanvasSession  *handlers.CanvasSessionHandler
	RecipientList  *handlers.RecipientListHandler
	Tracking       *handlers.TrackingHandler
	Health         *handlers.HealthHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, authMiddleware *middleware.AuthMiddleware) *FiberRouter {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 8 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Mailpiece API",
		ServerHeader: "Mailpiece",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})

	return &FiberRouter{
		app:            app,
		cfg:            cfg,
		handlers:       h,
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.metricsPath(), adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Public tracking redirect target printed in QR codes
	r.app.Get("/t/:trackingId", r.handlers.Tracking.Visit)

	api := r.app.Group("/api")
	api.Get("/health", r.handlers.Health.Health)

	if r.cfg.Deployment.Environment == "development" || r.cfg.Deployment.Environment == "local" {
		docs.SwaggerInfo.Host = r.cfg.Deployment.Domain
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		log.Println("API documentation enabled for development")
	}

	api.Use(limiter.New(limiter.Config{
		Max:        r.rateLimit(),
		Expiration: r.rateWindow(),
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	// Conversions arrive from the public microsite
	api.Post("/tracking/conversions", r.handlers.Tracking.RecordConversion)

	protected := api.Group("", r.authMiddleware.Authenticate())

	protected.Get("/auth/check-admin", r.handlers.Credits.CheckAdmin)

	audience := protected.Group("/audience")
	audience.Post("/count", r.handlers.Audience.Count)
	audience.Post("/purchase", r.handlers.Audience.Purchase)
	audience.Post("/save", r.handlers.Audience.Save)
	audience.Get("/saved", r.handlers.Audience.ListSaved)

	credits := protected.Group("/organization/credits")
	credits.Get("/", r.handlers.Credits.GetBalance)
	credits.Get("/history", r.handlers.Credits.History)
	credits.Post("/deposit", r.authMiddleware.RequireAdmin(), r.handlers.Credits.Deposit)

	campaigns := protected.Group("/campaigns")
	campaigns.Post("/", r.handlers.Campaign.CreateCampaign)
	campaigns.Get("/", r.handlers.Campaign.ListCampaigns)
	campaigns.Get("/:id", r.handlers.Campaign.GetCampaign)
	campaigns.Patch("/:id", r.handlers.Campaign.UpdateCampaign)
	campaigns.Get("/:id/performance", r.handlers.Campaign.GetPerformance)

	templates := protected.Group("/design-templates")
	templates.Post("/", r.handlers.DesignTemplate.SaveTemplate)
	templates.Get("/", r.handlers.DesignTemplate.ListTemplates)
	templates.Get("/:id", r.handlers.DesignTemplate.GetTemplate)

	canvasSessions := protected.Group("/canvas-session")
	canvasSessions.Post("/create", r.handlers.CanvasSession.Create)
	canvasSessions.Get("/:id", r.handlers.CanvasSession.Get)

	recipientLists := protected.Group("/recipient-lists")
	recipientLists.Get("/:id", r.handlers.RecipientList.GetRecipientList)
	recipientLists.Get("/:id/export", r.handlers.RecipientList.ExportRecipientList)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		HSTSExcludeSubdomains:     !r.cfg.Security.HSTSIncludeSubDoms,
		HSTSPreloadEnabled:        r.cfg.Security.HSTSPreload,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge <= 0 {
		maxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Response-Time", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials && !containsWildcard(r.cfg.Security.AllowedOrigins),
		MaxAge:           maxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compressionLevel(r.cfg.Server.CompressionLevel),
			Next: func(c fiber.Ctx) bool {
				contentType := c.Get("Content-Type")
				return strings.Contains(contentType, "image/")
			},
		}))
	}

	// Only the generated OpenAPI document is cacheable
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/swagger.json"
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath || c.Path() == r.metricsPath()
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(r.securityMiddleware)

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Mailpiece")

	// Tracking ids are the only secret-ish path segment; keep them out of referers
	if strings.HasPrefix(c.Path(), "/t/") {
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Cache-Control", "no-store")
	}

	return c.Next()
}

func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s (tls=%t)", address, r.cfg.Security.TLSEnabled)
	return r.app.Listen(address, r.listenConfig())
}

func (r *FiberRouter) listenConfig() fiber.ListenConfig {
	if !r.cfg.Security.TLSEnabled {
		return fiber.ListenConfig{}
	}
	return fiber.ListenConfig{
		CertFile:    r.cfg.Security.TLSCertFile,
		CertKeyFile: r.cfg.Security.TLSKeyFile,
	}
}

// compressionLevel maps a gzip-style 1..9 level onto fiber's presets
func compressionLevel(level int) compress.Level {
	switch {
	case level <= 0:
		return compress.LevelDefault
	case level <= 3:
		return compress.LevelBestSpeed
	case level >= 7:
		return compress.LevelBestCompression
	default:
		return compress.LevelDefault
	}
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) metricsPath() string {
	if r.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return r.cfg.Metrics.Path
}

func (r *FiberRouter) rateLimit() int {
	if r.cfg.Security.GlobalRateLimit <= 0 {
		return 2000
	}
	return r.cfg.Security.GlobalRateLimit
}

func (r *FiberRouter) rateWindow() time.Duration {
	if r.cfg.Security.RateLimitWindow <= 0 {
		return time.Minute
	}
	return r.cfg.Security.RateLimitWindow
}

func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "Mailpiece API Documentation",
			"version":     r.cfg.Deployment.Version,
			"host":        r.cfg.Deployment.Domain,
			"description": "Audience purchase, postcard design, campaigns and attribution",
			"endpoints":   GetRouteDocumentation(),
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set("Content-Type", "application/json")
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errorCode = "REQUEST_ERROR"
		}
	}
	if code == fiber.StatusRequestEntityTooLarge {
		errorCode = "PAYLOAD_TOO_LARGE"
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// GetRouteDocumentation returns a compact, human readable route listing
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{"method": "POST", "path": "/api/audience/count", "auth": true, "description": "Estimate and price an audience from filters"},
		{"method": "POST", "path": "/api/audience/purchase", "auth": true, "description": "Buy contacts into a recipient list, debiting credits"},
		{"method": "POST", "path": "/api/audience/save", "auth": true, "description": "Save a named filter set"},
		{"method": "GET", "path": "/api/audience/saved", "auth": true, "description": "List saved audiences"},
		{"method": "GET", "path": "/api/organization/credits", "auth": true, "description": "Credit balance in dollars"},
		{"method": "GET", "path": "/api/organization/credits/history", "auth": true, "description": "Balance changes, newest first"},
		{"method": "POST", "path": "/api/organization/credits/deposit", "auth": true, "admin": true, "description": "Deposit credits to a customer"},
		{"method": "GET", "path": "/api/auth/check-admin", "auth": true, "description": "Admin flag of the current token"},
		{"method": "POST", "path": "/api/campaigns", "auth": true, "description": "Create a campaign"},
		{"method": "GET", "path": "/api/campaigns", "auth": true, "description": "List campaigns (page, limit, orderby, status)"},
		{"method": "GET", "path": "/api/campaigns/:id", "auth": true, "description": "Get a campaign"},
		{"method": "PATCH", "path": "/api/campaigns/:id", "auth": true, "description": "Update a campaign or move it through its lifecycle"},
		{"method": "GET", "path": "/api/campaigns/:id/performance", "auth": true, "description": "Visits, conversions and percentile rank"},
		{"method": "POST", "path": "/api/design-templates", "auth": true, "description": "Create or update a design template"},
		{"method": "GET", "path": "/api/design-templates", "auth": true, "description": "List design templates"},
		{"method": "GET", "path": "/api/design-templates/:id", "auth": true, "description": "Get a design template"},
		{"method": "POST", "path": "/api/canvas-session/create", "auth": true, "description": "Park a canvas payload for a short time"},
		{"method": "GET", "path": "/api/canvas-session/:id", "auth": true, "description": "Load a parked canvas payload"},
		{"method": "GET", "path": "/api/recipient-lists/:id", "auth": true, "description": "Recipient list with a page of contacts"},
		{"method": "GET", "path": "/api/recipient-lists/:id/export", "auth": true, "description": "Download the list as XLSX"},
		{"method": "POST", "path": "/api/tracking/conversions", "auth": false, "description": "Record a conversion for a tracking id"},
		{"method": "GET", "path": "/t/:trackingId", "auth": false, "description": "Record a visit and return the microsite payload"},
		{"method": "GET", "path": "/api/health", "auth": false, "description": "Health check"},
	}
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
