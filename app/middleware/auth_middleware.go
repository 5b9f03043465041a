// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/services"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, code, message := bearerToken(c.Get("Authorization"))
		if code != "" {
			return unauthorized(c, code, message)
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			var errorCode string
			var message string

			switch {
			case errors.Is(err, services.ErrTokenExpired):
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			case errors.Is(err, services.ErrTokenInvalid):
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			default:
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}
			return unauthorized(c, errorCode, message)
		}

		setClaims(c, claims)
		return c.Next()
	}
}

// RequireAdmin rejects authenticated callers whose token does not carry the admin flag.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		if customerID, ok := GetCustomerIDFromContext(c); !ok || customerID == 0 {
			return unauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
		}
		if !IsAdminFromContext(c) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Admin privileges required",
				Error:   dto.ErrorDetail{Code: "ADMIN_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. A non-empty code describes the failure.
func bearerToken(header string) (token, code, message string) {
	if header == "" {
		return "", "MISSING_AUTHORIZATION_HEADER", "Authorization header is required"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"
	}
	token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", "MISSING_ACCESS_TOKEN", "Access token is required"
	}
	return token, "", ""
}

func setClaims(c fiber.Ctx, claims *services.TokenClaims) {
	// Store user information in context for downstream handlers
	c.Locals("customer_id", claims.CustomerID)
	c.Locals("is_admin", claims.IsAdmin)

	// Store RequestID for audit logging
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		c.Locals("request_id", requestID)
	}
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// GetCustomerIDFromContext extracts customer ID from the request context
func GetCustomerIDFromContext(c fiber.Ctx) (uint, bool) {
	customerID, ok := c.Locals("customer_id").(uint)
	return customerID, ok
}

// IsAdminFromContext reports whether the authenticated token carries the admin flag
func IsAdminFromContext(c fiber.Ctx) bool {
	isAdmin, _ := c.Locals("is_admin").(bool)
	return isAdmin
}
