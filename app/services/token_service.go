// Package services provides external service integrations and technical concerns like contact data, events and tokens
package services

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenService verifies bearer tokens. Credentials are issued elsewhere; IssueAccessToken
// exists for the demo customer and for tests.
type TokenService interface {
	IssueAccessToken(customerID uint, isAdmin bool) (string, error)
	ValidateToken(token string) (*TokenClaims, error)
}

// TokenClaims is what a verified access token says about its bearer
type TokenClaims struct {
	CustomerID uint
	IsAdmin    bool
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// accessClaims is the JWT body
type accessClaims struct {
	CustomerID uint `json:"customer_id"`
	IsAdmin    bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	ttl       time.Duration
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
}

// NewTokenService builds a token service for the configured algorithm.
// HS* algorithms sign with SecretKey, RS* algorithms with the PEM key pair.
func NewTokenService(cfg *config.JWTConfig) (TokenService, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported JWT algorithm %q", cfg.Algorithm)
	}

	s := &TokenServiceImpl{
		ttl:      cfg.AccessTokenTTL,
		method:   method,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("secret key is required for %s", cfg.Algorithm)
		}
		s.signKey, s.verifyKey = []byte(cfg.SecretKey), []byte(cfg.SecretKey)
	case *jwt.SigningMethodRSA:
		private, public, err := parseRSAKeys(cfg.PrivateKey, cfg.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA keys: %w", err)
		}
		s.signKey, s.verifyKey = private, public
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q", cfg.Algorithm)
	}

	return s, nil
}

func parseRSAKeys(privateKeyPEM, publicKeyPEM string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, nil, fmt.Errorf("both private and public keys are required")
	}
	private, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, nil, err
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}

// IssueAccessToken signs an access token carrying the customer id and admin flag
func (s *TokenServiceImpl) IssueAccessToken(customerID uint, isAdmin bool) (string, error) {
	now := utils.UTCNow()
	claims := accessClaims{
		CustomerID: customerID,
		IsAdmin:    isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
}

// ValidateToken checks signature, algorithm, expiry, issuer and audience and returns the claims
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.CustomerID == 0 || claims.IssuedAt == nil {
		return nil, ErrTokenInvalid
	}

	return &TokenClaims{
		CustomerID: claims.CustomerID,
		IsAdmin:    claims.IsAdmin,
		TokenID:    claims.ID,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}
