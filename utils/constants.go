package utils

import (
	"time"
)

// Token constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Credit and audience constants
const (
	// USDCurrency is the only billing currency; amounts are stored in cents
	USDCurrency = "USD"

	// CentsPerDollar converts between dollars and stored cent amounts
	CentsPerDollar = 100

	// AudienceTooBroadThreshold marks counts above which a filter set is flagged as too broad
	AudienceTooBroadThreshold = 1_000_000

	// AudienceTooNarrowThreshold marks counts below which a filter set is flagged as too narrow
	AudienceTooNarrowThreshold = 1_000

	// MaxContactsPerPurchase caps a single purchase request
	MaxContactsPerPurchase = 50_000
)

// Request-scoped context keys
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
