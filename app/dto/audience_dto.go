package dto

import "github.com/amirphl/mailpiece/models"

// AudienceCountRequest carries the filter criteria posted to the count endpoint.
// The body is the bare filters object.
type AudienceCountRequest struct {
	CustomerID uint `json:"-"`
	IsAdmin    bool `json:"-"`
	models.AudienceFilters
}

// AudienceCountResponse is the priced estimate for a filter set.
// Dollar amounts are rounded to cents.
type AudienceCountResponse struct {
	Count              int64    `json:"count"`
	UserCostPerContact float64  `json:"userCostPerContact"`
	UserCharge         float64  `json:"userCharge"`
	Margin             *float64 `json:"margin,omitempty"`
	Quality            string   `json:"quality"`
	FiltersHash        string   `json:"filtersHash"`
	Cached             bool     `json:"cached"`
}

// PurchaseAudienceRequest buys up to MaxContacts contacts matching Filters
type PurchaseAudienceRequest struct {
	CustomerID  uint                   `json:"-"`
	Filters     models.AudienceFilters `json:"filters"`
	MaxContacts int                    `json:"maxContacts" validate:"required,min=1"`
	Name        *string                `json:"name,omitempty" validate:"omitempty,max=160"`
}

// PurchaseAudienceResponse describes the recipient list created by a purchase
type PurchaseAudienceResponse struct {
	RecipientListID        string  `json:"recipientListId"`
	ContactCount           int64   `json:"contactCount"`
	ActualContactsImported int     `json:"actualContactsImported"`
	IsMockData             bool    `json:"isMockData"`
	Charged                float64 `json:"charged"`
	RemainingBalance       float64 `json:"remainingBalance"`
}

// SaveAudienceRequest persists a named filter snapshot
type SaveAudienceRequest struct {
	CustomerID uint                   `json:"-"`
	Name       string                 `json:"name" validate:"required,min=1,max=120"`
	Filters    models.AudienceFilters `json:"filters"`
}

// SavedAudienceResponse is a saved filter snapshot
type SavedAudienceResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Filters     models.AudienceFilters `json:"filters"`
	FiltersHash string                 `json:"filtersHash"`
	LastCount   *int64                 `json:"lastCount,omitempty"`
	CreatedAt   string                 `json:"createdAt"`
}

// ListSavedAudiencesRequest pages through a customer's saved audiences
type ListSavedAudiencesRequest struct {
	CustomerID uint `json:"-"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
}

// ListSavedAudiencesResponse is a page of saved audiences
type ListSavedAudiencesResponse struct {
	Items      []SavedAudienceResponse `json:"items"`
	Pagination PaginationInfo          `json:"pagination"`
}
