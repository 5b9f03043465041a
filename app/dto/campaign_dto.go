package dto

import (
	"time"
)

// CreateCampaignRequest is the single body assembled by the campaign wizard
type CreateCampaignRequest struct {
	CustomerID       uint              `json:"-"`
	Name             string            `json:"name" validate:"required,min=1,max=160"`
	DesignTemplateID string            `json:"designTemplateId" validate:"required,uuid"`
	RecipientListID  string            `json:"recipientListId" validate:"required,uuid"`
	VariableMappings map[string]string `json:"variableMappings,omitempty"`
	ScheduledAt      *time.Time        `json:"scheduledAt,omitempty"`
}

// UpdateCampaignRequest patches an existing campaign. Nil fields are left unchanged.
type UpdateCampaignRequest struct {
	UUID             string            `json:"-"`
	CustomerID       uint              `json:"-"`
	Name             *string           `json:"name,omitempty" validate:"omitempty,min=1,max=160"`
	DesignTemplateID *string           `json:"designTemplateId,omitempty" validate:"omitempty,uuid"`
	RecipientListID  *string           `json:"recipientListId,omitempty" validate:"omitempty,uuid"`
	VariableMappings map[string]string `json:"variableMappings,omitempty"`
	ScheduledAt      *time.Time        `json:"scheduledAt,omitempty"`
	Status           *string           `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled in-production mailed cancelled"`
}

// GetCampaignRequest identifies a campaign owned by a customer
type GetCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// CampaignResponse is the campaign representation returned by the API
type CampaignResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Status           string            `json:"status"`
	StatusLabel      string            `json:"statusLabel"`
	DesignTemplateID string            `json:"designTemplateId,omitempty"`
	RecipientListID  string            `json:"recipientListId,omitempty"`
	RecipientCount   int               `json:"recipientCount"`
	VariableMappings map[string]string `json:"variableMappings"`
	ScheduledAt      *time.Time        `json:"scheduledAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

// ListCampaignsRequest represents a paginated list request for user's campaigns
type ListCampaignsRequest struct {
	CustomerID uint    `json:"-"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	OrderBy    string  `json:"orderBy"` // newest, oldest
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled in-production mailed cancelled"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Items      []CampaignResponse `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}

// CampaignPerformanceResponse reports attribution stats for a campaign
type CampaignPerformanceResponse struct {
	CampaignID        string  `json:"campaignId"`
	Recipients        int64   `json:"recipients"`
	Visits            int64   `json:"visits"`
	Conversions       int64   `json:"conversions"`
	ConversionRate    float64 `json:"conversionRate"`
	PercentileRank    float64 `json:"percentileRank"`
	CampaignsCompared int     `json:"campaignsCompared"`
}
