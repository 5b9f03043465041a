package dto

import (
	"time"

	"github.com/amirphl/mailpiece/models"
)

// GetRecipientListRequest fetches one page of a purchased list
type GetRecipientListRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// ContactResponse is one purchased contact
type ContactResponse struct {
	TrackingID   string `json:"trackingId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Phone        string `json:"phone,omitempty"`
}

// RecipientListResponse describes a recipient list and a page of its contacts
type RecipientListResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Source       string                 `json:"source"`
	Filters      models.AudienceFilters `json:"filters"`
	ContactCount int                    `json:"contactCount"`
	IsMockData   bool                   `json:"isMockData"`
	CreatedAt    time.Time              `json:"createdAt"`
	Contacts     []ContactResponse      `json:"contacts"`
	Pagination   PaginationInfo         `json:"pagination"`
}

// RecipientListExport is a rendered spreadsheet
type RecipientListExport struct {
	FileName    string
	ContentType string
	Data        []byte
}
