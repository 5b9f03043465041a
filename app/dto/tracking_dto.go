package dto

import "time"

// RecordVisitRequest is built from a scanned QR code or typed tracking URL
type RecordVisitRequest struct {
	TrackingID string `json:"-" validate:"required,len=32,hexadecimal"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// MicrositeResponse is the personalized landing payload for a recipient
type MicrositeResponse struct {
	TrackingID   string `json:"trackingId"`
	FirstName    string `json:"firstName"`
	City         string `json:"city"`
	State        string `json:"state"`
	CampaignID   string `json:"campaignId,omitempty"`
	CampaignName string `json:"campaignName,omitempty"`
	MicrositeURL string `json:"micrositeUrl"`
}

// RecordConversionRequest attributes a conversion to a recipient
type RecordConversionRequest struct {
	TrackingID     string         `json:"trackingId" validate:"required,len=32,hexadecimal"`
	ConversionType string         `json:"conversionType" validate:"required,min=1,max=64"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IPAddress      string         `json:"-"`
	UserAgent      string         `json:"-"`
}

// RecordConversionResponse acknowledges a recorded conversion
type RecordConversionResponse struct {
	TrackingID string    `json:"trackingId"`
	CampaignID string    `json:"campaignId,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
