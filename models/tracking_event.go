package models

import (
	"encoding/json"
	"time"
)

// TrackingEventType distinguishes microsite visits from conversions
type TrackingEventType string

const (
	TrackingEventVisit      TrackingEventType = "visit"
	TrackingEventConversion TrackingEventType = "conversion"
)

// TrackingEvent records an attribution event for one mailed contact
type TrackingEvent struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	TrackingID     string            `gorm:"size:32;not null;index:idx_tracking_events_tracking_id" json:"tracking_id"`
	CampaignID     *uint             `gorm:"index:idx_tracking_events_campaign_id" json:"campaign_id,omitempty"`
	Type           TrackingEventType `gorm:"type:varchar(20);not null;index" json:"type"`
	ConversionType *string           `gorm:"size:64" json:"conversion_type,omitempty"`
	IPAddress      *string           `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent      *string           `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata       json.RawMessage   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index" json:"created_at"`
}

func (TrackingEvent) TableName() string { return "tracking_events" }

// TrackingEventFilter represents filter criteria for tracking event queries
type TrackingEventFilter struct {
	TrackingID    *string
	CampaignID    *uint
	Type          *TrackingEventType
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// CampaignPerformance aggregates tracking events for one campaign
type CampaignPerformance struct {
	CampaignID     uint    `json:"campaign_id"`
	Recipients     int64   `json:"recipients"`
	Visits         int64   `json:"visits"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"` // percent
}
