package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DesignTemplate is a saved postcard canvas
type DesignTemplate struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_design_templates_uuid" json:"uuid"`
	CustomerID uint            `gorm:"not null;index:idx_design_templates_customer_id" json:"customer_id"`
	Name       string          `gorm:"size:160;not null" json:"name"`
	Width      int             `gorm:"not null" json:"width"`
	Height     int             `gorm:"not null" json:"height"`
	CanvasJSON json.RawMessage `gorm:"type:jsonb;not null" json:"canvas_json"`
	PreviewURL *string         `gorm:"size:512" json:"preview_url,omitempty"`
	CreatedAt  time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

func (DesignTemplate) TableName() string { return "design_templates" }

// BeforeCreate ensures UUID is set
func (d *DesignTemplate) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	return nil
}

// DesignTemplateFilter represents filter criteria for design template queries
type DesignTemplateFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	CustomerID *uint
	Name       *string
}
