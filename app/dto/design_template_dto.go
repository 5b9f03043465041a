package dto

import (
	"encoding/json"
	"time"
)

// SaveDesignTemplateRequest creates a template, or updates it when ID is set
type SaveDesignTemplateRequest struct {
	CustomerID uint            `json:"-"`
	ID         *string         `json:"id,omitempty" validate:"omitempty,uuid"`
	Name       string          `json:"name" validate:"required,min=1,max=160"`
	Width      int             `json:"width" validate:"required,gt=0,lte=10000"`
	Height     int             `json:"height" validate:"required,gt=0,lte=10000"`
	CanvasJSON json.RawMessage `json:"canvasJson" validate:"required"`
	PreviewURL *string         `json:"previewUrl,omitempty" validate:"omitempty,url,max=512"`
}

// DesignTemplateResponse is a stored postcard design
type DesignTemplateResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	CanvasJSON json.RawMessage `json:"canvasJson,omitempty"`
	PreviewURL *string         `json:"previewUrl,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
}

// ListDesignTemplatesRequest pages through a customer's templates
type ListDesignTemplatesRequest struct {
	CustomerID uint `json:"-"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
}

// ListDesignTemplatesResponse is a page of templates without canvas bodies
type ListDesignTemplatesResponse struct {
	Items      []DesignTemplateResponse `json:"items"`
	Pagination PaginationInfo           `json:"pagination"`
}
