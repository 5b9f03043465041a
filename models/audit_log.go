package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerID   *uint           `gorm:"index:idx_audit_customer_id" json:"customer_id,omitempty"`
	Customer     *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Action       string          `gorm:"type:varchar(64);not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionAudienceSaved           = "audience_saved"
	AuditActionAudiencePurchased       = "audience_purchased"
	AuditActionAudiencePurchaseFailed  = "audience_purchase_failed"
	AuditActionCampaignCreated         = "campaign_created"
	AuditActionCampaignCreationFailed  = "campaign_creation_failed"
	AuditActionCampaignUpdated         = "campaign_updated"
	AuditActionCampaignUpdateFailed    = "campaign_update_failed"
	AuditActionDesignTemplateSaved     = "design_template_saved"
	AuditActionRecipientListExported   = "recipient_list_exported"
	AuditActionConversionRecorded      = "conversion_recorded"
	AuditActionCreditsDeposited        = "credits_deposited"
	AuditActionCreditsDepositFailed    = "credits_deposit_failed"
	AuditActionCanvasSessionCreated    = "canvas_session_created"
	AuditActionDesignTemplateSaveFail  = "design_template_save_failed"
	AuditActionRecipientListExportFail = "recipient_list_export_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsBillingEvent reports whether the entry records a credit movement
func (a *AuditLog) IsBillingEvent() bool {
	billingActions := map[string]bool{
		AuditActionAudiencePurchased:      true,
		AuditActionAudiencePurchaseFailed: true,
		AuditActionCreditsDeposited:       true,
		AuditActionCreditsDepositFailed:   true,
	}
	return billingActions[a.Action]
}
