// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/mailpiece/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
}

// WalletRepository defines operations for wallets
type WalletRepository interface {
	Repository[models.Wallet, models.WalletFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Wallet, error)
	ByCustomerID(ctx context.Context, customerID uint) (*models.Wallet, error)
	SaveWithInitialSnapshot(ctx context.Context, wallet *models.Wallet) error
	// LockForUpdate row-locks the wallet for the rest of the surrounding transaction
	LockForUpdate(ctx context.Context, walletID uint) error
}

// BalanceSnapshotRepository defines operations for balance snapshots
type BalanceSnapshotRepository interface {
	Repository[models.BalanceSnapshot, models.BalanceSnapshotFilter]
	ByWalletID(ctx context.Context, walletID uint, limit, offset int) ([]*models.BalanceSnapshot, error)
	GetLatestByWalletID(ctx context.Context, walletID uint) (*models.BalanceSnapshot, error)
}

// TransactionRepository defines operations for credit transactions
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*models.Transaction, error)
	ByRecipientListID(ctx context.Context, recipientListID uint) (*models.Transaction, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
}

// SavedAudienceRepository defines operations for saved audiences
type SavedAudienceRepository interface {
	Repository[models.SavedAudience, models.SavedAudienceFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.SavedAudience, error)
	LatestByName(ctx context.Context, customerID uint, name string) (*models.SavedAudience, error)
}

// RecipientListRepository defines operations for recipient lists
type RecipientListRepository interface {
	Repository[models.RecipientList, models.RecipientListFilter]
	ByUUID(ctx context.Context, uuid string) (*models.RecipientList, error)
}

// ContactRepository defines operations for purchased contacts
type ContactRepository interface {
	SaveBatch(ctx context.Context, contacts []*models.Contact) error
	ByTrackingID(ctx context.Context, trackingID string) (*models.Contact, error)
	ListByRecipientList(ctx context.Context, recipientListID uint, limit, offset int) ([]*models.Contact, error)
	CountByRecipientList(ctx context.Context, recipientListID uint) (int64, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByRecipientListID(ctx context.Context, recipientListID uint) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	TransitionStatus(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error)
}

// DesignTemplateRepository defines operations for design templates
type DesignTemplateRepository interface {
	Repository[models.DesignTemplate, models.DesignTemplateFilter]
	ByUUID(ctx context.Context, uuid string) (*models.DesignTemplate, error)
	Update(ctx context.Context, template *models.DesignTemplate) error
}

// TrackingEventRepository defines operations for attribution events
type TrackingEventRepository interface {
	Save(ctx context.Context, event *models.TrackingEvent) error
	SaveBatch(ctx context.Context, events []*models.TrackingEvent) error
	CountByFilter(ctx context.Context, filter models.TrackingEventFilter) (int64, error)
	CampaignPerformance(ctx context.Context, campaignID uint) (*models.CampaignPerformance, error)
	AllCampaignPerformance(ctx context.Context) ([]*models.CampaignPerformance, error)
}
