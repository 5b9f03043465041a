package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByID retrieves a campaign by ID with its template and recipient list
func (r *CampaignRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Preload("DesignTemplate").
		Preload("RecipientList").
		Last(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &campaign, nil
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Campaign, error) {
	parsedUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign uuid: %w", err)
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ByRecipientListID retrieves every campaign mailing to a recipient list
func (r *CampaignRepositoryImpl) ByRecipientListID(ctx context.Context, recipientListID uint) ([]*models.Campaign, error) {
	filter := models.CampaignFilter{RecipientListID: &recipientListID}
	return r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
}

// Update persists a campaign and bumps updated_at
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	// Relations are loaded for reads only.
	campaign.Customer = nil
	campaign.DesignTemplate = nil
	campaign.RecipientList = nil

	return r.update(ctx, campaign)
}

// TransitionStatus moves a campaign from one status to another only if it is still in from.
// It reports whether this call made the change.
func (r *CampaignRepositoryImpl) TransitionStatus(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	db := r.getDB(ctx)

	result := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": utils.UTCNow()})
	if result.Error != nil {
		return false, fmt.Errorf("failed to move campaign %d to %s: %w", id, to, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.Campaign{}), filter).
		Preload("DesignTemplate", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "uuid", "name") }).
		Preload("RecipientList")
	if orderBy == "" {
		orderBy = "created_at DESC"
	}

	var campaigns []*models.Campaign
	if err := paginate(query, orderBy, limit, offset).Find(&campaigns).Error; err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.Campaign{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the query
func (r *CampaignRepositoryImpl) applyFilter(query *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.RecipientListID != nil {
		query = query.Where("recipient_list_id = ?", *filter.RecipientListID)
	}
	if filter.ScheduledBefore != nil {
		query = query.Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", *filter.ScheduledBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return query
}
