package repository

import (
	"context"
	"errors"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
)

// SavedAudienceRepositoryImpl implements SavedAudienceRepository interface
type SavedAudienceRepositoryImpl struct {
	*BaseRepository[models.SavedAudience, models.SavedAudienceFilter]
}

// NewSavedAudienceRepository creates a new saved audience repository
func NewSavedAudienceRepository(db *gorm.DB) SavedAudienceRepository {
	return &SavedAudienceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SavedAudience, models.SavedAudienceFilter](db),
	}
}

// ListByCustomer returns the customer's saved audiences, newest first
func (r *SavedAudienceRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.SavedAudience, error) {
	filter := models.SavedAudienceFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
}

// LatestByName returns the newest snapshot saved under name
func (r *SavedAudienceRepositoryImpl) LatestByName(ctx context.Context, customerID uint, name string) (*models.SavedAudience, error) {
	db := r.getDB(ctx)
	var row models.SavedAudience
	err := db.Where("customer_id = ? AND name = ?", customerID, name).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ByFilter retrieves saved audiences based on filter criteria
func (r *SavedAudienceRepositoryImpl) ByFilter(ctx context.Context, filter models.SavedAudienceFilter, orderBy string, limit, offset int) ([]*models.SavedAudience, error) {
	db := r.getDB(ctx)

	var rows []*models.SavedAudience
	query := r.applyFilter(db.Model(&models.SavedAudience{}), filter)
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of saved audiences matching the filter
func (r *SavedAudienceRepositoryImpl) Count(ctx context.Context, filter models.SavedAudienceFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.SavedAudience{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SavedAudienceRepositoryImpl) applyFilter(query *gorm.DB, filter models.SavedAudienceFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.FiltersHash != nil {
		query = query.Where("filters_hash = ?", *filter.FiltersHash)
	}
	return query
}
