package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/utils"
	"gorm.io/gorm"
)

// DesignTemplateRepositoryImpl implements DesignTemplateRepository interface
type DesignTemplateRepositoryImpl struct {
	*BaseRepository[models.DesignTemplate, models.DesignTemplateFilter]
}

// NewDesignTemplateRepository creates a new design template repository
func NewDesignTemplateRepository(db *gorm.DB) DesignTemplateRepository {
	return &DesignTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DesignTemplate, models.DesignTemplateFilter](db),
	}
}

// ByUUID retrieves a design template by UUID
func (r *DesignTemplateRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.DesignTemplate, error) {
	db := r.getDB(ctx)

	var template models.DesignTemplate
	err := db.Where("uuid = ?", uuid).Last(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find design template by uuid: %w", err)
	}
	return &template, nil
}

// Update persists a design template and bumps updated_at
func (r *DesignTemplateRepositoryImpl) Update(ctx context.Context, template *models.DesignTemplate) error {
	template.UpdatedAt = utils.UTCNowPtr()
	return r.update(ctx, template)
}

// ByFilter retrieves design templates based on filter criteria
func (r *DesignTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.DesignTemplateFilter, orderBy string, limit, offset int) ([]*models.DesignTemplate, error) {
	db := r.getDB(ctx)

	var templates []*models.DesignTemplate
	query := r.applyFilter(db.Model(&models.DesignTemplate{}), filter)
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	if err := paginate(query, orderBy, limit, offset).Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Count returns the number of design templates matching the filter
func (r *DesignTemplateRepositoryImpl) Count(ctx context.Context, filter models.DesignTemplateFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.DesignTemplate{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DesignTemplateRepositoryImpl) applyFilter(query *gorm.DB, filter models.DesignTemplateFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	return query
}
