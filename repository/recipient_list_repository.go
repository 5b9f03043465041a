package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
)

// RecipientListRepositoryImpl implements RecipientListRepository interface
type RecipientListRepositoryImpl struct {
	*BaseRepository[models.RecipientList, models.RecipientListFilter]
}

// NewRecipientListRepository creates a new recipient list repository
func NewRecipientListRepository(db *gorm.DB) RecipientListRepository {
	return &RecipientListRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RecipientList, models.RecipientListFilter](db),
	}
}

// ByUUID retrieves a recipient list by UUID
func (r *RecipientListRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.RecipientList, error) {
	db := r.getDB(ctx)

	var list models.RecipientList
	err := db.Where("uuid = ?", uuid).Last(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find recipient list by uuid: %w", err)
	}
	return &list, nil
}

// ByFilter retrieves recipient lists based on filter criteria
func (r *RecipientListRepositoryImpl) ByFilter(ctx context.Context, filter models.RecipientListFilter, orderBy string, limit, offset int) ([]*models.RecipientList, error) {
	db := r.getDB(ctx)

	var lists []*models.RecipientList
	query := r.applyFilter(db.Model(&models.RecipientList{}), filter)
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	if err := paginate(query, orderBy, limit, offset).Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

// Count returns the number of recipient lists matching the filter
func (r *RecipientListRepositoryImpl) Count(ctx context.Context, filter models.RecipientListFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.RecipientList{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RecipientListRepositoryImpl) applyFilter(query *gorm.DB, filter models.RecipientListFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	return query
}
