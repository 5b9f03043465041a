package repository

import (
	"context"
	"errors"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
)

// BalanceSnapshotRepositoryImpl implements BalanceSnapshotRepository interface
type BalanceSnapshotRepositoryImpl struct {
	*BaseRepository[models.BalanceSnapshot, models.BalanceSnapshotFilter]
}

// NewBalanceSnapshotRepository creates a new balance snapshot repository
func NewBalanceSnapshotRepository(db *gorm.DB) BalanceSnapshotRepository {
	return &BalanceSnapshotRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BalanceSnapshot, models.BalanceSnapshotFilter](db),
	}
}

// ByWalletID finds balance snapshots by wallet ID, newest first
func (r *BalanceSnapshotRepositoryImpl) ByWalletID(ctx context.Context, walletID uint, limit, offset int) ([]*models.BalanceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshots []*models.BalanceSnapshot

	query := db.Where("wallet_id = ?", walletID)
	if err := paginate(query, "created_at DESC, id DESC", limit, offset).Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetLatestByWalletID gets the latest balance snapshot for a wallet
func (r *BalanceSnapshotRepositoryImpl) GetLatestByWalletID(ctx context.Context, walletID uint) (*models.BalanceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshot models.BalanceSnapshot
	err := db.Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// ByFilter retrieves balance snapshots based on filter criteria
func (r *BalanceSnapshotRepositoryImpl) ByFilter(ctx context.Context, filter models.BalanceSnapshotFilter, orderBy string, limit, offset int) ([]*models.BalanceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshots []*models.BalanceSnapshot

	query := r.applyFilter(db.Model(&models.BalanceSnapshot{}), filter)
	if err := paginate(query, orderBy, limit, offset).Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Count returns the number of balance snapshots matching the filter
func (r *BalanceSnapshotRepositoryImpl) Count(ctx context.Context, filter models.BalanceSnapshotFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	if err := r.applyFilter(db.Model(&models.BalanceSnapshot{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *BalanceSnapshotRepositoryImpl) applyFilter(query *gorm.DB, filter models.BalanceSnapshotFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CorrelationID != nil {
		query = query.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.WalletID != nil {
		query = query.Where("wallet_id = ?", *filter.WalletID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Reason != nil {
		query = query.Where("reason = ?", *filter.Reason)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
