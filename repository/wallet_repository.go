package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepositoryImpl implements WalletRepository interface
type WalletRepositoryImpl struct {
	*BaseRepository[models.Wallet, models.WalletFilter]
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &WalletRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Wallet, models.WalletFilter](db),
	}
}

// ByUUID finds a wallet by UUID
func (r *WalletRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("uuid = ?", uuid).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// ByCustomerID finds a wallet by customer ID
func (r *WalletRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("customer_id = ?", customerID).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// LockForUpdate takes a row lock on the wallet. Outside a transaction the lock is released immediately.
func (r *WalletRepositoryImpl) LockForUpdate(ctx context.Context, walletID uint) error {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", walletID).Take(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("wallet %d not found", walletID)
		}
		return err
	}
	return nil
}

// SaveWithInitialSnapshot creates a wallet together with a zero balance snapshot
func (r *WalletRepositoryImpl) SaveWithInitialSnapshot(ctx context.Context, wallet *models.Wallet) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				err = db.Commit().Error
			}
		}()
	}

	if err = db.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	initialSnapshot := &models.BalanceSnapshot{
		UUID:          uuid.New(),
		CorrelationID: uuid.New(),
		WalletID:      wallet.ID,
		CustomerID:    wallet.CustomerID,
		Reason:        "initial_snapshot",
		Description:   "Initial balance snapshot",
		Metadata:      json.RawMessage(`{}`),
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}

	if err = db.Create(initialSnapshot).Error; err != nil {
		return fmt.Errorf("failed to create initial balance snapshot: %w", err)
	}

	return nil
}

// ByFilter retrieves wallets based on filter criteria
func (r *WalletRepositoryImpl) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallets []*models.Wallet

	query := r.applyFilter(db.Model(&models.Wallet{}), filter)
	if err := paginate(query, orderBy, limit, offset).Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

// Count returns the number of wallets matching the filter
func (r *WalletRepositoryImpl) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	if err := r.applyFilter(db.Model(&models.Wallet{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *WalletRepositoryImpl) applyFilter(query *gorm.DB, filter models.WalletFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
