package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
)

// contactBatchSize keeps multi-row inserts under the postgres parameter limit
const contactBatchSize = 500

// ContactRepositoryImpl implements ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, struct{}]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, struct{}](db),
	}
}

// SaveBatch inserts contacts in chunks inside one transaction
func (r *ContactRepositoryImpl) SaveBatch(ctx context.Context, contacts []*models.Contact) (err error) {
	if len(contacts) == 0 {
		return nil
	}

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

	if err = db.CreateInBatches(contacts, contactBatchSize).Error; err != nil {
		return fmt.Errorf("failed to save contacts: %w", err)
	}
	return nil
}

// ByTrackingID finds the contact a mail piece was addressed to
func (r *ContactRepositoryImpl) ByTrackingID(ctx context.Context, trackingID string) (*models.Contact, error) {
	db := r.getDB(ctx)

	var contact models.Contact
	err := db.Where("tracking_id = ?", trackingID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// ListByRecipientList pages through a list's contacts in insertion order
func (r *ContactRepositoryImpl) ListByRecipientList(ctx context.Context, recipientListID uint, limit, offset int) ([]*models.Contact, error) {
	db := r.getDB(ctx)

	var contacts []*models.Contact
	query := db.Where("recipient_list_id = ?", recipientListID)
	if err := paginate(query, "id ASC", limit, offset).Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// CountByRecipientList returns the number of contacts in a list
func (r *ContactRepositoryImpl) CountByRecipientList(ctx context.Context, recipientListID uint) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Contact{}).Where("recipient_list_id = ?", recipientListID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
