package testing

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active customer with a unique email
func (tf *TestFixtures) CreateTestCustomer(isAdmin bool) (*models.Customer, error) {
	customer := &models.Customer{
		UUID:      uuid.New(),
		FirstName: "Jordan",
		LastName:  "Lee",
		Email:     fmt.Sprintf("jordan.lee.%d@example.com", rand.IntN(1_000_000_000)),
		IsActive:  utils.ToPtr(true),
		IsAdmin:   utils.ToPtr(isAdmin),
		CreatedAt: utils.UTCNow(),
		UpdatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}
	return customer, nil
}

// CreateTestWallet creates a wallet whose latest snapshot holds freeBalance cents
func (tf *TestFixtures) CreateTestWallet(customerID uint, freeBalance uint64) (*models.Wallet, error) {
	wallet := &models.Wallet{
		UUID:       uuid.New(),
		CustomerID: customerID,
		Metadata:   json.RawMessage(`{}`),
		CreatedAt:  utils.UTCNow(),
		UpdatedAt:  utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create test wallet: %w", err)
	}

	snapshot := &models.BalanceSnapshot{
		UUID:          uuid.New(),
		CorrelationID: uuid.New(),
		WalletID:      wallet.ID,
		CustomerID:    customerID,
		FreeBalance:   freeBalance,
		TotalBalance:  freeBalance,
		Reason:        "test_fixture",
		Metadata:      json.RawMessage(`{}`),
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to create test balance snapshot: %w", err)
	}
	return wallet, nil
}

// CreateTestRecipientList creates a purchased list with n contacts in Fresno, CA
func (tf *TestFixtures) CreateTestRecipientList(customerID uint, n int) (*models.RecipientList, []*models.Contact, error) {
	list := &models.RecipientList{
		UUID:         uuid.New(),
		CustomerID:   customerID,
		Name:         "Fresno homeowners",
		Source:       models.RecipientListSourcePurchase,
		Filters:      models.AudienceFilters{State: "CA", City: "Fresno", Homeowner: utils.ToPtr(true)},
		ContactCount: n,
		IsMockData:   true,
		CreatedAt:    utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(list).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test recipient list: %w", err)
	}

	contacts := make([]*models.Contact, n)
	for i := range contacts {
		contacts[i] = &models.Contact{
			RecipientListID: list.ID,
			TrackingID:      strings.ReplaceAll(uuid.NewString(), "-", ""),
			FirstName:       fmt.Sprintf("Resident%d", i+1),
			LastName:        "Smith",
			AddressLine1:    fmt.Sprintf("%d Elm St", 100+i),
			City:            "Fresno",
			State:           "CA",
			Zip:             "93701",
			Interests:       pq.StringArray{"home improvement"},
			CreatedAt:       utils.UTCNow(),
		}
	}
	if n > 0 {
		if err := tf.DB.DB.CreateInBatches(contacts, 500).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create test contacts: %w", err)
		}
	}
	return list, contacts, nil
}

// CreateTestDesignTemplate creates an empty 6x4 postcard template
func (tf *TestFixtures) CreateTestDesignTemplate(customerID uint) (*models.DesignTemplate, error) {
	template := &models.DesignTemplate{
		UUID:       uuid.New(),
		CustomerID: customerID,
		Name:       "Test postcard",
		Width:      1800,
		Height:     1200,
		CanvasJSON: json.RawMessage(`{"width":1800,"height":1200,"elements":[]}`),
		CreatedAt:  utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test design template: %w", err)
	}
	return template, nil
}

// CreateTestCampaign creates a campaign mailing list with template
func (tf *TestFixtures) CreateTestCampaign(customerID, templateID, listID uint, status models.CampaignStatus) (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:             uuid.New(),
		CustomerID:       customerID,
		Name:             "Test campaign",
		DesignTemplateID: templateID,
		RecipientListID:  listID,
		VariableMappings: models.VariableMappings{"customer-name": "full_name"},
		Status:           status,
		CreatedAt:        utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestTrackingEvents records n events of one type for a campaign
func (tf *TestFixtures) CreateTestTrackingEvents(campaignID uint, contacts []*models.Contact, eventType models.TrackingEventType) error {
	events := make([]*models.TrackingEvent, len(contacts))
	for i, c := range contacts {
		events[i] = &models.TrackingEvent{
			TrackingID: c.TrackingID,
			CampaignID: utils.ToPtr(campaignID),
			Type:       eventType,
			CreatedAt:  utils.UTCNow(),
		}
		if eventType == models.TrackingEventConversion {
			events[i].ConversionType = utils.ToPtr("form_submission")
		}
	}
	if len(events) == 0 {
		return nil
	}
	if err := tf.DB.DB.Create(events).Error; err != nil {
		return fmt.Errorf("failed to create test tracking events: %w", err)
	}
	return nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	if !success {
		audit.ErrorMessage = utils.ToPtr("Test failed action")
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}
	return audit, nil
}
