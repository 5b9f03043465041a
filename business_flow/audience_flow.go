package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	balanceReasonAudiencePurchase = "audience_purchase"
	transactionSourceAudience     = "audience"
	transactionOperationPurchase  = "purchase"
)

// AudienceFlow handles counting, pricing, purchasing and saving audiences
type AudienceFlow interface {
	Count(ctx context.Context, req *dto.AudienceCountRequest) (*dto.AudienceCountResponse, error)
	Purchase(ctx context.Context, req *dto.PurchaseAudienceRequest, metadata *ClientMetadata) (*dto.PurchaseAudienceResponse, error)
	Save(ctx context.Context, req *dto.SaveAudienceRequest, metadata *ClientMetadata) (*dto.SavedAudienceResponse, error)
	ListSaved(ctx context.Context, req *dto.ListSavedAudiencesRequest) (*dto.ListSavedAudiencesResponse, error)
}

// AudienceFlowImpl implements the audience business flow
type AudienceFlowImpl struct {
	customerRepo        repository.CustomerRepository
	walletRepo          repository.WalletRepository
	balanceSnapshotRepo repository.BalanceSnapshotRepository
	transactionRepo     repository.TransactionRepository
	auditRepo           repository.AuditLogRepository
	savedAudienceRepo   repository.SavedAudienceRepository
	recipientListRepo   repository.RecipientListRepository
	contactRepo         repository.ContactRepository
	transactor          repository.Transactor
	countCache          repository.AudienceCountCache
	provider            services.ContactProvider
	publisher           services.EventPublisher
	pricer              *Pricer
	countTTL            time.Duration
}

// NewAudienceFlow creates a new audience flow instance. countCache may be nil.
func NewAudienceFlow(
	customerRepo repository.CustomerRepository,
	walletRepo repository.WalletRepository,
	balanceSnapshotRepo repository.BalanceSnapshotRepository,
	transactionRepo repository.TransactionRepository,
	auditRepo repository.AuditLogRepository,
	savedAudienceRepo repository.SavedAudienceRepository,
	recipientListRepo repository.RecipientListRepository,
	contactRepo repository.ContactRepository,
	transactor repository.Transactor,
	countCache repository.AudienceCountCache,
	provider services.ContactProvider,
	publisher services.EventPublisher,
	pricer *Pricer,
	countTTL time.Duration,
) AudienceFlow {
	return &AudienceFlowImpl{
		customerRepo:        customerRepo,
		walletRepo:          walletRepo,
		balanceSnapshotRepo: balanceSnapshotRepo,
		transactionRepo:     transactionRepo,
		auditRepo:           auditRepo,
		savedAudienceRepo:   savedAudienceRepo,
		recipientListRepo:   recipientListRepo,
		contactRepo:         contactRepo,
		transactor:          transactor,
		countCache:          countCache,
		provider:            provider,
		publisher:           publisher,
		pricer:              pricer,
		countTTL:            countTTL,
	}
}

// Count estimates and prices the audience matching the filters. Margin is only set for admins.
func (s *AudienceFlowImpl) Count(ctx context.Context, req *dto.AudienceCountRequest) (*dto.AudienceCountResponse, error) {
	filters, err := s.prepareFilters(req.AudienceFilters)
	if err != nil {
		return nil, err
	}

	hash := filters.Hash()
	count, cached, err := s.count(ctx, filters, hash)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_COUNT_FAILED", "Failed to count audience", err)
	}

	quote := s.pricer.Quote(count)
	resp := &dto.AudienceCountResponse{
		Count:              quote.Count,
		UserCostPerContact: quote.UserCostPerContact,
		UserCharge:         centsToDollars(quote.UserCharge),
		Quality:            ClassifyAudience(quote.Count),
		FiltersHash:        hash,
		Cached:             cached,
	}
	if req.IsAdmin {
		resp.Margin = utils.ToPtr(signedCentsToDollars(quote.Margin))
	}

	return resp, nil
}

// Purchase re-counts and re-prices the audience, checks the balance, buys the contacts and
// records the recipient list, debit transaction and balance snapshot in one DB transaction.
func (s *AudienceFlowImpl) Purchase(ctx context.Context, req *dto.PurchaseAudienceRequest, metadata *ClientMetadata) (*dto.PurchaseAudienceResponse, error) {
	if req.MaxContacts <= 0 {
		return nil, NewBusinessError("MAX_CONTACTS_INVALID", "maxContacts must be positive", ErrMaxContactsInvalid)
	}

	filters, err := s.prepareFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	resp, err := s.purchase(ctx, &customer, filters, req)
	if err != nil {
		audiencePurchasesTotal.WithLabelValues("failed").Inc()
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionAudiencePurchaseFailed,
			"Audience purchase failed", false, errMessage("Audience purchase failed: %s", err), metadata)
		return nil, err
	}

	audiencePurchasesTotal.WithLabelValues("succeeded").Inc()
	contactsPurchasedTotal.WithLabelValues(strconv.FormatBool(resp.IsMockData)).Add(float64(resp.ActualContactsImported))

	msg := fmt.Sprintf("Purchased %d contacts into recipient list %s", resp.ActualContactsImported, resp.RecipientListID)
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionAudiencePurchased, msg, true, nil, metadata)

	event := services.NewEvent(services.EventAudiencePurchased, customer.ID, map[string]any{
		"recipient_list_id": resp.RecipientListID,
		"contacts":          resp.ActualContactsImported,
		"charged":           resp.Charged,
		"is_mock_data":      resp.IsMockData,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s event: %v", event.Type, err)
	}

	return resp, nil
}

func (s *AudienceFlowImpl) purchase(ctx context.Context, customer *models.Customer, filters models.AudienceFilters, req *dto.PurchaseAudienceRequest) (*dto.PurchaseAudienceResponse, error) {
	wallet, err := getWallet(ctx, s.walletRepo, customer.ID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to lookup wallet", err)
	}

	// The quoted count on the client may be stale, so count again without the cache.
	available, err := s.providerCount(ctx, filters)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_COUNT_FAILED", "Failed to count audience", err)
	}
	if s.countCache != nil {
		if err := s.countCache.Set(ctx, filters.Hash(), available, s.countTTL); err != nil {
			log.Printf("failed to refresh audience count cache: %v", err)
		}
	}

	requested := s.pricer.PurchasableCount(available, req.MaxContacts)
	if requested == 0 {
		return nil, NewBusinessError("NO_CONTACTS_AVAILABLE", "No contacts match the filters", ErrNoContactsAvailable)
	}

	quote := s.pricer.Quote(requested)
	snapshot, err := getLatestBalanceSnapshot(ctx, s.balanceSnapshotRepo, wallet.ID)
	if err != nil {
		return nil, NewBusinessError("BALANCE_LOOKUP_FAILED", "Failed to lookup balance", err)
	}
	if !snapshot.IsBalanceSufficient(quote.UserCharge) {
		return nil, NewBusinessErrorf("INSUFFICIENT_FUNDS", "Insufficient credits: need %s, have %s", ErrInsufficientFunds,
			formatDollars(quote.UserCharge), formatDollars(snapshot.FreeBalance))
	}

	batch, err := s.provider.FetchContacts(ctx, filters, int(requested))
	if err != nil {
		return nil, NewBusinessError("CONTACT_FETCH_FAILED", "Failed to fetch contacts", providerError(err))
	}
	if len(batch.Contacts) == 0 {
		return nil, NewBusinessError("NO_CONTACTS_AVAILABLE", "No contacts match the filters", ErrNoContactsAvailable)
	}

	// Bill what was actually imported.
	charge := s.pricer.Quote(int64(len(batch.Contacts)))

	name := fmt.Sprintf("Audience %s (%s contacts)", utils.UTCNow().Format("2006-01-02"), humanize.Comma(int64(len(batch.Contacts))))
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	list := &models.RecipientList{
		CustomerID:   customer.ID,
		Name:         name,
		Source:       models.RecipientListSourcePurchase,
		Filters:      filters,
		ContactCount: len(batch.Contacts),
		IsMockData:   batch.IsMock,
	}

	var after *models.BalanceSnapshot
	err = s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		// Purchases on one wallet serialize on the wallet row lock.
		if err := s.walletRepo.LockForUpdate(txCtx, wallet.ID); err != nil {
			return err
		}
		before, err := getLatestBalanceSnapshot(txCtx, s.balanceSnapshotRepo, wallet.ID)
		if err != nil {
			return err
		}
		if !before.IsBalanceSufficient(charge.UserCharge) {
			return ErrInsufficientFunds
		}

		if err := s.recipientListRepo.Save(txCtx, list); err != nil {
			return fmt.Errorf("failed to save recipient list: %w", err)
		}

		contacts, err := buildContacts(list.ID, batch.Contacts)
		if err != nil {
			return err
		}
		if err := s.contactRepo.SaveBatch(txCtx, contacts); err != nil {
			return fmt.Errorf("failed to save contacts: %w", err)
		}

		after, err = s.debit(txCtx, wallet, customer, before, charge, list)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, NewBusinessError("INSUFFICIENT_FUNDS", "Insufficient credits", err)
		}
		return nil, NewBusinessError("AUDIENCE_PURCHASE_FAILED", "Audience purchase failed", err)
	}

	return &dto.PurchaseAudienceResponse{
		RecipientListID:        list.UUID.String(),
		ContactCount:           available,
		ActualContactsImported: len(batch.Contacts),
		IsMockData:             batch.IsMock,
		Charged:                centsToDollars(charge.UserCharge),
		RemainingBalance:       centsToDollars(after.FreeBalance),
	}, nil
}

// debit writes the completed debit transaction and the resulting balance snapshot
func (s *AudienceFlowImpl) debit(ctx context.Context, wallet *models.Wallet, customer *models.Customer, before *models.BalanceSnapshot, charge Quote, list *models.RecipientList) (*models.BalanceSnapshot, error) {
	correlationID := uuid.New()
	description := fmt.Sprintf("Purchase of %d contacts for recipient list %s", charge.Count, list.UUID)

	metadata, err := json.Marshal(map[string]any{
		"source":             transactionSourceAudience,
		"operation":          transactionOperationPurchase,
		"filters_hash":       list.Filters.Hash(),
		"contacts":           charge.Count,
		"user_cost_per_unit": charge.UserCostPerContact,
		"provider_cost":      charge.ProviderCost,
		"is_mock_data":       list.IsMockData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	after := &models.BalanceSnapshot{
		CorrelationID:   correlationID,
		WalletID:        wallet.ID,
		CustomerID:      customer.ID,
		FreeBalance:     before.FreeBalance - charge.UserCharge,
		FrozenBalance:   before.FrozenBalance,
		SpentOnAudience: before.SpentOnAudience + charge.UserCharge,
		TotalBalance:    before.FreeBalance - charge.UserCharge + before.FrozenBalance,
		Reason:          balanceReasonAudiencePurchase,
		Description:     description,
		Metadata:        metadata,
	}

	balanceBefore, err := before.GetBalanceMap()
	if err != nil {
		return nil, err
	}
	balanceAfter, err := after.GetBalanceMap()
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		CorrelationID:   correlationID,
		Type:            models.TransactionTypeDebit,
		Status:          models.TransactionStatusCompleted,
		Amount:          charge.UserCharge,
		Currency:        utils.USDCurrency,
		WalletID:        wallet.ID,
		CustomerID:      customer.ID,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		RecipientListID: &list.ID,
		Description:     description,
		Metadata:        metadata,
	}
	if err := s.transactionRepo.Save(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to save debit transaction: %w", err)
	}
	if err := s.balanceSnapshotRepo.Save(ctx, after); err != nil {
		return nil, fmt.Errorf("failed to save balance snapshot: %w", err)
	}
	return after, nil
}

// Save stores a named snapshot of the filters with the last known count
func (s *AudienceFlowImpl) Save(ctx context.Context, req *dto.SaveAudienceRequest, metadata *ClientMetadata) (*dto.SavedAudienceResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("SAVED_AUDIENCE_NAME_REQUIRED", "Audience name is required", ErrSavedAudienceName)
	}

	filters, err := s.prepareFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	saved := &models.SavedAudience{
		CustomerID:  customer.ID,
		Name:        name,
		Filters:     filters,
		FiltersHash: filters.Hash(),
	}
	if s.countCache != nil {
		if count, ok, err := s.countCache.Get(ctx, saved.FiltersHash); err == nil && ok {
			saved.LastCount = &count
		}
	}

	if err := s.savedAudienceRepo.Save(ctx, saved); err != nil {
		return nil, NewBusinessError("SAVE_AUDIENCE_FAILED", "Failed to save audience", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionAudienceSaved,
		fmt.Sprintf("Saved audience %q", name), true, nil, metadata)

	resp := toSavedAudienceResponse(saved)
	return &resp, nil
}

// ListSaved pages through the customer's saved audiences, newest first
func (s *AudienceFlowImpl) ListSaved(ctx context.Context, req *dto.ListSavedAudiencesRequest) (*dto.ListSavedAudiencesResponse, error) {
	page, limit, offset := normalizePage(req.Page, req.Limit)

	filter := models.SavedAudienceFilter{CustomerID: &req.CustomerID}
	total, err := s.savedAudienceRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_SAVED_AUDIENCES_FAILED", "Failed to list saved audiences", err)
	}
	rows, err := s.savedAudienceRepo.ListByCustomer(ctx, req.CustomerID, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_SAVED_AUDIENCES_FAILED", "Failed to list saved audiences", err)
	}

	items := make([]dto.SavedAudienceResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSavedAudienceResponse(row))
	}
	return &dto.ListSavedAudiencesResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(total, page, limit),
	}, nil
}

func (s *AudienceFlowImpl) prepareFilters(in models.AudienceFilters) (models.AudienceFilters, error) {
	filters := in.Normalized()
	if filters.IsEmpty() {
		return filters, NewBusinessError("EMPTY_FILTERS", "At least one filter criterion is required", ErrEmptyFilters)
	}
	if err := filters.Validate(); err != nil {
		return filters, NewBusinessError("INVALID_FILTERS", err.Error(), fmt.Errorf("%w: %w", ErrInvalidFilters, err))
	}
	return filters, nil
}

// count consults the cache before the provider. Cache failures degrade to a provider call.
func (s *AudienceFlowImpl) count(ctx context.Context, filters models.AudienceFilters, hash string) (int64, bool, error) {
	if s.countCache != nil {
		count, ok, err := s.countCache.Get(ctx, hash)
		switch {
		case err != nil:
			log.Printf("audience count cache read failed: %v", err)
		case ok:
			audienceCountsTotal.WithLabelValues("hit").Inc()
			return count, true, nil
		}
	}
	audienceCountsTotal.WithLabelValues("miss").Inc()

	count, err := s.providerCount(ctx, filters)
	if err != nil {
		return 0, false, err
	}

	if s.countCache != nil {
		if err := s.countCache.Set(ctx, hash, count, s.countTTL); err != nil {
			log.Printf("audience count cache write failed: %v", err)
		}
	}
	return count, false, nil
}

func (s *AudienceFlowImpl) providerCount(ctx context.Context, filters models.AudienceFilters) (int64, error) {
	count, err := s.provider.Count(ctx, filters)
	if err != nil {
		return 0, providerError(err)
	}
	return count, nil
}

// providerError maps provider failures onto the business sentinel while keeping cancellation intact
func providerError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func buildContacts(recipientListID uint, in []services.ProviderContact) ([]*models.Contact, error) {
	contacts := make([]*models.Contact, 0, len(in))
	for _, pc := range in {
		trackingID, err := newTrackingID()
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, &models.Contact{
			RecipientListID: recipientListID,
			TrackingID:      trackingID,
			FirstName:       pc.FirstName,
			LastName:        pc.LastName,
			AddressLine1:    pc.AddressLine1,
			AddressLine2:    pc.AddressLine2,
			City:            pc.City,
			State:           strings.ToUpper(pc.State),
			Zip:             pc.Zip,
			Phone:           pc.Phone,
			Interests:       pc.Interests,
		})
	}
	return contacts, nil
}

// newTrackingID returns 32 hex characters
func newTrackingID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate tracking id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func toSavedAudienceResponse(s *models.SavedAudience) dto.SavedAudienceResponse {
	return dto.SavedAudienceResponse{
		ID:          s.UUID.String(),
		Name:        s.Name,
		Filters:     s.Filters,
		FiltersHash: s.FiltersHash,
		LastCount:   s.LastCount,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

func formatDollars(cents uint64) string {
	return "$" + humanize.FormatFloat("#,###.##", centsToDollars(cents))
}
