package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
)

const (
	balanceReasonDeposit         = "deposit"
	transactionSourceCredits     = "credits"
	transactionOperationDeposit  = "deposit"
	defaultDepositDescriptionFmt = "Credit deposit of %s"
)

// CreditFlow exposes the organization's credit balance and admin deposits
type CreditFlow interface {
	GetBalance(ctx context.Context, customerID uint) (*dto.CreditBalanceResponse, error)
	Deposit(ctx context.Context, req *dto.DepositCreditsRequest, metadata *ClientMetadata) (*dto.DepositCreditsResponse, error)
	History(ctx context.Context, req *dto.CreditHistoryRequest) (*dto.CreditHistoryResponse, error)
	EnsureWallet(ctx context.Context, customerID uint) (*models.Wallet, error)
}

// CreditFlowImpl implements the credit business flow
type CreditFlowImpl struct {
	customerRepo        repository.CustomerRepository
	walletRepo          repository.WalletRepository
	balanceSnapshotRepo repository.BalanceSnapshotRepository
	transactionRepo     repository.TransactionRepository
	auditRepo           repository.AuditLogRepository
	transactor          repository.Transactor
}

// NewCreditFlow creates a new credit flow instance
func NewCreditFlow(
	customerRepo repository.CustomerRepository,
	walletRepo repository.WalletRepository,
	balanceSnapshotRepo repository.BalanceSnapshotRepository,
	transactionRepo repository.TransactionRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
) CreditFlow {
	return &CreditFlowImpl{
		customerRepo:        customerRepo,
		walletRepo:          walletRepo,
		balanceSnapshotRepo: balanceSnapshotRepo,
		transactionRepo:     transactionRepo,
		auditRepo:           auditRepo,
		transactor:          transactor,
	}
}

// GetBalance returns the latest snapshot. Customers without a wallet have a zero balance.
func (s *CreditFlowImpl) GetBalance(ctx context.Context, customerID uint) (*dto.CreditBalanceResponse, error) {
	if _, err := getCustomer(ctx, s.customerRepo, customerID); err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	wallet, err := s.walletRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to lookup wallet", err)
	}
	if wallet == nil {
		return &dto.CreditBalanceResponse{Currency: utils.USDCurrency}, nil
	}

	snapshot, err := getLatestBalanceSnapshot(ctx, s.balanceSnapshotRepo, wallet.ID)
	if err != nil {
		if IsBalanceSnapshotNotFound(err) {
			return &dto.CreditBalanceResponse{Currency: utils.USDCurrency}, nil
		}
		return nil, NewBusinessError("BALANCE_LOOKUP_FAILED", "Failed to lookup balance", err)
	}

	resp := toCreditBalanceResponse(snapshot)
	return &resp, nil
}

// Deposit credits a customer's wallet, creating it when missing
func (s *CreditFlowImpl) Deposit(ctx context.Context, req *dto.DepositCreditsRequest, metadata *ClientMetadata) (*dto.DepositCreditsResponse, error) {
	amount := utils.DollarsToCents(req.Amount)
	if amount == 0 {
		return nil, NewBusinessError("AMOUNT_TOO_LOW", "Deposit amount must be at least one cent", ErrAmountTooLow)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	wallet, err := s.EnsureWallet(ctx, customer.ID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to lookup wallet", err)
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf(defaultDepositDescriptionFmt, formatDollars(amount))
	}

	var (
		transaction *models.Transaction
		after       *models.BalanceSnapshot
	)
	err = s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.walletRepo.LockForUpdate(txCtx, wallet.ID); err != nil {
			return err
		}
		before, err := getLatestBalanceSnapshot(txCtx, s.balanceSnapshotRepo, wallet.ID)
		if err != nil {
			return err
		}

		correlationID := uuid.New()
		meta, err := json.Marshal(map[string]any{
			"source":    transactionSourceCredits,
			"operation": transactionOperationDeposit,
			"admin_id":  req.AdminID,
		})
		if err != nil {
			return err
		}

		after = &models.BalanceSnapshot{
			CorrelationID:   correlationID,
			WalletID:        wallet.ID,
			CustomerID:      customer.ID,
			FreeBalance:     before.FreeBalance + amount,
			FrozenBalance:   before.FrozenBalance,
			SpentOnAudience: before.SpentOnAudience,
			TotalBalance:    before.FreeBalance + amount + before.FrozenBalance,
			Reason:          balanceReasonDeposit,
			Description:     description,
			Metadata:        meta,
		}

		balanceBefore, err := before.GetBalanceMap()
		if err != nil {
			return err
		}
		balanceAfter, err := after.GetBalanceMap()
		if err != nil {
			return err
		}

		transaction = &models.Transaction{
			CorrelationID: correlationID,
			Type:          models.TransactionTypeDeposit,
			Status:        models.TransactionStatusCompleted,
			Amount:        amount,
			Currency:      utils.USDCurrency,
			WalletID:      wallet.ID,
			CustomerID:    customer.ID,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Description:   description,
			Metadata:      meta,
		}
		if err := s.transactionRepo.Save(txCtx, transaction); err != nil {
			return fmt.Errorf("failed to save deposit transaction: %w", err)
		}
		if err := s.balanceSnapshotRepo.Save(txCtx, after); err != nil {
			return fmt.Errorf("failed to save balance snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCreditsDepositFailed,
			"Credit deposit failed", false, errMessage("Credit deposit failed: %s", err), metadata)
		return nil, NewBusinessError("DEPOSIT_FAILED", "Credit deposit failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCreditsDeposited, description, true, nil, metadata)

	return &dto.DepositCreditsResponse{
		TransactionID: transaction.UUID.String(),
		Balance:       toCreditBalanceResponse(after),
	}, nil
}

// History pages through the wallet's balance snapshots, newest first. Each entry carries the
// transaction sharing its correlation id; the initial snapshot has none.
func (s *CreditFlowImpl) History(ctx context.Context, req *dto.CreditHistoryRequest) (*dto.CreditHistoryResponse, error) {
	if _, err := getCustomer(ctx, s.customerRepo, req.CustomerID); err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}
	page, limit, offset := normalizePage(req.Page, req.Limit)

	wallet, err := s.walletRepo.ByCustomerID(ctx, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to lookup wallet", err)
	}
	if wallet == nil {
		return &dto.CreditHistoryResponse{Items: []dto.CreditHistoryItem{}, Pagination: dto.NewPaginationInfo(0, page, limit)}, nil
	}

	total, err := s.balanceSnapshotRepo.Count(ctx, models.BalanceSnapshotFilter{WalletID: &wallet.ID})
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}
	snapshots, err := s.balanceSnapshotRepo.ByWalletID(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
	}

	items := make([]dto.CreditHistoryItem, 0, len(snapshots))
	for _, snapshot := range snapshots {
		item := dto.CreditHistoryItem{
			ID:              snapshot.UUID.String(),
			Reason:          snapshot.Reason,
			Description:     snapshot.Description,
			Balance:         centsToDollars(snapshot.FreeBalance),
			Frozen:          centsToDollars(snapshot.FrozenBalance),
			SpentOnAudience: centsToDollars(snapshot.SpentOnAudience),
			CreatedAt:       snapshot.CreatedAt.UTC().Format(time.RFC3339),
		}

		transactions, err := s.transactionRepo.ByCorrelationID(ctx, snapshot.CorrelationID)
		if err != nil {
			return nil, NewBusinessError("CREDIT_HISTORY_FAILED", "Failed to load credit history", err)
		}
		if len(transactions) > 0 {
			tx := transactions[0]
			item.Transaction = &dto.CreditTransactionInfo{
				ID:     tx.UUID.String(),
				Type:   string(tx.Type),
				Status: string(tx.Status),
				Amount: centsToDollars(tx.Amount),
			}
		}
		items = append(items, item)
	}

	return &dto.CreditHistoryResponse{Items: items, Pagination: dto.NewPaginationInfo(total, page, limit)}, nil
}

// EnsureWallet returns the customer's wallet, creating one with a zero snapshot when missing
func (s *CreditFlowImpl) EnsureWallet(ctx context.Context, customerID uint) (*models.Wallet, error) {
	wallet, err := s.walletRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	wallet = &models.Wallet{
		UUID:       uuid.New(),
		CustomerID: customerID,
		Metadata:   json.RawMessage(`{}`),
	}
	if err := s.walletRepo.SaveWithInitialSnapshot(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func toCreditBalanceResponse(snapshot *models.BalanceSnapshot) dto.CreditBalanceResponse {
	return dto.CreditBalanceResponse{
		Balance:         centsToDollars(snapshot.FreeBalance),
		Frozen:          centsToDollars(snapshot.FrozenBalance),
		SpentOnAudience: centsToDollars(snapshot.SpentOnAudience),
		Currency:        utils.USDCurrency,
		LastUpdated:     snapshot.CreatedAt.UTC().Format(time.RFC3339),
	}
}
