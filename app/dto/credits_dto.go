package dto

// CreditBalanceResponse reports the organization's spendable credits in dollars
type CreditBalanceResponse struct {
	Balance         float64 `json:"balance"`
	Frozen          float64 `json:"frozen"`
	SpentOnAudience float64 `json:"spentOnAudience"`
	Currency        string  `json:"currency"`
	LastUpdated     string  `json:"lastUpdated,omitempty"`
}

// DepositCreditsRequest adds credits to a customer's wallet. Admin only.
type DepositCreditsRequest struct {
	AdminID     uint    `json:"-"`
	CustomerID  uint    `json:"customerId" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=255"`
}

// DepositCreditsResponse is the balance after a deposit
type DepositCreditsResponse struct {
	TransactionID string                `json:"transactionId"`
	Balance       CreditBalanceResponse `json:"balance"`
}

// CheckAdminResponse reports the admin claim of the current session
type CheckAdminResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

// CreditHistoryRequest pages through the caller's balance snapshots
type CreditHistoryRequest struct {
	CustomerID uint `json:"-"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
}

// CreditHistoryItem is one balance change with the transaction that caused it
type CreditHistoryItem struct {
	ID              string                 `json:"id"`
	Reason          string                 `json:"reason"`
	Description     string                 `json:"description,omitempty"`
	Balance         float64                `json:"balance"`
	Frozen          float64                `json:"frozen"`
	SpentOnAudience float64                `json:"spentOnAudience"`
	Transaction     *CreditTransactionInfo `json:"transaction,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
}

// CreditTransactionInfo summarizes a credit movement
type CreditTransactionInfo struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
}

// CreditHistoryResponse lists balance changes, newest first
type CreditHistoryResponse struct {
	Items      []CreditHistoryItem `json:"items"`
	Pagination PaginationInfo      `json:"pagination"`
}
