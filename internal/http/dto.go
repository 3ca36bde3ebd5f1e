package http

import (
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// Wire shapes. Amounts travel as two-decimal strings, dates as YYYY-MM-DD.

type transactionResponse struct {
	ID          int64     `json:"id"`
	Payee       string    `json:"payee"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	IsTransfer  bool      `json:"is_transfer"`
	CategoryID  *int64    `json:"category_id"`
	AccountID   int64     `json:"account_id"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Payee:       t.Payee,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Date:        t.Date,
		Description: t.Description,
		Amount:      core.FormatAmount(t.Amount),
		IsTransfer:  t.IsTransfer,
		CategoryID:  t.CategoryID,
		AccountID:   t.AccountID,
	}
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(ts))
	for i, t := range ts {
		out[i] = toTransactionResponse(t)
	}
	return out
}

type accountResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsChecking   bool   `json:"is_checking"`
	IBANTail     string `json:"iban_tail,omitempty"`
	RunningTotal string `json:"running_total"`
}

func toAccountResponse(a ledger.AccountSummary) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		IsChecking:   a.IsChecking,
		IBANTail:     a.IBANTail,
		RunningTotal: core.FormatAmount(a.RunningTotal),
	}
}

type categoryResponse struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AssignedAmount string `json:"assigned_amount"`
	IsStage        bool   `json:"is_stage"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		AssignedAmount: core.FormatAmount(c.AssignedAmount),
		IsStage:        c.IsStage,
	}
}

type balanceResponse struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	EntryTime     time.Time `json:"entry_datetime"`
	Amount        string    `json:"amount"`
	RunningTotal  string    `json:"running_total"`
	IsCurrent     bool      `json:"is_current"`
	TransactionID *int64    `json:"transaction_id"`
}

func toBalanceResponse(e core.BalanceEntry) balanceResponse {
	return balanceResponse{
		ID:            e.ID,
		AccountID:     e.AccountID,
		EntryTime:     e.EntryTime,
		Amount:        core.FormatAmount(e.AmountRecord),
		RunningTotal:  core.FormatAmount(e.RunningTotal),
		IsCurrent:     e.IsCurrent,
		TransactionID: e.TransactionID,
	}
}

type sumResponse struct {
	AccountID *int64 `json:"account_id,omitempty"`
	Sum       string `json:"sum"`
}

type transactionCreateRequest struct {
	Payee       string    `json:"payee"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	CategoryID  *int64    `json:"category_id"`
	AccountID   int64     `json:"account_id"`
}

type transactionUpdateRequest struct {
	Payee       *string    `json:"payee"`
	Date        *core.Date `json:"date"`
	Description *string    `json:"description"`
	Amount      *string    `json:"amount"`
	CategoryID  *int64     `json:"category_id"`
	AccountID   *int64     `json:"account_id"`
}

type transferRequest struct {
	FromAccountID int64     `json:"from_account_id"`
	ToAccountID   int64     `json:"to_account_id"`
	Amount        string    `json:"amount"`
	Date          core.Date `json:"date"`
	Description   string    `json:"description"`
}

type accountTransferRequest struct {
	Amount      string    `json:"amount"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
}

type accountCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IBANTail    string `json:"iban_tail"`
}

type accountUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IBANTail    *string `json:"iban_tail"`
}

type categoryCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type categoryUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type moveAmountRequest struct {
	Amount string `json:"amount"`
}
