package http

import (
	"fmt"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transactionCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	created, err := s.ledger.CreateTransaction(ctx, ledger.NewTransaction{
		Payee:       req.Payee,
		Date:        req.Date,
		Description: req.Description,
		Amount:      amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var transactions []core.Transaction
	if accountID > 0 {
		transactions, err = s.ledger.ListAccountTransactions(ctx, accountID)
	} else {
		transactions, err = s.ledger.ListTransactions(ctx)
	}
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toTransactionResponses(transactions))
}

func (s *Server) handleSumTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	sum, err := s.ledger.SumTransactions(ctx, accountID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	resp := sumResponse{Sum: core.FormatAmount(sum)}
	if accountID > 0 {
		resp.AccountID = &accountID
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	transaction, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toTransactionResponse(transaction))
}

// handleReplaceTransaction is the full-update variant: the mutable fields are
// all required, so the row ends up exactly as submitted.
func (s *Server) handleReplaceTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req transactionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	switch {
	case req.Payee == nil:
		respondError(ctx, w, fmt.Errorf("%w: payee is required", core.ErrInvalidInput))
		return
	case req.Date == nil:
		respondError(ctx, w, fmt.Errorf("%w: date is required", core.ErrInvalidInput))
		return
	case req.Amount == nil:
		respondError(ctx, w, fmt.Errorf("%w: amount is required", core.ErrInvalidInput))
		return
	case req.AccountID == nil:
		respondError(ctx, w, fmt.Errorf("%w: account_id is required", core.ErrInvalidInput))
		return
	}

	s.applyTransactionPatch(w, r, id, req)
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req transactionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	s.applyTransactionPatch(w, r, id, req)
}

func (s *Server) applyTransactionPatch(w http.ResponseWriter, r *http.Request, id int64, req transactionUpdateRequest) {
	ctx := r.Context()

	patch := ledger.TransactionPatch{
		Payee:       req.Payee,
		Date:        req.Date,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
	}
	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		patch.Amount = &amount
	}

	updated, err := s.ledger.UpdateTransaction(ctx, id, patch)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	s.runTransfer(w, r, req.FromAccountID, req.ToAccountID, accountTransferRequest{
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
	})
}

func (s *Server) runTransfer(w http.ResponseWriter, r *http.Request, fromID, toID int64, req accountTransferRequest) {
	ctx := r.Context()

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	legs, err := s.ledger.Transfer(ctx, ledger.NewTransfer{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Date:          req.Date,
		Description:   req.Description,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusCreated, toTransactionResponses(legs))
}
