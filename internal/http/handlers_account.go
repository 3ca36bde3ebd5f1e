package http

import (
	"net/http"

	"bilancio/internal/ledger"
)

const summaryCacheKey = "account_summaries"

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req accountCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	created, err := s.ledger.CreateAccount(ctx, req.Name, req.Description, req.IBANTail)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, found := s.summaryCache.Get(summaryCacheKey)
	if !found {
		var err error
		summaries, err = s.ledger.ListAccountSummaries(ctx)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		s.summaryCache.Set(summaryCacheKey, summaries)
	}

	out := make([]accountResponse, len(summaries))
	for i, a := range summaries {
		out[i] = toAccountResponse(a)
	}
	respondJSON(ctx, w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	summary, err := s.ledger.GetAccountSummary(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toAccountResponse(summary))
}

func (s *Server) handlePatchAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req accountUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := s.ledger.UpdateAccount(ctx, id, ledger.AccountPatch{
		Name:        req.Name,
		Description: req.Description,
		IBANTail:    req.IBANTail,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := s.ledger.DeleteAccount(ctx, id); err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccountTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fromID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	toID, err := pathID(r, "to_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req accountTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	s.runTransfer(w, r, fromID, toID, req)
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	entries, err := s.ledger.BalanceHistory(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	out := make([]balanceResponse, len(entries))
	for i, e := range entries {
		out[i] = toBalanceResponse(e)
	}
	respondJSON(ctx, w, http.StatusOK, out)
}
