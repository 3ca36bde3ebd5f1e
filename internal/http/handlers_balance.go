package http

import (
	"net/http"
	"strconv"
)

// handleCurrentBalance serves the running total of an account, defaulting to
// the checking account. ?repair=true re-promotes a lost current pointer; the
// cache only ever holds plain reads.
func (s *Server) handleCurrentBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	repair := queryBool(r, "repair")

	if !repair {
		key := "current:" + strconv.FormatInt(accountID, 10)
		if entry, found := s.balanceCache.Get(key); found {
			respondJSON(ctx, w, http.StatusOK, toBalanceResponse(entry))
			return
		}
		entry, err := s.ledger.CurrentBalance(ctx, accountID, false)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		s.balanceCache.Set(key, entry)
		respondJSON(ctx, w, http.StatusOK, toBalanceResponse(entry))
		return
	}

	entry, err := s.ledger.CurrentBalance(ctx, accountID, true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	s.invalidateReadCaches()
	respondJSON(ctx, w, http.StatusOK, toBalanceResponse(entry))
}

func (s *Server) handleTransactionBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	entries, err := s.ledger.TransactionBalances(ctx, id)
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
