package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req categoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	created, err := s.ledger.CreateCategory(ctx, req.Title, req.Description)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := s.ledger.ListCategories(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = toCategoryResponse(c)
	}
	respondJSON(ctx, w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	category, err := s.ledger.GetCategory(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handlePatchCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req categoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := s.ledger.UpdateCategory(ctx, id, ledger.CategoryPatch{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toCategoryResponse(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := s.ledger.DeleteCategory(ctx, id); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMoveCategoryAmount reallocates envelope funds between two categories
// and returns both in their new state.
func (s *Server) handleMoveCategoryAmount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fromID, err := pathID(r, "from_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	toID, err := pathID(r, "to_id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req moveAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	from, to, err := s.ledger.MoveCategoryAmount(ctx, fromID, toID, amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, []categoryResponse{
		toCategoryResponse(from),
		toCategoryResponse(to),
	})
}
