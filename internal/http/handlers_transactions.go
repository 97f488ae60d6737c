package http

import (
	"context"
	"net/http"

	"pocketbook/internal/cache"
	"pocketbook/internal/core"
	"pocketbook/internal/services"
)

func identity(s string) string { return s }

func transactionFilter(r *http.Request) (services.TransactionFilter, error) {
	q := r.URL.Query()
	page, err := queryInt(q, "page")
	if err != nil {
		return services.TransactionFilter{}, err
	}
	limit, err := queryInt(q, "limit")
	if err != nil {
		return services.TransactionFilter{}, err
	}
	return services.TransactionFilter{
		Page:            page,
		Limit:           limit,
		Category:        queryString(q, "category"),
		FromDate:        queryString(q, "from_date"),
		ToDate:          queryString(q, "to_date"),
		TransactionType: queryString(q, "transaction_type"),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	key := cache.TransactionListKey(userID.String(),
		orDefault(f.Page, 1), orDefault(f.Limit, services.DefaultTransactionLimit),
		deref(f.Category, identity), deref(f.FromDate, identity),
		deref(f.ToDate, identity), deref(f.TransactionType, identity))

	res, err := cache.Fetch(r.Context(), s.cache, key, cache.ListTTL,
		func(ctx context.Context) (*services.ListResult[core.Transaction], error) {
			return s.svc.Transactions.List(ctx, userID, f)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, t)
}

func decodeTransaction(w http.ResponseWriter, r *http.Request) (services.TransactionInput, error) {
	var in services.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Description = sanitizeInput(in.Description)
	in.Category = sanitizeInput(in.Category)
	in.Amount = sanitizeInput(in.Amount)
	in.TransactionType = sanitizeInput(in.TransactionType)
	in.TransactionDate = sanitizeInput(in.TransactionDate)
	return in, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	t, err := s.svc.Transactions.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateTransactions(r.Context(), userID)
	created(w, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	t, err := s.svc.Transactions.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateTransactions(r.Context(), userID)
	ok(w, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	if err := s.svc.Transactions.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateTransactions(r.Context(), userID)
	noContent(w)
}
