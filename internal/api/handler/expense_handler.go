package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"expense_tracker/internal/api/middleware"
	"expense_tracker/internal/app/service"
	"expense_tracker/internal/common"

	"github.com/go-chi/chi/v5"
)

type ExpenseHandler struct {
	expenseService *service.ExpenseService
}

func NewExpenseHandler(expenseService *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listExpenses)
	r.Post("/", h.createExpense)
	r.Get("/summary", h.summary)

	r.Get("/{expenseID}", h.getExpense)
	r.Put("/{expenseID}", h.updateExpense)
	r.Delete("/{expenseID}", h.deleteExpense)

	r.Get("/category/{category}", h.getByCategory)
	r.Put("/category/{category}", h.updateByCategory)
	r.Delete("/category/{category}", h.deleteByCategory)
}

func (h *ExpenseHandler) createExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	expense, err := h.expenseService.CreateExpense(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	q := r.URL.Query()
	req := service.ListExpensesRequest{
		Category:   q.Get("category"),
		SearchTerm: q.Get("q"),
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	var err error
	req.From, req.To, err = parseDateRange(q)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.expenseService.ListExpenses(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ExpenseHandler) getExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	expense, err := h.expenseService.GetExpense(r.Context(), userID, chi.URLParam(r, "expenseID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) updateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	expense, err := h.expenseService.UpdateExpense(r.Context(), userID, chi.URLParam(r, "expenseID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	if err := h.expenseService.DeleteExpense(r.Context(), userID, chi.URLParam(r, "expenseID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) getByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	expenses, err := h.expenseService.GetExpensesByCategory(r.Context(), userID, categoryParam(r))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) updateByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	expenses, err := h.expenseService.UpdateExpensesByCategory(r.Context(), userID, categoryParam(r), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) deleteByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	category := categoryParam(r)
	deleted, err := h.expenseService.DeleteExpensesByCategory(r.Context(), userID, category)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{
		Message: fmt.Sprintf("Deleted %d expenses in category '%s'.", deleted, category),
	})
}

func (h *ExpenseHandler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	from, to, err := parseDateRange(r.URL.Query())
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.expenseService.Summarize(r.Context(), userID, from, to)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// categoryParam returns the category path segment. Chi hands back the raw
// (still escaped) segment when the URL was percent-encoded.
func categoryParam(r *http.Request) string {
	raw := chi.URLParam(r, "category")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// parseDateRange reads optional from/to query params. Both accept RFC 3339
// timestamps or plain dates (2006-01-02); "to" given as a plain date covers
// the whole day.
func parseDateRange(q url.Values) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if s := q.Get("from"); s != "" {
		t, _, err := parseFlexibleTime(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid 'from' date %q", s)
		}
		from = &t
	}
	if s := q.Get("to"); s != "" {
		t, dateOnly, err := parseFlexibleTime(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid 'to' date %q", s)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("'from' date cannot be after 'to' date")
	}
	return from, to, nil
}

func parseFlexibleTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
