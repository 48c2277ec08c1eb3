package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rl1809/shopping-list/internal/core/domain"
	"github.com/rl1809/shopping-list/internal/core/service"
)

const (
	maxBodyBytes       = 1 << 20
	detailsUnavailable = "details unavailable"
)

// HealthChecker reports whether the durable store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	ledger  *service.LedgerService
	catalog *service.CatalogService
	query   *service.QueryService
	auth    *Authenticator
	health  HealthChecker
	debug   bool
}

type TransactionHTTPRequest struct {
	TransactionID string `json:"transactionid"`
	ItemID        *int64 `json:"itemid"`
	Delta         *int   `json:"delta"`
}

type TransactionHTTPResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionid"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
	Count         int    `json:"count"`
}

type ItemHTTPRequest struct {
	Name string `json:"name"`
}

type ItemHTTPResponse struct {
	Success bool  `json:"success"`
	ItemID  int64 `json:"itemid"`
}

type ErrorHTTPResponse struct {
	Success   bool   `json:"success"`
	ErrorText string `json:"error_text"`
}

func NewHTTPHandler(
	ledger *service.LedgerService,
	catalog *service.CatalogService,
	query *service.QueryService,
	auth *Authenticator,
	health HealthChecker,
	debug bool,
) *HTTPHandler {
	return &HTTPHandler{
		ledger:  ledger,
		catalog: catalog,
		query:   query,
		auth:    auth,
		health:  health,
		debug:   debug,
	}
}

// Routes registers every endpoint on a new ServeMux.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /all", h.All)
	mux.HandleFunc("POST /transaction", h.Transaction)
	mux.HandleFunc("POST /item", h.Item)
	mux.HandleFunc("GET /debug", h.Debug)
	mux.HandleFunc("GET /health", h.HealthCheck)
	return mux
}

func (h *HTTPHandler) All(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.query.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *HTTPHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req TransactionHTTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	txReq, err := transactionRequest(req.TransactionID, req.ItemID, req.Delta, user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.ledger.Apply(r.Context(), txReq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionHTTPResponse{
		Success:       true,
		TransactionID: outcome.TransactionID,
		Outcome:       string(outcome.Status),
		Reason:        string(outcome.Reason),
		Count:         outcome.Count,
	})
}

func (h *HTTPHandler) Item(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Identify(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	var req ItemHTTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.catalog.EnsureItem(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ItemHTTPResponse{Success: true, ItemID: id})
}

func (h *HTTPHandler) Debug(w http.ResponseWriter, r *http.Request) {
	if !h.debug {
		writeJSON(w, http.StatusForbidden, ErrorHTTPResponse{ErrorText: detailsUnavailable})
		return
	}

	user, _ := h.auth.Identify(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
		"headers":     r.Header,
		"user":        user,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, text := classify(err, h.debug)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorHTTPResponse{ErrorText: text})
}

// classify maps a service error to a status code and the text shown to clients.
// Internal failures are only described in debug mode.
func classify(err error, debug bool) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized, domain.ErrAuthenticationRequired.Error()
	case errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusConflict, domain.ErrInvariantViolation.Error()
	}

	if debug {
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, detailsUnavailable
}

// transactionRequest builds a ledger request from wire fields. A missing item id
// or delta is rejected rather than read as zero.
func transactionRequest(txID string, itemID *int64, delta *int, user string) (domain.TransactionRequest, error) {
	if itemID == nil {
		return domain.TransactionRequest{}, domain.NewValidationError("itemid", "required")
	}
	if delta == nil {
		return domain.TransactionRequest{}, domain.NewValidationError("delta", "required")
	}
	return domain.TransactionRequest{
		TransactionID:  txID,
		ItemID:         *itemID,
		Delta:          *delta,
		SubmittingUser: user,
	}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
