// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/acctpool/acctpool/internal/account"
	"github.com/acctpool/acctpool/internal/auth"
	"github.com/acctpool/acctpool/internal/observability"
)

// handler holds the API's collaborators and implements the route handlers.
type handler struct {
	accounts *account.Service
	gate     *auth.Gate
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// routes builds the API router. Protected routes run behind requireAuth.
func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.Handle("GET /api/users/me", h.requireAuth(h.handleMe))
	mux.Handle("GET /api/users", h.requireAuth(h.handleList))
	mux.Handle("POST /api/users/acquire", h.requireAuth(h.handleAcquire))
	mux.Handle("POST /api/users/release", h.requireAuth(h.handleRelease))

	return h.countRequests(mux)
}

type registerRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	ProjectID   string `json:"project_id"`
	Environment string `json:"environment"`
	DomainType  string `json:"domain_type"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type lockRequest struct {
	AccountID string `json:"account_id"`
}

// accountResponse is the outward shape of an account. The credential hash
// has no field here, so it cannot leak through any read path.
type accountResponse struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Login       string     `json:"login"`
	ProjectID   string     `json:"project_id"`
	Environment string     `json:"environment"`
	DomainType  string     `json:"domain_type"`
	LockTime    *time.Time `json:"lock_time"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:          a.ID.String(),
		CreatedAt:   a.CreatedAt,
		Login:       a.Login,
		ProjectID:   a.ProjectID.String(),
		Environment: string(a.Environment),
		DomainType:  string(a.DomainType),
		LockTime:    a.LockTime,
	}
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	projectID, err := ulid.Parse(req.ProjectID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "project_id must be a valid ULID")
		return
	}

	acct, err := h.accounts.Register(r.Context(), account.RegisterParams{
		Login:       req.Login,
		Password:    req.Password,
		ProjectID:   projectID,
		Environment: account.Environment(req.Environment),
		DomainType:  account.DomainType(req.DomainType),
	})
	if err != nil {
		h.translateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.gate.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.translateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.List(r.Context())
	if err != nil {
		h.translateError(w, err)
		return
	}

	resp := make([]accountResponse, 0, len(accts))
	for _, a := range accts {
		resp = append(resp, toAccountResponse(a))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := ulid.Parse(req.AccountID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "account_id must be a valid ULID")
		return
	}

	acct, err := h.accounts.Acquire(r.Context(), id)
	if err != nil {
		h.recordAcquireOutcome(err)
		h.translateError(w, err)
		return
	}

	h.recordAcquireOutcome(nil)
	h.writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := ulid.Parse(req.AccountID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "account_id must be a valid ULID")
		return
	}

	acct, err := h.accounts.Release(r.Context(), id)
	if err != nil {
		h.translateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toAccountResponse(acct))
}
