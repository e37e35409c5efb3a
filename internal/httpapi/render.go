// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acctpool/acctpool/internal/account"
	"github.com/acctpool/acctpool/internal/auth"
	"github.com/acctpool/acctpool/pkg/errutil"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
}

// decode unmarshals the request body into dst, answering 400 on malformed
// JSON. Returns false when the request has already been answered.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Debug("response write failed", "error", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, errorResponse{Detail: detail})
}

func (h *handler) writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
}

// translateError resolves domain errors into status codes at the API
// boundary. Anything unrecognised is an internal error: it is logged with
// its context and answered with a generic body so infrastructure details
// never leak.
func (h *handler) translateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrLoginTaken):
		h.writeError(w, http.StatusBadRequest, "account with this login already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.writeUnauthorized(w)
	case errors.Is(err, account.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrAlreadyLocked):
		h.writeError(w, http.StatusLocked, "account is already locked by another run")
	default:
		errutil.LogError(h.logger, "request failed", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
