// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/acctpool/acctpool/internal/account"
)

// ctxKey is the private type for request-scoped context values.
type ctxKey int

const accountKey ctxKey = iota

// accountFrom extracts the authenticated account from the request context.
func accountFrom(ctx context.Context) (*account.Account, bool) {
	acct, ok := ctx.Value(accountKey).(*account.Account)
	return acct, ok
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Scheme comparison is case-insensitive per RFC 9110.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// requireAuth gates a handler behind bearer token identification. Missing
// headers, invalid tokens, and unresolvable subjects all answer 401 with the
// same body.
func (h *handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeUnauthorized(w)
			return
		}

		acct, err := h.gate.Identify(r.Context(), token)
		if err != nil {
			h.translateError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acct)))
	})
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// countRequests records a per-route, per-status counter for every request.
// A nil metrics sink disables counting.
func (h *handler) countRequests(next http.Handler) http.Handler {
	if h.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Method + " " + r.URL.Path
		h.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

// recordAcquireOutcome bumps the lock acquisition counter.
func (h *handler) recordAcquireOutcome(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "acquired"
	switch {
	case errors.Is(err, account.ErrAlreadyLocked):
		outcome = "conflict"
	case errors.Is(err, account.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	h.metrics.LockAcquisitionsTotal.WithLabelValues(outcome).Inc()
}
