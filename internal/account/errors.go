// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package account

import "errors"

// Sentinel errors surfaced to the API boundary. Infrastructure failures are
// wrapped with oops and never reach callers unwrapped.
var (
	// ErrInvalidInput marks malformed registration input, caught before
	// any store round trip.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrLoginTaken is returned when a registration collides with an
	// existing login. Uniqueness is enforced by the store.
	ErrLoginTaken = errors.New("login already registered")

	// ErrAlreadyLocked is returned when an acquire targets an account that
	// is currently held by another runner.
	ErrAlreadyLocked = errors.New("account already locked")
)
