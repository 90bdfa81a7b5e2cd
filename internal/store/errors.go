// Package store implements the in-memory state layer: the identity store,
// the session registry with its per-session message ledgers, the typing
// presence tracker, and the idempotency replay cache.
//
// Every type in this package is safe for concurrent use. State for
// different sessions never shares a lock, so traffic in one room does not
// contend with traffic in another.
//
// Error semantics follow the thin-layer approach: stores return the
// sentinel errors below and no business logic of their own; the service
// layer maps them to its user-facing errors.
package store

import "errors"

var (
	// ErrUserExists is returned by Register when the username is taken.
	ErrUserExists = errors.New("username already registered")

	// ErrUserNotFound is returned for lookups that require a registered user.
	ErrUserNotFound = errors.New("user not found")

	// ErrMessageNotFound is returned when a message id does not resolve
	// within the ledger.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotAuthor is returned when a requester tries to edit or delete a
	// message they did not write.
	ErrNotAuthor = errors.New("requester is not the message author")
)
