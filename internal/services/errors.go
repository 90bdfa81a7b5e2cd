// Package services defines the business logic for identity and chat
// operations. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Identity errors.
var (
	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("username already exists")

	// ErrUserNotFound indicates that the requested user is not registered.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyUsername is returned when an operation that needs an identity
	// is given a blank username.
	ErrEmptyUsername = errors.New("username is empty")

	// ErrInvalidSetting is returned when a numeric settings field is outside
	// its allowed range. The offending field is left unchanged; the rest of
	// the update is still applied.
	ErrInvalidSetting = errors.New("setting value out of range")
)

// Chat errors.
var (
	// ErrEmptySessionID is returned when a room operation is given a blank
	// session id.
	ErrEmptySessionID = errors.New("session id is empty")

	// ErrEmptyMessage is returned when a post or edit carries no content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrMessageTooLong is returned when content exceeds the configured
	// maximum rune length.
	ErrMessageTooLong = errors.New("message content too long")

	// ErrMessageNotFound indicates that the message id does not resolve
	// within the session's ledger.
	ErrMessageNotFound = errors.New("message not found")

	// ErrUnauthorized is returned when a requester tries to edit or delete
	// someone else's message.
	ErrUnauthorized = errors.New("not the message author")
)
