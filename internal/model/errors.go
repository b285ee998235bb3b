package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionClosing       = errors.New("session is closing")
	ErrInsufficientCaptains = errors.New("at least two captains are required")

	// Role resolution errors
	ErrSecretNotFound = errors.New("secret does not match any role")

	// Draft errors
	ErrCaptainNotFound = errors.New("captain not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrPlayerTaken     = errors.New("player has already been picked")
	ErrNotCaptainTurn  = errors.New("not this captain's turn")

	// ErrInconsistentTurn means the current turn does not belong to the session's
	// captains. It is never caused by a client.
	ErrInconsistentTurn = errors.New("internal: turn captain missing from captain order")

	// Result archive errors
	ErrResultNotFound = errors.New("draft result not found")
)
