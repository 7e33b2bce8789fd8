package domain

import "errors"

var (
	// ErrInvalidMerchant means the merchant does not exist or is not active.
	ErrInvalidMerchant = errors.New("merchant not found or inactive")

	// ErrInvalidInput covers malformed creation requests (email, chain, amount).
	ErrInvalidInput = errors.New("invalid input")

	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned for any proof submission against a
	// terminal session.
	ErrSessionClosed = errors.New("session closed")

	// ErrAlreadyProcessing is returned to the loser of a concurrent claim on
	// the same session. It signals a race, not a system fault.
	ErrAlreadyProcessing = errors.New("verification already in progress")

	ErrUnsupportedChain = errors.New("unsupported chain")
)
