package entity

import "errors"

var (
	// Party errors
	ErrPartyNotFound   = errors.New("party not found")
	ErrPartyClosed     = errors.New("party has already ended")
	ErrInvalidWindow   = errors.New("party end time must be after start time")
	ErrInvalidCapacity = errors.New("party capacity must be positive")

	// Guest request errors
	ErrRequestNotFound  = errors.New("guest request not found")
	ErrDuplicateRequest = errors.New("guest request already exists")
	ErrCapacityExceeded = errors.New("party capacity exceeded")

	// Ledger errors
	ErrEarningsNotFound      = errors.New("host earnings not found")
	ErrDuplicateTransaction  = errors.New("duplicate transaction")
	ErrNoMatchingTransaction = errors.New("no matching transaction")

	// Payout errors
	ErrTransferFailed = errors.New("bank transfer failed")
	ErrBankNotSetup   = errors.New("bank account not set up")
	ErrBelowThreshold = errors.New("pending earnings below payout threshold")
	ErrPayoutNotFound = errors.New("payout record not found")

	// General errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabaseError = errors.New("database error")
	ErrUnauthorized  = errors.New("unauthorized access")
	ErrForbidden     = errors.New("forbidden operation")
)
