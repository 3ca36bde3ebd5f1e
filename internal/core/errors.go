package core

import (
	"errors"
	"fmt"
)

// Failure classes of the ledger engine. Lower layers wrap these with entity
// context; the HTTP boundary maps each class to a status code exactly once.
var (
	ErrNotFound        = errors.New("not found")
	ErrNegativeBalance = errors.New("balance would go negative")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
)

// Specific validation failures, all of class ErrInvalidInput.
var (
	ErrZeroAmount        = fmt.Errorf("%w: amount cannot be zero", ErrInvalidInput)
	ErrAmountPrecision   = fmt.Errorf("%w: amount allows at most two decimals", ErrInvalidInput)
	ErrEmptyDate         = fmt.Errorf("%w: date cannot be empty", ErrInvalidInput)
	ErrFutureDate        = fmt.Errorf("%w: date cannot be in the future", ErrInvalidInput)
	ErrPayeeLength       = fmt.Errorf("%w: payee must be 2-100 characters", ErrInvalidInput)
	ErrNameLength        = fmt.Errorf("%w: account name must be 2-30 characters", ErrInvalidInput)
	ErrTitleLength       = fmt.Errorf("%w: category title must be 2-40 characters", ErrInvalidInput)
	ErrDescriptionLength = fmt.Errorf("%w: description too long", ErrInvalidInput)
	ErrIBANTail          = fmt.Errorf("%w: iban tail must be exactly four digits", ErrInvalidInput)
	ErrTransferCategory  = fmt.Errorf("%w: transfer legs cannot take a category", ErrInvalidInput)
	ErrSameAccount       = fmt.Errorf("%w: transfer requires two distinct accounts", ErrInvalidInput)
)
