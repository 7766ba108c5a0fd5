package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the ledger returns matches exactly one of them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrCollaboratorFailure = errors.New("collaborator failure")
)

// Invalid operation reasons
const (
	ReasonMovieUnavailable   = "movie unavailable"
	ReasonRentalNotActive    = "rental not active"
	ReasonCounterUnderflow   = "counter underflow"
	ReasonCopyOverflow       = "available copies overflow"
	ReasonCopiesInUse        = "copies in use"
	ReasonMovieHasRentals    = "movie has active rentals"
	ReasonUserHasRentals     = "user has active rentals"
	ReasonEmailRegistered    = "email already registered"
	ReasonLateFeeOverlap     = "late fee range overlaps"
	ReasonInvalidLateFeeRule = "invalid late fee range"
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeMovieNotFound    = "MOVIE_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeRentalNotFound   = "RENTAL_NOT_FOUND"
	ErrCodeLateFeeNotFound  = "LATE_FEE_NOT_FOUND"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeStoreError       = "STORE_ERROR"
	ErrCodeCacheError       = "CACHE_ERROR"
)

func WrapMovieNotFound(movieID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeMovieNotFound,
		fmt.Sprintf("Movie with ID %d not found", movieID),
		ErrNotFound,
	)
}

func WrapUserNotFound(userID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeUserNotFound,
		fmt.Sprintf("User with ID %d not found", userID),
		ErrNotFound,
	)
}

func WrapRentalNotFound(rentalID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeRentalNotFound,
		fmt.Sprintf("Rental with ID %d not found", rentalID),
		ErrNotFound,
	)
}

func WrapLateFeeNotFound(ruleID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeLateFeeNotFound,
		fmt.Sprintf("Late fee rule with ID %d not found", ruleID),
		ErrNotFound,
	)
}

// WrapInvalidOperation reports a violated precondition. The reason is the message.
func WrapInvalidOperation(reason string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidOperation, reason, ErrInvalidOperation)
}

// WrapStoreError reports a failed read or write against a collaborator store.
func WrapStoreError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreError,
		"store operation failed",
		fmt.Errorf("%w: %w", ErrCollaboratorFailure, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		fmt.Errorf("%w: %w", ErrCollaboratorFailure, err),
	)
}

// Reason returns the message of a business error, or "" for anything else.
func Reason(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return ""
}

// IsBusinessError reports whether err already carries a business classification.
func IsBusinessError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// IsInvalidOperation reports whether err is an InvalidOperation with the given reason.
func IsInvalidOperation(err error, reason string) bool {
	return errors.Is(err, ErrInvalidOperation) && Reason(err) == reason
}
