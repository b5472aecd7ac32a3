package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrInvalidScheduleParameters = errors.New("invalid schedule parameters")

	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	ErrOverpayment = fmt.Errorf("%w: amount exceeds installment balance", ErrInvalidPaymentAmount)

	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")

	ErrConcurrentModification = errors.New("concurrent modification")

	ErrRequestInFlight = errors.New("an identical request is already being processed")

	ErrUnauthorized = errors.New("unauthorized")

	ErrConflict = errors.New("resource conflict")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// NewScheduleParameterError reports a rejected schedule input. It matches both
// ErrInvalidScheduleParameters and ErrValidation.
func NewScheduleParameterError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidScheduleParameters, NewValidationError(field, message))
}
