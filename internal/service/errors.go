package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks malformed input. Nothing is persisted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden marks an operation the caller may not perform on an existing entity.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a uniqueness violation that cannot be absorbed.
	ErrConflict = errors.New("conflict")
	// ErrUpstream marks a failing storage or language-model collaborator.
	ErrUpstream = errors.New("upstream unavailable")
)

func validationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

func notFoundError(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func forbiddenError(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

func conflictError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

func upstreamError(collaborator string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, collaborator, err)
}

// IsValidation reports whether err describes rejected input, including
// struct validation failures raised by the validator.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) {
		return true
	}
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// translateStoreError maps persistence failures onto the service taxonomy.
func translateStoreError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundError(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflictError(what + " already exists")
	default:
		return err
	}
}
