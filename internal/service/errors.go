package service

import (
	"errors"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrValidation = errors.New("validation failed")

	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInventoryNotFound = errors.New("inventory not found")
	ErrOrderNotFound     = errors.New("order not found")

	ErrEmptyItems        = errors.New("order items empty")
	ErrOrderNumberTaken  = errors.New("order number already taken")
	ErrAlreadyFulfilled  = errors.New("order already fulfilled")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrConcurrentUpdate  = errors.New("order was modified concurrently")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level detail. errors.Is matches ErrValidation and every
// sentinel recorded for an individual field.
type ValidationError struct {
	Fields []FieldError
	causes []error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrValidation}, e.causes...)
}

func (e *ValidationError) add(field, msg string, cause error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
	if cause != nil {
		e.causes = append(e.causes, cause)
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
