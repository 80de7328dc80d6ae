package dto

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// BaseError is the root error format.
// Code is machine oriented (snake_case); Message is a short human readable text;
// Details is optional extra context; Fields is filled for validation errors.
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError describes one invalid field.
// Field is a JSON path such as "items[0].quantity"; Tag is the validator tag when the
// error comes from request binding.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// Semantic aliases for the documented failure responses. All share the BaseError JSON.

// ValidationErrorResponse 400, code "validation_error".
type ValidationErrorResponse BaseError

// ConflictErrorResponse 409, code "conflict".
type ConflictErrorResponse BaseError

// UnauthorizedErrorResponse 401, code "unauthorized".
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403, code "forbidden".
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404, code "not_found".
type NotFoundErrorResponse BaseError

// InternalErrorResponse 500, code "internal_error".
type InternalErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}

// BindingFields converts a gin binding error into field errors. Errors that are not
// validator errors (malformed JSON, wrong types) yield a single "body" entry.
func BindingFields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
			Tag:     fe.Tag(),
		})
	}
	return fields
}

// fieldPath drops the root struct name: "CreateOrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be >= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

var registerOnce sync.Once

// RegisterJSONTagNames makes validator report JSON field names instead of Go names.
func RegisterJSONTagNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" {
				name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
