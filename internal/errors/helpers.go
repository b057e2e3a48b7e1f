package errors

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidation, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewPermissionError creates an authorization error
func NewPermissionError(reason string) *AppError {
	return New(ErrCodePermission, reason).
		WithUserMessage("You are not allowed to do that")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// ClassifyStoreError turns a raw persistence error into a coded error at
// the adapter boundary. Callers decide whether to retry; nothing here is
// retried automatically.
func ClassifyStoreError(operation string, err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	var netErr net.Error
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, fmt.Sprintf("%s: record not found", operation))
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.As(err, &netErr):
		return Wrap(err, ErrCodeNetwork, fmt.Sprintf("%s: transport failure", operation)).
			WithUserMessage("Connection problem, please try again")
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeNetwork, fmt.Sprintf("%s: cancelled", operation))
	default:
		return Wrap(err, ErrCodeServer, fmt.Sprintf("%s failed", operation)).
			WithContext("operation", operation)
	}
}

// HTTPStatus maps an error code to the HTTP status the API surfaces.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodePermission:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeServer, ErrCodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
