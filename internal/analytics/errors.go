package analytics

import (
	"fmt"
	"net/http"

	"socialdash/internal/models"
)

// ServiceError carries the HTTP status and API error code a handler should
// answer with. Err is the underlying cause and never reaches the client.
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches another ServiceError with the same code, so callers can test
// errors.Is(err, &ServiceError{Code: models.ErrorCodeNotFound}).
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Code == e.Code
}

func serviceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, StatusCode: status, Err: cause}
}

func NewInvalidRequestError(message string, err error) *ServiceError {
	return serviceError(http.StatusBadRequest, models.ErrorCodeInvalidRequest, message, err)
}

func NewUnauthorizedError(message string) *ServiceError {
	return serviceError(http.StatusUnauthorized, models.ErrorCodeUnauthorized, message, nil)
}

func NewNotFoundError(message string, err error) *ServiceError {
	return serviceError(http.StatusNotFound, models.ErrorCodeNotFound, message, err)
}

func NewInternalError(message string, err error) *ServiceError {
	return serviceError(http.StatusInternalServerError, models.ErrorCodeInternalError, message, err)
}
