package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status alongside the wrapped cause so handlers can
// return plain errors and let the central error handler pick the response.
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, message string, err error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

// NewUnauthorizedError always carries the same generic message. Callers must
// not put the underlying reason in the response; it stays in the wrapped error
// for logging only.
func NewUnauthorizedError(err error) *AppError {
	return NewAppError(http.StatusUnauthorized, "Unauthorized", err)
}

func NewForbiddenError(err error) *AppError {
	return NewAppError(http.StatusForbidden, "Forbidden", err)
}

func NewNotFoundError(err error, message string) *AppError {
	return NewAppError(http.StatusNotFound, message, err)
}

func NewConflictError(err error, message string) *AppError {
	return NewAppError(http.StatusConflict, message, err)
}

func NewInternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, "Internal Server Error", err)
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
