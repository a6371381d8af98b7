package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string            `json:"error"`            // error code, see codes.go
	Message string            `json:"message"`          // human readable message
	Fields  map[string]string `json:"fields,omitempty"` // per-field validation messages
}

// AppError is the single error type services hand back to the HTTP layer.
// Status is the HTTP status the terminal error middleware responds with.
type AppError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Field returns the first field name attached to a validation error, if any.
func (e *AppError) Field() string {
	for k := range e.Fields {
		return k
	}
	return ""
}

func Validation(code, message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// FieldValidation is a 400 that names the offending request field.
func FieldValidation(code, field, message string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

func NotFound(code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

func Forbidden(code, message string) *AppError {
	if message == "" {
		message = "You do not have access to this resource"
	}
	return &AppError{Status: http.StatusForbidden, Code: code, Message: message}
}

func Conflict(code, message string) *AppError {
	return &AppError{Status: http.StatusConflict, Code: code, Message: message}
}

func Unauthorized(code, message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

// Internal wraps an unexpected failure; the cause is logged, never rendered.
func Internal(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: "Something went wrong. Please try again later",
		Err:     err,
	}
}

// As extracts an *AppError from err, treating anything else as an internal error.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an AppError with the given HTTP status.
func IsKind(err error, status int) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Status == status
}

// RespondWithError writes an error body with the given status
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// RespondWithAppError renders an AppError, including field messages.
func RespondWithAppError(c *gin.Context, appErr *AppError) {
	c.JSON(appErr.Status, ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}

func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Login required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have access to this resource"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

// RespondWithValidationError is used for request binding failures.
func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   ValidationInvalidInput,
		Message: "Request data is invalid",
		Fields:  fields,
	})
}
