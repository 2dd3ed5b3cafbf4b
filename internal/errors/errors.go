// Package errors provides a standardized error shape for the control plane:
// a machine-readable Code, a human-readable Message, optional Details, and
// automatic mapping to both an HTTP status (for the admin/health surface)
// and a gRPC status (for the resource dispatcher in internal/dispatcher).
//
// Error codes:
//   - Client errors: InvalidInput, NotLoggedIn, InvalidSession,
//     PermissionDenied, ResourceExhausted, NotFound, InvalidArgument
//   - Server errors: InternalServerError, Unavailable
package errors

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError is a structured application error. Fields names the request
// fields a validation error is about, so clients can attach the message to
// the right inputs.
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields,omitempty"`
	Details    string   `json:"details,omitempty"`
	StatusCode int      `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse is the JSON shape returned by the health/admin HTTP surface.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotLoggedIn        = "NOT_LOGGED_IN"
	CodeInvalidSession     = "INVALID_SESSION"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeResourceExhausted  = "RESOURCE_EXHAUSTED"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInternalServerErr  = "INTERNAL_SERVER_ERROR"
	CodeUnavailable        = "UNAVAILABLE"
)

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCodeFor(code)}
}

func NewWithDetails(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, StatusCode: statusCodeFor(code)}
}

func Wrap(code, message string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewWithDetails(code, message, details)
}

func statusCodeFor(code string) int {
	switch code {
	case CodeInvalidInput, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotLoggedIn, CodeInvalidSession:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeInternalServerErr:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// grpcCodeFor maps an AppError code to the gRPC status code the dispatcher
// should return.
func grpcCodeFor(code string) codes.Code {
	switch code {
	case CodeInvalidInput, CodeInvalidArgument:
		return codes.InvalidArgument
	case CodeNotLoggedIn, CodeInvalidSession:
		return codes.Unauthenticated
	case CodePermissionDenied:
		return codes.PermissionDenied
	case CodeNotFound:
		return codes.NotFound
	case CodeResourceExhausted:
		return codes.ResourceExhausted
	case CodeUnavailable:
		return codes.Unavailable
	case CodeInternalServerErr:
		return codes.Internal
	default:
		return codes.Internal
	}
}

// GRPCStatus implements the interface github.com/grpc-ecosystem and the
// status package look for (interface{ GRPCStatus() *status.Status }), so an
// *AppError can be returned directly from a gRPC handler and will carry the
// right code.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(grpcCodeFor(e.Code), e.Message)
}

func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message, Code: e.Code, Details: e.Details}
}

// Constructors, one per error kind.

func InvalidInput(message string, fields ...string) *AppError {
	err := New(CodeInvalidInput, message)
	err.Fields = fields
	return err
}

func NotLoggedIn() *AppError {
	return New(CodeNotLoggedIn, "this request requires an authenticated session")
}

func InvalidSession() *AppError {
	return New(CodeInvalidSession, "session is invalid or has expired")
}

func PermissionDenied(resource, permission string) *AppError {
	return New(CodePermissionDenied, fmt.Sprintf("missing %s permission on %s", permission, resource))
}

func ResourceExhausted(message string) *AppError {
	return New(CodeResourceExhausted, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidArgument(message string) *AppError {
	return New(CodeInvalidArgument, message)
}

func InternalServerError(message string) *AppError {
	return New(CodeInternalServerErr, message)
}

// InternalServerErrorWrap wraps a lower-layer error as InternalServerError,
// except when err is already an *AppError (e.g. a db-layer translation like
// a unique-violation remap), in which case the original code/message is
// preserved instead of being clobbered into a generic 500.
func InternalServerErrorWrap(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(CodeInternalServerErr, "internal server error", err)
}

func Unavailable(service string) *AppError {
	return New(CodeUnavailable, fmt.Sprintf("%s is currently unavailable", service))
}
