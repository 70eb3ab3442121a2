// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeValidation    Code = "VALIDATION_FAILED"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeInvalidDate   Code = "INVALID_DATE"

	// Identity errors
	CodeDuplicateEmail  Code = "DUPLICATE_EMAIL"
	CodeAuthFailed      Code = "AUTH_FAILED"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"

	// Resource errors
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeIOFailure     Code = "IO_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation, CodeInvalidFormat, CodeInvalidDate:
		return codes.InvalidArgument
	case CodeDuplicateEmail:
		return codes.AlreadyExists
	case CodeAuthFailed, CodeUnauthenticated:
		return codes.Unauthenticated
	case CodeForbidden:
		return codes.PermissionDenied
	case CodeQuotaExceeded:
		return codes.ResourceExhausted
	case CodeNotFound:
		return codes.NotFound
	case CodeIOFailure:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidFormat, CodeInvalidDate:
		return http.StatusBadRequest
	case CodeDuplicateEmail:
		return http.StatusConflict
	case CodeAuthFailed, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeQuotaExceeded:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeIOFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
