// Package domainerrors defines the coded error type shared between domain
// services and the HTTP transport. Services attach a Code and a user-facing
// message; the transport maps codes onto HTTP statuses without inspecting
// message text.
package domainerrors

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeBadRequest   Code = "bad_request"   // caller input failed a precondition
	CodeUnauthorized Code = "unauthorized"  // missing or invalid session token
	CodeNotFound     Code = "not_found"     // entity or selection does not resolve
	CodeInternal     Code = "internal"      // anything unexpected
)

// Error carries a stable code alongside the message shown to the user.
type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string { return e.Message }

// New builds a coded domain error.
func New(code Code, message string) Error {
	return Error{Code: code, Message: message}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var de Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ToHTTPStatus maps domain error codes onto HTTP statuses.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
