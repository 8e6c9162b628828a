package bookshelf

import (
	"fmt"
	"net/http"
)

// Error is a failure the HTTP layer can answer directly with Status.
type Error struct {
	Status  int
	Message string
	// Detail is extra context shown to clients in development only.
	Detail any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

var (
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	// Ownership violations answer 401 like missing credentials do.
	ErrForbidden    = &Error{Status: http.StatusUnauthorized, Message: "Forbidden"}
	ErrNotFound     = &Error{Status: http.StatusNotFound, Message: "Not found"}
	ErrConflict     = &Error{Status: http.StatusConflict, Message: "Conflict"}
	ErrInvalidBook  = &Error{Status: http.StatusBadRequest, Message: "Invalid book key"}
)

func NewValidationError(detail any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Invalid field value", Detail: detail}
}
