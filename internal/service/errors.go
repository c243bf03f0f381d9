package service

import (
	"fmt"
	"net/http"
)

// DomainError carries the HTTP status the API boundary should answer with.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func validationError(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}
