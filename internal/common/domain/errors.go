package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel error kinds. Every DomainError wraps exactly one of them so callers can
// branch with errors.Is regardless of the concrete code.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrConflict      = errors.New("conflict")
)

// Machine-readable codes for rejections that need more detail than their kind.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeInvalidState          = "INVALID_STATE_TRANSITION"
	CodeQuotaExceeded         = "QUOTA_EXCEEDED"
	CodeConflict              = "CONFLICT"
	CodeRoomNotInHotel        = "ROOM_NOT_IN_HOTEL"
	CodeInvalidSequence       = "INVALID_SEQUENCE"
	CodeInvoiceNotDraft       = "INVOICE_NOT_DRAFT"
	CodeInvalidOrInactiveCode = "INVALID_OR_INACTIVE_CODE"
)

// DomainError is a typed rejection surfaced to callers with a human-readable message.
type DomainError struct {
	Err     error
	Code    string
	Message string
	Fields  map[string][]string
}

func (e *DomainError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewNotFoundError reports a missing entity, or one hidden by tenant scope.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewValidationError reports malformed input as a field -> messages map.
func NewValidationError(fields map[string][]string) *DomainError {
	return &DomainError{
		Err:     ErrValidation,
		Code:    CodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// NewInvalidStateError reports a rejected lifecycle edge.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidState,
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewStateError reports a rejected lifecycle operation under a specific code.
func NewStateError(code, message string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Code: code, Message: message}
}

// NewQuotaExceededError reports an assignment beyond the requested count.
func NewQuotaExceededError(message string) *DomainError {
	return &DomainError{Err: ErrQuotaExceeded, Code: CodeQuotaExceeded, Message: message}
}

// NewConflictError reports duplicates and lost concurrent writes.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Code: CodeConflict, Message: message}
}

// WithCode returns a copy of e carrying a more specific code and message.
func (e *DomainError) WithCode(code, message string) *DomainError {
	out := *e
	out.Code = code
	if message != "" {
		out.Message = message
	}
	return &out
}

// Fields accumulates validation messages; Err returns nil when nothing was added.
type Fields map[string][]string

// Add records msg against field.
func (f Fields) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Err converts the accumulated messages into a validation DomainError.
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return NewValidationError(f)
}

// CodeOf returns the DomainError code carried by err, or "" for foreign errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
