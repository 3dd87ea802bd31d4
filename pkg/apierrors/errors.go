package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a workflow error
type Kind string

const (
	KindUnresolvedIdentity     Kind = "unresolved_identity"
	KindOwnership              Kind = "ownership_error"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindAlreadyAccepted        Kind = "already_accepted"
	KindMissionNotReady        Kind = "mission_not_ready"
	KindInvoiceNotEditable     Kind = "invoice_not_editable"
	KindValidation             Kind = "validation_error"
	KindConstraintViolation    Kind = "constraint_violation"
	KindNotFound               Kind = "not_found"
	KindInternal               Kind = "internal"
)

// WorkflowError represents a structured error returned by the workflow core
type WorkflowError struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	HTTPStatus  int    `json:"-"`
	InternalErr error  `json:"-"`
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *WorkflowError) Unwrap() error {
	return e.InternalErr
}

// New creates a workflow error with an explicit kind and HTTP status
func New(kind Kind, message string, httpStatus int) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: message, HTTPStatus: httpStatus}
}

// UnresolvedIdentity signals that no tenant entity matches the authenticated
// principal. This is a hard authentication failure, never a default-deny.
func UnresolvedIdentity(principal string) *WorkflowError {
	return New(KindUnresolvedIdentity,
		fmt.Sprintf("no tenant entity resolves principal %q", principal),
		http.StatusUnauthorized)
}

// Ownership signals a cross-tenant access attempt
func Ownership(resource string) *WorkflowError {
	return New(KindOwnership,
		fmt.Sprintf("caller does not own %s", resource),
		http.StatusForbidden)
}

// InvalidStateTransition signals an operation that is not legal from the
// entity's current status
func InvalidStateTransition(entity, operation, currentStatus string) *WorkflowError {
	return New(KindInvalidStateTransition,
		fmt.Sprintf("%s cannot %s from status %q", entity, operation, currentStatus),
		http.StatusConflict)
}

// AlreadyAccepted signals that a concurrent caller consumed the transition
func AlreadyAccepted(ticketID string) *WorkflowError {
	return New(KindAlreadyAccepted,
		fmt.Sprintf("ticket %s was already accepted by another company", ticketID),
		http.StatusConflict)
}

// MissionNotReady signals invoice generation on a mission that is not validated
func MissionNotReady(missionID, status string) *WorkflowError {
	return New(KindMissionNotReady,
		fmt.Sprintf("mission %s is %q, invoices require a validated mission", missionID, status),
		http.StatusConflict)
}

// InvoiceNotEditable signals a line mutation outside draft status
func InvoiceNotEditable(invoiceID, status string) *WorkflowError {
	return New(KindInvoiceNotEditable,
		fmt.Sprintf("invoice %s is %q and no longer editable", invoiceID, status),
		http.StatusConflict)
}

// Validation signals malformed input
func Validation(message string) *WorkflowError {
	return New(KindValidation, message, http.StatusBadRequest)
}

// Validationf signals malformed input with formatting
func Validationf(format string, args ...any) *WorkflowError {
	return Validation(fmt.Sprintf(format, args...))
}

// Constraint signals a referential mismatch between tenant entities
func Constraint(message string) *WorkflowError {
	return New(KindConstraintViolation, message, http.StatusUnprocessableEntity)
}

// Constraintf signals a referential mismatch with formatting
func Constraintf(format string, args ...any) *WorkflowError {
	return Constraint(fmt.Sprintf(format, args...))
}

// NotFound signals a missing resource
func NotFound(resource string) *WorkflowError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Internal wraps an unexpected failure
func Internal(message string, cause error) *WorkflowError {
	return &WorkflowError{
		Kind:        KindInternal,
		Message:     message,
		HTTPStatus:  http.StatusInternalServerError,
		InternalErr: cause,
	}
}

// AsWorkflowError extracts a WorkflowError from an error chain, or wraps the
// error as an internal failure so callers always get a structured result
func AsWorkflowError(err error) *WorkflowError {
	var wf *WorkflowError
	if errors.As(err, &wf) {
		return wf
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("resource")
	}
	return Internal("unexpected error", err)
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var wf *WorkflowError
	return errors.As(err, &wf) && wf.Kind == kind
}
