package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes surfaced by the help-desk services.
const (
	CodeTicketNotFound         = "TICKET_NOT_FOUND"
	CodeUnknownTransition      = "UNKNOWN_TRANSITION"
	CodeInvalidSeverity        = "INVALID_SEVERITY"
	CodeTicketAlreadyClosed    = "TICKET_ALREADY_CLOSED"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodePersistence            = "PERSISTENCE_ERROR"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeConversationNotFound   = "CONVERSATION_NOT_FOUND"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeCancelled              = "CANCELLED"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewTicketNotFound(ticketID string) error {
	return NewDomainError(CodeTicketNotFound, fmt.Sprintf("ticket %s not found", ticketID), http.StatusNotFound,
		map[string]any{"ticket_id": ticketID})
}

func NewUnknownTransition(name string) error {
	return NewDomainError(CodeUnknownTransition, fmt.Sprintf("unknown transition %q", name), http.StatusBadRequest,
		map[string]any{"command": name})
}

func NewInvalidSeverity(label string) error {
	return NewDomainError(CodeInvalidSeverity, fmt.Sprintf("%q is not a recognized request type", label), http.StatusBadRequest,
		map[string]any{"request_type": label})
}

func NewTicketAlreadyClosed(ticketID string) error {
	return NewDomainError(CodeTicketAlreadyClosed, fmt.Sprintf("ticket %s is already closed", ticketID), http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewInvalidTransition(ticketID, from, action string) error {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf("cannot %s ticket %s while %s", action, ticketID, strings.ToLower(from)),
		http.StatusConflict, map[string]any{"ticket_id": ticketID, "status": from, "command": action})
}

// NewValidationFailed lists the offending field ids in Details["fields"].
func NewValidationFailed(fields []string) error {
	return NewDomainError(CodeValidationFailed, "required fields missing or invalid: "+strings.Join(fields, ", "),
		http.StatusBadRequest, map[string]any{"fields": fields})
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "storage error",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewConcurrentModification(ticketID string, err error) error {
	return &DomainError{
		Code:       CodeConcurrentModification,
		Message:    fmt.Sprintf("ticket %s was changed by someone else", ticketID),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"ticket_id": ticketID},
		Err:        err,
	}
}

func NewConversationNotFound(conversationID string, err error) error {
	return &DomainError{
		Code:       CodeConversationNotFound,
		Message:    fmt.Sprintf("conversation %s not found", conversationID),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"conversation_id": conversationID},
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &DomainError{
			Code:       CodeCancelled,
			Message:    "request cancelled",
			HTTPStatus: http.StatusRequestTimeout,
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// UserMessage renders an error as the chat text shown to the person who acted.
func UserMessage(err error) string {
	domainErr := ToDomainError(err)
	if domainErr == nil {
		return ""
	}
	switch domainErr.Code {
	case CodeTicketNotFound:
		return "That ticket could not be found."
	case CodeInvalidSeverity:
		return "That request type is not recognized."
	case CodeTicketAlreadyClosed:
		return "This ticket has already been closed and can no longer be withdrawn."
	case CodeInvalidTransition:
		return "This ticket needs to be reopened first."
	case CodeValidationFailed:
		return "Please fill in the highlighted fields."
	case CodeConcurrentModification:
		return "Someone else updated this ticket at the same time. Please try again."
	case CodeForbidden:
		return "You are not allowed to do that."
	case CodePersistence:
		return "Something went wrong while saving. Please try again later (storage error)."
	case CodeCancelled:
		return "The request was cancelled."
	default:
		return "Something went wrong. Please try again later."
	}
}

// InvalidFields returns the field ids carried by a VALIDATION_FAILED error.
func InvalidFields(err error) []string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != CodeValidationFailed {
		return nil
	}
	fields, _ := domainErr.Details["fields"].([]string)
	return fields
}
