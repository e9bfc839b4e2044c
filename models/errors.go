package models

import "fmt"

// Error codes surfaced to the dashboard. Every error carries enough context
// (entity id, field) to act on without reading server logs.
const (
	ErrCodeInvalidIban            = "InvalidIban"
	ErrCodeInvalidBic             = "InvalidBic"
	ErrCodeMissingTenant          = "MissingTenant"
	ErrCodeMissingField           = "MissingField"
	ErrCodeMissingCreditorProfile = "MissingCreditorProfile"
	ErrCodeIllegalTransition      = "IllegalTransition"
	ErrCodeLeadTimeTooShort       = "LeadTimeTooShort"
)

// ValidationError rejects bad input before anything is persisted.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(code, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateError rejects a single operation that would violate a lifecycle or
// timing rule. No side effects have happened when it is returned.
type StateError struct {
	Code     string
	Entity   string
	EntityId int
	Message  string
}

func (e *StateError) Error() string {
	if e.EntityId != 0 {
		return fmt.Sprintf("%s: %s %d: %s", e.Code, e.Entity, e.EntityId, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
}

func NewStateError(code, entity string, entityId int, format string, args ...interface{}) *StateError {
	return &StateError{Code: code, Entity: entity, EntityId: entityId, Message: fmt.Sprintf(format, args...)}
}
