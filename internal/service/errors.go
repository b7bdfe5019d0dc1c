package service

import (
	"errors"
	"fmt"

	"github.com/dcm-project/policy-sdk/internal/store"
	"gorm.io/gorm"
)

// ErrorType represents the type of service error
type ErrorType string

const (
	ErrorTypeInvalidArgument    ErrorType = "INVALID_ARGUMENT"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists      ErrorType = "ALREADY_EXISTS"
	ErrorTypeInternal           ErrorType = "INTERNAL"
	ErrorTypeFailedPrecondition ErrorType = "FAILED_PRECONDITION" // Lifecycle state forbids the operation
)

// ServiceError represents a structured error from the service layer
type ServiceError struct {
	Type    ErrorType
	Message string
	Detail  string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsErrorType reports whether err is a ServiceError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Type == t
}

func processPolicyStoreError(err error, policyID, name, policyType, operation string) *ServiceError {
	if errors.Is(err, store.ErrPolicyIDTaken) {
		return NewAlreadyExistsError("Policy already exists", fmt.Sprintf("A policy with ID '%s' already exists", policyID))
	}
	if errors.Is(err, store.ErrPolicyNameTaken) {
		return NewAlreadyExistsError(
			"Policy name and type already exists",
			fmt.Sprintf("A policy named '%s' of type '%s' already exists", name, policyType),
		)
	}
	if errors.Is(err, store.ErrPolicyNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return NewPolicyNotFoundError(policyID)
	}
	if errors.Is(err, store.ErrInvalidPageToken) {
		return NewInvalidArgumentError("Invalid after cursor", "The after parameter is not a cursor returned by this service")
	}
	return NewInternalError(fmt.Sprintf("Failed to %s policy", operation), err.Error(), err)
}

func processRuleStoreError(err error, policyID, ruleID, name, operation string) *ServiceError {
	if errors.Is(err, store.ErrRuleNameTaken) {
		return NewAlreadyExistsError(
			"Policy rule name already exists",
			fmt.Sprintf("Policy '%s' already has a rule named '%s'", policyID, name),
		)
	}
	if errors.Is(err, store.ErrRuleNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return NewRuleNotFoundError(policyID, ruleID)
	}
	if errors.Is(err, store.ErrPolicyNotFound) {
		return NewPolicyNotFoundError(policyID)
	}
	if errors.Is(err, store.ErrInvalidPageToken) {
		return NewInvalidArgumentError("Invalid after cursor", "The after parameter is not a cursor returned by this service")
	}
	return NewInternalError(fmt.Sprintf("Failed to %s policy rule", operation), err.Error(), err)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
		Detail:  detail,
	}
}

func NewPolicyNotFoundError(policyID string) *ServiceError {
	return NewNotFoundError("Policy not found", fmt.Sprintf("Policy with ID '%s' does not exist", policyID))
}

func NewRuleNotFoundError(policyID, ruleID string) *ServiceError {
	return NewNotFoundError(
		"Policy rule not found",
		fmt.Sprintf("Rule with ID '%s' does not exist in policy '%s'", ruleID, policyID),
	)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Detail:  detail,
	}
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeAlreadyExists,
		Message: message,
		Detail:  detail,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message, detail string, err error) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInternal,
		Message: message,
		Detail:  detail,
		Err:     err,
	}
}

// NewFailedPreconditionError creates a new failed precondition error
func NewFailedPreconditionError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeFailedPrecondition,
		Message: message,
		Detail:  detail,
	}
}

// NewActiveResourceError reports an attempt to delete something still ACTIVE.
func NewActiveResourceError(kind, id string) *ServiceError {
	return NewFailedPreconditionError(
		fmt.Sprintf("Cannot delete an active %s", kind),
		fmt.Sprintf("The %s '%s' must be deactivated before it can be deleted", kind, id),
	)
}
