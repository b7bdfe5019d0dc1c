package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
)

// Sentinel errors. An *APIError matches the sentinel for its status code
// through errors.Is.
var (
	// ErrNotFound indicates that the policy or rule does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the resource's state forbids the operation,
	// such as deleting an active policy
	ErrConflict = errors.New("resource state conflict")

	// ErrValidation indicates that the service rejected the request as invalid
	ErrValidation = errors.New("request validation failed")

	// ErrUnauthorized indicates a missing, invalid or under-privileged token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport indicates that the service could not be reached or its
	// response could not be read
	ErrTransport = errors.New("policy service unavailable")

	// ErrInvalidArgument is returned before any request is sent when an
	// argument such as an id is empty
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Summary    string
	ErrorID    string
	Causes     []string
}

func newAPIError(status int, body *v1.Error) *APIError {
	e := &APIError{StatusCode: status}
	if body == nil {
		e.Summary = http.StatusText(status)
		return e
	}
	e.Code = body.ErrorCode
	e.Summary = body.ErrorSummary
	e.ErrorID = body.ErrorID
	for _, c := range body.ErrorCauses {
		e.Causes = append(e.Causes, c.ErrorSummary)
	}
	if e.Summary == "" {
		e.Summary = http.StatusText(status)
	}
	return e
}

// Error implements the error interface
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "policy API error %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	fmt.Fprintf(&b, ": %s", e.Summary)
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Causes, "; "))
	}
	return b.String()
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a 409, such as a duplicate name or an active delete.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation reports whether the service rejected the request as invalid.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// ErrUnexpectedType is returned by GetPolicyAs and GetPolicyRuleAs when the
// stored variant differs from the requested one.
var ErrUnexpectedType = errors.New("unexpected resource type")

func decodeError(err error) error {
	return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
}

func transportError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))
}
