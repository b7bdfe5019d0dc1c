package v1

// Error codes returned in Error.ErrorCode.
const (
	ErrorCodeValidation    = "E0000001"
	ErrorCodeNotFound      = "E0000007"
	ErrorCodeInternal      = "E0000009"
	ErrorCodeInvalidToken  = "E0000011"
	ErrorCodeInvalidStatus = "E0000038"
)

// ErrorCause is one reason attached to an Error.
type ErrorCause struct {
	ErrorSummary string `json:"errorSummary"`
}

// Error is the body of every non-2xx response.
type Error struct {
	ErrorCode    string       `json:"errorCode"`
	ErrorSummary string       `json:"errorSummary"`
	ErrorLink    string       `json:"errorLink,omitempty"`
	ErrorID      string       `json:"errorId,omitempty"`
	ErrorCauses  []ErrorCause `json:"errorCauses,omitempty"`
}
