// Package apierror holds the JSON envelopes for whole-request failures.
// Per-element batch failures are reported as dto.ResultError instead.
package apierror

// APIError is the {"detail": ...} body of every 4xx/5xx response that is not
// a per-element result. RequestID is set on 5xx so operators can find the log line.
type APIError struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Internal builds the 500 body for a storage or runtime fault; the fault
// description is part of the detail.
func Internal(err error, requestID string) *APIError {
	return &APIError{Detail: "Internal server error: " + err.Error(), RequestID: requestID}
}

// ValidationError reports the failed validator tag per field of a
// single-object request.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation error", Fields: fields}
}
