package service

import (
	"errors"
	"fmt"

	"ucsattendance/internal/dto"
	"ucsattendance/internal/model"

	"github.com/go-playground/validator/v10"
)

// Domain errors. Anything else returned by a service is a storage fault.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrPersonNotFound   = errors.New("person not found")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrNoActiveSession  = errors.New("no active session")
)

// ErrEmptyBatch is returned when a check-in/check-out list has no elements.
var ErrEmptyBatch = fmt.Errorf("%w: request list cannot be empty", ErrInvalidRequest)

var errorCodes = map[error]string{
	ErrInvalidRequest:   "invalid_request",
	ErrPersonNotFound:   "person_not_found",
	ErrAlreadyCheckedIn: "already_checked_in",
	ErrNoActiveSession:  "no_active_session",
}

var errorMessages = map[error]string{
	ErrInvalidRequest:   "Validation failed: either external_id or biometric_token must be provided.",
	ErrPersonNotFound:   "Person not found in roster.",
	ErrAlreadyCheckedIn: "Person is already checked in.",
	ErrNoActiveSession:  "No active check-in found for the person.",
}

func newResultError(sentinel error, key dto.LookupKey) *dto.ResultError {
	return &dto.ResultError{
		Status:    dto.StatusError,
		Code:      errorCodes[sentinel],
		Message:   errorMessages[sentinel],
		LookupKey: key,
		Err:       sentinel,
	}
}

// invalidLookup reports a lookup key whose fields failed validation.
func invalidLookup(key dto.LookupKey, err error) *dto.ResultError {
	e := newResultError(ErrInvalidRequest, key)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e.Message = fmt.Sprintf("Validation failed: field %s failed %q.", verrs[0].Field(), verrs[0].Tag())
	}
	return e
}

func alreadyCheckedIn(key dto.LookupKey, open *model.Session) *dto.ResultError {
	e := newResultError(ErrAlreadyCheckedIn, key)
	if open != nil {
		e.Session = &dto.SessionContext{
			SessionID: open.ID,
			CheckInAt: open.CheckInAt,
			Method:    open.Method,
		}
	}
	return e
}

// asResultError extracts a per-element failure; false means err is a storage fault.
func asResultError(err error) (*dto.ResultError, bool) {
	var re *dto.ResultError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
