package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LookupKey identifies a person by external id and/or biometric token.
// A zero external id and an empty token both count as absent.
type LookupKey struct {
	ExternalID     *int64 `json:"external_id,omitempty"     validate:"omitempty,gte=0"`
	BiometricToken string `json:"biometric_token,omitempty" validate:"max=4096"`
}

// HasExternalID reports whether a usable external id was supplied.
func (k LookupKey) HasExternalID() bool { return k.ExternalID != nil && *k.ExternalID != 0 }

// HasBiometricToken reports whether a biometric token was supplied.
func (k LookupKey) HasBiometricToken() bool { return k.BiometricToken != "" }

type CheckInRequest struct {
	LookupKey
	CheckInAt *time.Time `json:"check_in_at,omitempty"`
}

type CheckOutRequest struct {
	LookupKey
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
}

// ─── Result unions ───────────────────────────────────────────────────────────

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// CheckInResult is either *CheckInSuccess or *ResultError.
type CheckInResult interface{ isCheckInResult() }

// CheckOutResult is either *CheckOutSuccess or *ResultError.
type CheckOutResult interface{ isCheckOutResult() }

type CheckInSuccess struct {
	Status           string    `json:"status"`
	Message          string    `json:"message"`
	PersonExternalID *int64    `json:"person_external_id"`
	DisplayName      string    `json:"display_name"`
	CheckInAt        time.Time `json:"check_in_at"`
	Method           string    `json:"method"`
}

func (*CheckInSuccess) isCheckInResult() {}

type CheckOutSuccess struct {
	Status           string    `json:"status"`
	Message          string    `json:"message"`
	PersonExternalID *int64    `json:"person_external_id"`
	DisplayName      string    `json:"display_name"`
	CheckInAt        time.Time `json:"check_in_at"`
	CheckOutAt       time.Time `json:"check_out_at"`
	Duration         string    `json:"duration"` // HH:MM:SS
	Method           string    `json:"method"`
	LastActivityAt   time.Time `json:"last_activity_at"`
}

func (*CheckOutSuccess) isCheckOutResult() {}

// SessionContext describes the open session that blocked a check-in.
type SessionContext struct {
	SessionID uint      `json:"session_id"`
	CheckInAt time.Time `json:"check_in_at"`
	Method    string    `json:"method"`
}

// ResultError is the per-element failure payload. Err carries the domain
// sentinel so transports can map it to a status code.
type ResultError struct {
	Status    string          `json:"status"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	LookupKey LookupKey       `json:"lookup_key"`
	Session   *SessionContext `json:"session,omitempty"`
	Err       error           `json:"-"`
}

func (*ResultError) isCheckInResult()  {}
func (*ResultError) isCheckOutResult() {}

func (e *ResultError) Error() string { return e.Message }
func (e *ResultError) Unwrap() error { return e.Err }

// ─── Query responses ─────────────────────────────────────────────────────────

type ActiveSessionResponse struct {
	SessionID   uint      `json:"session_id"`
	ExternalID  *int64    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	CheckInAt   time.Time `json:"check_in_at"`
	Method      string    `json:"method"`
}
