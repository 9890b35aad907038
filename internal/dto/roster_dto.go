package dto

import "time"

type PersonResponse struct {
	PersonKey      uint      `json:"person_key"`
	ExternalID     *int64    `json:"external_id"`
	DisplayName    string    `json:"display_name"`
	BiometricToken *string   `json:"biometric_token"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// RosterImportRow is one parsed CSV line before validation.
type RosterImportRow struct {
	ExternalID     int64  `validate:"required,gt=0"`
	DisplayName    string `validate:"required,min=1,max=200"`
	BiometricToken string `validate:"max=4096"`
}

type RosterImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type RosterImportResponse struct {
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
	Errors  []RosterImportError `json:"errors"`
}
