package model

import "time"

// Person is a roster entry. ID is the store-assigned person key (column
// person_key), never reused; ExternalID is the caller-facing numeric id.
type Person struct {
	ID          uint   `gorm:"primaryKey;autoIncrement;column:person_key"`
	ExternalID  *int64 `gorm:"uniqueIndex"`
	DisplayName string `gorm:"not null"`
	// BiometricToken is an opaque fingerprint token, matched verbatim.
	BiometricToken *string   `gorm:"uniqueIndex"`
	LastActivityAt time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Person) TableName() string { return "persons" }
