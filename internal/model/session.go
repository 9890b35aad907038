package model

import "time"

// Check-in method tags, recorded at check-in and never recomputed.
const (
	MethodUserIDAndFingerPrint = "UserIdAndFingerPrint"
	MethodUserID               = "UserId"
	MethodFingerPrint          = "FingerPrint"
	MethodNone                 = "None"
)

// OpenSessionIndex is the partial unique index that backs the one open session
// per person invariant at the storage layer.
const OpenSessionIndex = "uniq_attendance_sessions_open_person"

// Session is one attendance interval. CheckOutAt == nil means the session is
// open; at most one open session exists per PersonKey (see OpenSessionIndex).
type Session struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	PersonKey  uint       `gorm:"not null;index"`
	CheckInAt  time.Time  `gorm:"not null"`
	CheckOutAt *time.Time
	Method     string `gorm:"type:varchar(32);not null"`

	// Belongs-to: the constraint lives on attendance_sessions and deleting a
	// person with sessions is rejected.
	Person *Person `gorm:"foreignKey:PersonKey;references:ID;constraint:OnDelete:RESTRICT"`
}

func (Session) TableName() string { return "attendance_sessions" }

// IsOpen reports whether the session has not been checked out yet.
func (s *Session) IsOpen() bool { return s.CheckOutAt == nil }
