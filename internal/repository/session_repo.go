package repository

import (
	"context"
	"time"

	"ucsattendance/internal/model"

	"gorm.io/gorm"
)

type SessionRepository interface {
	FindOpenByPerson(ctx context.Context, tx *gorm.DB, personKey uint) (*model.Session, error)
	// Create returns ErrOpenSessionExists when the person already has an open
	// session committed by a concurrent writer.
	Create(ctx context.Context, tx *gorm.DB, s *model.Session) error
	Close(ctx context.Context, tx *gorm.DB, s *model.Session, at time.Time) error
	ListOpen(ctx context.Context) ([]model.Session, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) FindOpenByPerson(ctx context.Context, tx *gorm.DB, personKey uint) (*model.Session, error) {
	var s model.Session
	err := conn(r.db, tx).WithContext(ctx).
		Where("person_key = ? AND check_out_at IS NULL", personKey).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Session) error {
	return translateWriteError(conn(r.db, tx).WithContext(ctx).Create(s).Error)
}

// Close sets check_out_at only while the row is still open, so a session that
// was closed concurrently is never closed twice.
func (r *sessionRepo) Close(ctx context.Context, tx *gorm.DB, s *model.Session, at time.Time) error {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND check_out_at IS NULL", s.ID).
		Update("check_out_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionAlreadyClosed
	}
	s.CheckOutAt = &at
	return nil
}

func (r *sessionRepo) ListOpen(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Preload("Person").
		Where("check_out_at IS NULL").
		Order("check_in_at ASC").
		Order("id ASC").
		Find(&sessions).Error
	return sessions, err
}
