package repository

import (
	"context"
	"time"

	"ucsattendance/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RosterRepository reads and writes roster entries. Methods taking a tx run
// inside the caller's transaction; a nil tx uses the repository's own handle.
type RosterRepository interface {
	FindByExternalID(ctx context.Context, tx *gorm.DB, externalID int64) (*model.Person, error)
	FindByBiometricToken(ctx context.Context, tx *gorm.DB, token string) (*model.Person, error)
	TouchLastActivity(ctx context.Context, tx *gorm.DB, p *model.Person, at time.Time) error
	ListByLastActivity(ctx context.Context) ([]model.Person, error)
	// Upsert creates or updates a person keyed by ExternalID and reports
	// whether a new row was created. A nil BiometricToken keeps the stored
	// token of an existing person.
	Upsert(ctx context.Context, p *model.Person) (bool, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type rosterRepo struct{ db *gorm.DB }

func NewRosterRepository(db *gorm.DB) RosterRepository { return &rosterRepo{db: db} }

func (r *rosterRepo) DB() *gorm.DB { return r.db }

// lookup locks the matched row when running inside a transaction so that two
// transitions for the same person serialise. SQLite ignores the clause.
func (r *rosterRepo) lookup(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db.WithContext(ctx)
	}
	return tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *rosterRepo) FindByExternalID(ctx context.Context, tx *gorm.DB, externalID int64) (*model.Person, error) {
	var p model.Person
	err := r.lookup(ctx, tx).Where("external_id = ?", externalID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *rosterRepo) FindByBiometricToken(ctx context.Context, tx *gorm.DB, token string) (*model.Person, error) {
	var p model.Person
	err := r.lookup(ctx, tx).Where("biometric_token = ?", token).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *rosterRepo) TouchLastActivity(ctx context.Context, tx *gorm.DB, p *model.Person, at time.Time) error {
	err := conn(r.db, tx).WithContext(ctx).
		Model(&model.Person{}).
		Where("person_key = ?", p.ID).
		Update("last_activity_at", at).Error
	if err != nil {
		return err
	}
	p.LastActivityAt = at
	return nil
}

func (r *rosterRepo) ListByLastActivity(ctx context.Context) ([]model.Person, error) {
	var persons []model.Person
	err := r.db.WithContext(ctx).
		Order("last_activity_at DESC").
		Order("person_key ASC").
		Find(&persons).Error
	return persons, err
}

func (r *rosterRepo) Upsert(ctx context.Context, p *model.Person) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Person
		err := tx.Where("external_id = ?", p.ExternalID).First(&existing).Error
		switch {
		case err == nil:
			existing.DisplayName = p.DisplayName
			if p.BiometricToken != nil {
				existing.BiometricToken = p.BiometricToken
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*p = existing
			return nil
		case IsNotFound(err):
			created = true
			return tx.Create(p).Error
		default:
			return err
		}
	})
	return created, err
}

func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
