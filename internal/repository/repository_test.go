package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ucsattendance/internal/config"
	"ucsattendance/internal/infra"
	"ucsattendance/internal/model"
	"ucsattendance/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase(&config.Config{
		DBDriver:    infra.DriverSQLite,
		DatabaseURL: filepath.Join(t.TempDir(), "attendance.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedPerson(t *testing.T, db *gorm.DB, extID int64, name, token string, last time.Time) *model.Person {
	t.Helper()
	p := &model.Person{ExternalID: &extID, DisplayName: name, LastActivityAt: last}
	if token != "" {
		p.BiometricToken = &token
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

var t0 = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func TestRoster_PointLookups(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRosterRepository(db)
	ctx := context.Background()
	alice := seedPerson(t, db, 7, "Alice", "FP123", t0)

	got, err := repo.FindByExternalID(ctx, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = repo.FindByBiometricToken(ctx, nil, "FP123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = repo.FindByExternalID(ctx, nil, 8)
	assert.True(t, repository.IsNotFound(err))
	_, err = repo.FindByBiometricToken(ctx, nil, "FP999")
	assert.True(t, repository.IsNotFound(err))
}

func TestRoster_LockedLookupInsideTransaction(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRosterRepository(db)
	seedPerson(t, db, 7, "Alice", "", t0)

	err := db.Transaction(func(tx *gorm.DB) error {
		p, err := repo.FindByExternalID(context.Background(), tx, 7)
		if err != nil {
			return err
		}
		return repo.TouchLastActivity(context.Background(), tx, p, t0.Add(time.Hour))
	})
	require.NoError(t, err)

	got, err := repo.FindByExternalID(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.True(t, got.LastActivityAt.Equal(t0.Add(time.Hour)))
}

func TestRoster_BiometricTokenIsUnique(t *testing.T) {
	db := openTestDB(t)
	seedPerson(t, db, 1, "Ana", "SHARED", t0)

	token := "SHARED"
	extID := int64(2)
	err := db.Create(&model.Person{ExternalID: &extID, DisplayName: "Beto", BiometricToken: &token, LastActivityAt: t0}).Error
	assert.Error(t, err)
}

func TestRoster_ListByLastActivity(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRosterRepository(db)
	seedPerson(t, db, 1, "Ana", "", t0.Add(-time.Hour))
	seedPerson(t, db, 2, "Beto", "", t0)
	seedPerson(t, db, 3, "Caro", "", t0.Add(-2*time.Hour))

	list, err := repo.ListByLastActivity(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Beto", list[0].DisplayName)
	assert.Equal(t, "Ana", list[1].DisplayName)
	assert.Equal(t, "Caro", list[2].DisplayName)
}

func TestRoster_Upsert(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRosterRepository(db)
	ctx := context.Background()

	extID := int64(7)
	created, err := repo.Upsert(ctx, &model.Person{ExternalID: &extID, DisplayName: "Alice", LastActivityAt: t0})
	require.NoError(t, err)
	assert.True(t, created)

	token := "FP123"
	p := &model.Person{ExternalID: &extID, DisplayName: "Alice B.", BiometricToken: &token, LastActivityAt: t0.Add(time.Hour)}
	created, err = repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NotZero(t, p.ID)

	got, err := repo.FindByBiometricToken(ctx, nil, "FP123")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)
	assert.True(t, got.LastActivityAt.Equal(t0), "upsert must not move last activity")

	var count int64
	require.NoError(t, db.Model(&model.Person{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRoster_UpsertWithoutTokenKeepsStoredToken(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRosterRepository(db)
	ctx := context.Background()
	seedPerson(t, db, 7, "Alice", "FP123", t0)

	extID := int64(7)
	created, err := repo.Upsert(ctx, &model.Person{ExternalID: &extID, DisplayName: "Alice B.", LastActivityAt: t0})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.FindByBiometricToken(ctx, nil, "FP123")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)
}

func TestSessions_OneOpenSessionPerPerson(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSessionRepository(db)
	ctx := context.Background()
	alice := seedPerson(t, db, 7, "Alice", "", t0)

	first := &model.Session{PersonKey: alice.ID, CheckInAt: t0, Method: model.MethodUserID}
	require.NoError(t, repo.Create(ctx, nil, first))

	second := &model.Session{PersonKey: alice.ID, CheckInAt: t0.Add(time.Minute), Method: model.MethodUserID}
	assert.ErrorIs(t, repo.Create(ctx, nil, second), repository.ErrOpenSessionExists)

	require.NoError(t, repo.Close(ctx, nil, first, t0.Add(time.Hour)))
	third := &model.Session{PersonKey: alice.ID, CheckInAt: t0.Add(2 * time.Hour), Method: model.MethodFingerPrint}
	require.NoError(t, repo.Create(ctx, nil, third))

	open, err := repo.FindOpenByPerson(ctx, nil, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, third.ID, open.ID)
	assert.True(t, open.IsOpen())
	assert.False(t, first.IsOpen())
}

func TestSessions_CloseIsConditional(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSessionRepository(db)
	ctx := context.Background()
	alice := seedPerson(t, db, 7, "Alice", "", t0)

	s := &model.Session{PersonKey: alice.ID, CheckInAt: t0, Method: model.MethodUserID}
	require.NoError(t, repo.Create(ctx, nil, s))
	require.NoError(t, repo.Close(ctx, nil, s, t0.Add(time.Hour)))
	require.NotNil(t, s.CheckOutAt)

	stale := &model.Session{ID: s.ID}
	assert.ErrorIs(t, repo.Close(ctx, nil, stale, t0.Add(2*time.Hour)), repository.ErrSessionAlreadyClosed)

	_, err := repo.FindOpenByPerson(ctx, nil, alice.ID)
	assert.True(t, repository.IsNotFound(err))
}

func TestSessions_ListOpenJoinsPerson(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSessionRepository(db)
	ctx := context.Background()
	alice := seedPerson(t, db, 7, "Alice", "", t0)
	bob := seedPerson(t, db, 8, "Bob", "", t0)

	closed := &model.Session{PersonKey: alice.ID, CheckInAt: t0, Method: model.MethodUserID}
	require.NoError(t, repo.Create(ctx, nil, closed))
	require.NoError(t, repo.Close(ctx, nil, closed, t0.Add(time.Hour)))
	require.NoError(t, repo.Create(ctx, nil, &model.Session{PersonKey: bob.ID, CheckInAt: t0.Add(3 * time.Hour), Method: model.MethodFingerPrint}))
	require.NoError(t, repo.Create(ctx, nil, &model.Session{PersonKey: alice.ID, CheckInAt: t0.Add(2 * time.Hour), Method: model.MethodUserID}))

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.NotNil(t, open[0].Person)
	assert.Equal(t, "Alice", open[0].Person.DisplayName)
	assert.Equal(t, "Bob", open[1].Person.DisplayName)
	assert.Nil(t, open[0].CheckOutAt)
}

func TestSessions_PersonDeleteRestricted(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSessionRepository(db)
	alice := seedPerson(t, db, 7, "Alice", "", t0)
	require.NoError(t, repo.Create(context.Background(), nil, &model.Session{PersonKey: alice.ID, CheckInAt: t0, Method: model.MethodUserID}))

	err := db.Delete(&model.Person{}, alice.ID).Error
	assert.Error(t, err)
}

type foreignKey struct {
	Table    string `gorm:"column:table"`
	From     string `gorm:"column:from"`
	To       string `gorm:"column:to"`
	OnDelete string `gorm:"column:on_delete"`
}

func foreignKeys(t *testing.T, db *gorm.DB, table string) []foreignKey {
	t.Helper()
	var fks []foreignKey
	require.NoError(t, db.Raw("PRAGMA foreign_key_list(" + table + ")").Scan(&fks).Error)
	return fks
}

func TestSchema_SessionReferencesPerson(t *testing.T) {
	db := openTestDB(t)

	assert.Empty(t, foreignKeys(t, db, "persons"), "persons must not reference sessions")

	fks := foreignKeys(t, db, "attendance_sessions")
	require.Len(t, fks, 1)
	assert.Equal(t, foreignKey{Table: "persons", From: "person_key", To: "person_key", OnDelete: "RESTRICT"}, fks[0])

	assert.True(t, db.Migrator().HasConstraint(&model.Session{}, "Person"))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, repository.IsTransient(fmt.Errorf("lock: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, repository.IsTransient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, repository.IsTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, repository.IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, repository.IsTransient(repository.ErrOpenSessionExists))
	assert.False(t, repository.IsTransient(gorm.ErrRecordNotFound))
}
