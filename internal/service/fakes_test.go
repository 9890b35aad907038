package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ucsattendance/internal/model"
	"ucsattendance/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ── In-memory RosterRepository ───────────────────────────────────────────────

type fakeRoster struct {
	persons []*model.Person
	nextKey uint
	failOn  string // method name that returns errStorage
	// conflicts is how many FindByExternalID calls fail with a deadlock
	// before lookups succeed again.
	conflicts int
}

var errStorage = errors.New("connection reset by peer")

func newFakeRoster() *fakeRoster { return &fakeRoster{nextKey: 1} }

func (r *fakeRoster) add(extID int64, name, token string) *model.Person {
	p := &model.Person{ID: r.nextKey, DisplayName: name}
	r.nextKey++
	if extID != 0 {
		p.ExternalID = &extID
	}
	if token != "" {
		p.BiometricToken = &token
	}
	r.persons = append(r.persons, p)
	return p
}

func (r *fakeRoster) byKey(key uint) *model.Person {
	for _, p := range r.persons {
		if p.ID == key {
			return p
		}
	}
	return nil
}

func (r *fakeRoster) FindByExternalID(_ context.Context, _ *gorm.DB, id int64) (*model.Person, error) {
	if r.failOn == "FindByExternalID" {
		return nil, errStorage
	}
	if r.conflicts > 0 {
		r.conflicts--
		return nil, fmt.Errorf("find person: %w", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
	}
	for _, p := range r.persons {
		if p.ExternalID != nil && *p.ExternalID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoster) FindByBiometricToken(_ context.Context, _ *gorm.DB, token string) (*model.Person, error) {
	for _, p := range r.persons {
		if p.BiometricToken != nil && *p.BiometricToken == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoster) TouchLastActivity(_ context.Context, _ *gorm.DB, p *model.Person, at time.Time) error {
	if r.failOn == "TouchLastActivity" {
		return errStorage
	}
	stored := r.byKey(p.ID)
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	stored.LastActivityAt = at
	p.LastActivityAt = at
	return nil
}

func (r *fakeRoster) ListByLastActivity(_ context.Context) ([]model.Person, error) {
	out := make([]model.Person, 0, len(r.persons))
	for _, p := range r.persons {
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRoster) Upsert(_ context.Context, p *model.Person) (bool, error) {
	if r.failOn == "Upsert" {
		return false, errStorage
	}
	for _, existing := range r.persons {
		if existing.ExternalID != nil && p.ExternalID != nil && *existing.ExternalID == *p.ExternalID {
			existing.DisplayName = p.DisplayName
			if p.BiometricToken != nil {
				existing.BiometricToken = p.BiometricToken
			}
			*p = *existing
			return false, nil
		}
	}
	cp := *p
	cp.ID = r.nextKey
	r.nextKey++
	r.persons = append(r.persons, &cp)
	*p = cp
	return true, nil
}

func (r *fakeRoster) DB() *gorm.DB { return nil }

// ── In-memory SessionRepository ──────────────────────────────────────────────

type fakeSessions struct {
	roster   *fakeRoster
	sessions []*model.Session
	nextID   uint
	// createErr and closeErr, when set, are returned instead of writing.
	createErr error
	closeErr  error
}

func newFakeSessions(roster *fakeRoster) *fakeSessions {
	return &fakeSessions{roster: roster, nextID: 1}
}

func (s *fakeSessions) open(personKey uint) []*model.Session {
	var out []*model.Session
	for _, sess := range s.sessions {
		if sess.PersonKey == personKey && sess.CheckOutAt == nil {
			out = append(out, sess)
		}
	}
	return out
}

func (s *fakeSessions) FindOpenByPerson(_ context.Context, _ *gorm.DB, personKey uint) (*model.Session, error) {
	if open := s.open(personKey); len(open) > 0 {
		cp := *open[0]
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeSessions) Create(_ context.Context, _ *gorm.DB, sess *model.Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	if len(s.open(sess.PersonKey)) > 0 {
		return repository.ErrOpenSessionExists
	}
	sess.ID = s.nextID
	s.nextID++
	cp := *sess
	s.sessions = append(s.sessions, &cp)
	return nil
}

func (s *fakeSessions) Close(_ context.Context, _ *gorm.DB, sess *model.Session, at time.Time) error {
	if s.closeErr != nil {
		return s.closeErr
	}
	for _, stored := range s.sessions {
		if stored.ID == sess.ID {
			if stored.CheckOutAt != nil {
				return repository.ErrSessionAlreadyClosed
			}
			stored.CheckOutAt = &at
			sess.CheckOutAt = &at
			return nil
		}
	}
	return repository.ErrSessionAlreadyClosed
}

func (s *fakeSessions) ListOpen(_ context.Context) ([]model.Session, error) {
	var out []model.Session
	for _, sess := range s.sessions {
		if sess.CheckOutAt == nil {
			cp := *sess
			cp.Person = s.roster.byKey(sess.PersonKey)
			out = append(out, cp)
		}
	}
	return out, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type fixedClock struct{ t time.Time }

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func int64p(v int64) *int64 { return &v }
