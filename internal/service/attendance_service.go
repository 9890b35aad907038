package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ucsattendance/internal/dto"
	"ucsattendance/internal/metrics"
	"ucsattendance/internal/model"
	"ucsattendance/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Clock supplies the current time; tests inject a fixed one.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

const (
	opCheckIn  = "check_in"
	opCheckOut = "check_out"
)

type AttendanceService interface {
	// CheckIn processes every element independently and commits the
	// successful ones together. The returned error is non-nil only for an
	// empty batch (ErrEmptyBatch) or a storage fault, in which case nothing
	// from the batch is persisted.
	CheckIn(ctx context.Context, reqs []dto.CheckInRequest) ([]dto.CheckInResult, error)
	CheckOut(ctx context.Context, reqs []dto.CheckOutRequest) ([]dto.CheckOutResult, error)
	ListActive(ctx context.Context) ([]dto.ActiveSessionResponse, error)
}

type attendanceService struct {
	roster   repository.RosterRepository
	sessions repository.SessionRepository
	now      Clock
}

func NewAttendanceService(roster repository.RosterRepository, sessions repository.SessionRepository, clock Clock) AttendanceService {
	if clock == nil {
		clock = SystemClock
	}
	return &attendanceService{roster: roster, sessions: sessions, now: clock}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode). Called with a
// transaction handle it opens a savepoint.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// maxBatchAttempts bounds how often a batch is replayed after a lock conflict.
// Concurrent batches lock person rows in request order, so two batches naming
// the same people in opposite order can deadlock; postgres aborts one of them.
const maxBatchAttempts = 3

// retryTx runs runTx and replays it from scratch while it fails with a
// transient lock conflict. fn must rebuild all of its output on every call.
func retryTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if err == nil || !repository.IsTransient(err) || ctx.Err() != nil {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("batch hit a lock conflict, retrying")
	}
	return err
}

// ── CheckIn ───────────────────────────────────────────────────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, reqs []dto.CheckInRequest) ([]dto.CheckInResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	var results []dto.CheckInResult
	err := retryTx(ctx, s.roster.DB(), opCheckIn, func(tx *gorm.DB) error {
		results = make([]dto.CheckInResult, 0, len(reqs))
		for _, req := range reqs {
			var res dto.CheckInResult
			err := runTx(ctx, tx, func(sp *gorm.DB) error {
				ok, err := s.checkIn(ctx, sp, req)
				if err != nil {
					return err
				}
				res = ok
				return nil
			})
			if err != nil {
				failure, isDomain := asResultError(err)
				if !isDomain {
					return err
				}
				res = failure
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		metrics.ObserveTransition(opCheckIn, "storage_failure")
		return nil, fmt.Errorf("check-in batch: %w", err)
	}

	for _, r := range results {
		metrics.ObserveTransition(opCheckIn, outcomeOf(r))
	}
	return results, nil
}

func (s *attendanceService) checkIn(ctx context.Context, tx *gorm.DB, req dto.CheckInRequest) (*dto.CheckInSuccess, error) {
	person, err := s.resolve(ctx, tx, req.LookupKey)
	if err != nil {
		return nil, err
	}

	open, err := s.sessions.FindOpenByPerson(ctx, tx, person.ID)
	switch {
	case err == nil:
		return nil, alreadyCheckedIn(req.LookupKey, open)
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("find open session: %w", err)
	}

	at := s.now().UTC()
	if req.CheckInAt != nil {
		at = req.CheckInAt.UTC()
	}
	session := &model.Session{
		PersonKey: person.ID,
		CheckInAt: at,
		Method:    MethodFor(req.LookupKey),
	}
	if err := s.sessions.Create(ctx, tx, session); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			return nil, alreadyCheckedIn(req.LookupKey, nil)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.roster.TouchLastActivity(ctx, tx, person, at); err != nil {
		return nil, fmt.Errorf("update last activity: %w", err)
	}

	log.Debug().
		Uint("person_key", person.ID).
		Uint("session_id", session.ID).
		Str("method", session.Method).
		Msg("checked in")

	return &dto.CheckInSuccess{
		Status:           dto.StatusSuccess,
		Message:          "Check-in successful",
		PersonExternalID: person.ExternalID,
		DisplayName:      person.DisplayName,
		CheckInAt:        session.CheckInAt,
		Method:           session.Method,
	}, nil
}

// ── CheckOut ──────────────────────────────────────────────────────────────────

func (s *attendanceService) CheckOut(ctx context.Context, reqs []dto.CheckOutRequest) ([]dto.CheckOutResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	var results []dto.CheckOutResult
	err := retryTx(ctx, s.roster.DB(), opCheckOut, func(tx *gorm.DB) error {
		results = make([]dto.CheckOutResult, 0, len(reqs))
		for _, req := range reqs {
			var res dto.CheckOutResult
			err := runTx(ctx, tx, func(sp *gorm.DB) error {
				ok, err := s.checkOut(ctx, sp, req)
				if err != nil {
					return err
				}
				res = ok
				return nil
			})
			if err != nil {
				failure, isDomain := asResultError(err)
				if !isDomain {
					return err
				}
				res = failure
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		metrics.ObserveTransition(opCheckOut, "storage_failure")
		return nil, fmt.Errorf("check-out batch: %w", err)
	}

	for _, r := range results {
		metrics.ObserveTransition(opCheckOut, outcomeOf(r))
	}
	return results, nil
}

func (s *attendanceService) checkOut(ctx context.Context, tx *gorm.DB, req dto.CheckOutRequest) (*dto.CheckOutSuccess, error) {
	person, err := s.resolve(ctx, tx, req.LookupKey)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.FindOpenByPerson(ctx, tx, person.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newResultError(ErrNoActiveSession, req.LookupKey)
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	at := s.now().UTC()
	if req.CheckOutAt != nil {
		at = req.CheckOutAt.UTC()
	}
	if err := s.sessions.Close(ctx, tx, session, at); err != nil {
		if errors.Is(err, repository.ErrSessionAlreadyClosed) {
			return nil, newResultError(ErrNoActiveSession, req.LookupKey)
		}
		return nil, fmt.Errorf("close session: %w", err)
	}
	if err := s.roster.TouchLastActivity(ctx, tx, person, at); err != nil {
		return nil, fmt.Errorf("update last activity: %w", err)
	}

	// Caller-supplied timestamps are not validated; an inverted pair yields a
	// negative duration.
	duration := at.Sub(session.CheckInAt)

	log.Debug().
		Uint("person_key", person.ID).
		Uint("session_id", session.ID).
		Dur("duration", duration).
		Msg("checked out")

	return &dto.CheckOutSuccess{
		Status:           dto.StatusSuccess,
		Message:          "Check-out successful",
		PersonExternalID: person.ExternalID,
		DisplayName:      person.DisplayName,
		CheckInAt:        session.CheckInAt,
		CheckOutAt:       at,
		Duration:         FormatDuration(duration),
		Method:           session.Method,
		LastActivityAt:   person.LastActivityAt,
	}, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// resolve maps a lookup key to a person. The biometric token wins when it
// matches; the external id is only consulted when the token is absent or
// unknown. Malformed keys fail as InvalidRequest before any storage access.
func (s *attendanceService) resolve(ctx context.Context, tx *gorm.DB, key dto.LookupKey) (*model.Person, error) {
	if err := validate.Struct(key); err != nil {
		return nil, invalidLookup(key, err)
	}
	if !key.HasExternalID() && !key.HasBiometricToken() {
		return nil, newResultError(ErrInvalidRequest, key)
	}

	if key.HasBiometricToken() {
		p, err := s.roster.FindByBiometricToken(ctx, tx, key.BiometricToken)
		if err == nil {
			return p, nil
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("find person by biometric token: %w", err)
		}
	}

	if key.HasExternalID() {
		p, err := s.roster.FindByExternalID(ctx, tx, *key.ExternalID)
		if err == nil {
			return p, nil
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("find person by external id: %w", err)
		}
	}

	return nil, newResultError(ErrPersonNotFound, key)
}

// MethodFor derives the method tag from the lookup parts present in a request.
func MethodFor(key dto.LookupKey) string {
	switch {
	case key.HasExternalID() && key.HasBiometricToken():
		return model.MethodUserIDAndFingerPrint
	case key.HasExternalID():
		return model.MethodUserID
	case key.HasBiometricToken():
		return model.MethodFingerPrint
	default:
		return model.MethodNone
	}
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *attendanceService) ListActive(ctx context.Context) ([]dto.ActiveSessionResponse, error) {
	sessions, err := s.sessions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	out := make([]dto.ActiveSessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		r := dto.ActiveSessionResponse{
			SessionID: sess.ID,
			CheckInAt: sess.CheckInAt,
			Method:    sess.Method,
		}
		if sess.Person != nil {
			r.ExternalID = sess.Person.ExternalID
			r.DisplayName = sess.Person.DisplayName
		}
		out = append(out, r)
	}
	return out, nil
}

func outcomeOf(r any) string {
	if re, ok := r.(*dto.ResultError); ok {
		return re.Code
	}
	return "success"
}
