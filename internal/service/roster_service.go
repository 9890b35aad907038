package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ucsattendance/internal/dto"
	"ucsattendance/internal/model"
	"ucsattendance/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type RosterService interface {
	// List returns every person, most recently active first.
	List(ctx context.Context) ([]dto.PersonResponse, error)
	// Import upserts persons from CSV rows "external_id,display_name[,biometric_token]".
	// Rows are independent; a bad row is reported and skipped.
	Import(ctx context.Context, csvData []byte) (*dto.RosterImportResponse, error)
}

type rosterService struct {
	repo repository.RosterRepository
	now  Clock
}

func NewRosterService(repo repository.RosterRepository, clock Clock) RosterService {
	if clock == nil {
		clock = SystemClock
	}
	return &rosterService{repo: repo, now: clock}
}

func (s *rosterService) List(ctx context.Context) ([]dto.PersonResponse, error) {
	persons, err := s.repo.ListByLastActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	out := make([]dto.PersonResponse, 0, len(persons))
	for _, p := range persons {
		out = append(out, dto.PersonResponse{
			PersonKey:      p.ID,
			ExternalID:     p.ExternalID,
			DisplayName:    p.DisplayName,
			BiometricToken: p.BiometricToken,
			LastActivityAt: p.LastActivityAt,
		})
	}
	return out, nil
}

func (s *rosterService) Import(ctx context.Context, csvData []byte) (*dto.RosterImportResponse, error) {
	r := csv.NewReader(bytes.NewReader(csvData))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	resp := &dto.RosterImportResponse{Errors: []dto.RosterImportError{}}
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed CSV at line %d: %v", ErrInvalidRequest, line, err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}

		row, err := parseRosterRow(rec)
		if err != nil {
			resp.Errors = append(resp.Errors, dto.RosterImportError{Line: line, Message: err.Error()})
			continue
		}

		extID := row.ExternalID
		p := &model.Person{
			ExternalID:     &extID,
			DisplayName:    row.DisplayName,
			LastActivityAt: s.now().UTC(),
		}
		// An empty token column leaves an enrolled token in place.
		if row.BiometricToken != "" {
			token := row.BiometricToken
			p.BiometricToken = &token
		}

		created, err := s.repo.Upsert(ctx, p)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Int64("external_id", extID).Msg("roster import row failed")
			resp.Errors = append(resp.Errors, dto.RosterImportError{Line: line, Message: err.Error()})
			continue
		}
		if created {
			resp.Created++
		} else {
			resp.Updated++
		}
	}
	return resp, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "external_id")
}

func parseRosterRow(rec []string) (*dto.RosterImportRow, error) {
	if len(rec) < 2 {
		return nil, errors.New("expected at least external_id and display_name")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid external_id %q", rec[0])
	}
	row := &dto.RosterImportRow{
		ExternalID:  id,
		DisplayName: strings.TrimSpace(rec[1]),
	}
	if len(rec) > 2 {
		row.BiometricToken = strings.TrimSpace(rec[2])
	}
	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("field %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return nil, err
	}
	return row, nil
}
