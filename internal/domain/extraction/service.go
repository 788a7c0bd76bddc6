package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medbuddy/medbuddy/internal/domain/identity"
	"github.com/medbuddy/medbuddy/internal/domain/medication"
)

const (
	// maxSummaryLength bounds the discharge summary so the prompt stays
	// within the model's context window.
	maxSummaryLength = 10000

	extractionMaxTokens = 1000

	// defaultCourseDays is the assumed course length when the summary
	// does not pin one down.
	defaultCourseDays = 7
)

// Generator produces a completion for a system/user message pair.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// PatientDirectory resolves patient accounts. Satisfied by identity.Service.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	gen      Generator
	patients PatientDirectory
	meds     *medication.Service
	log      zerolog.Logger
}

func NewService(gen Generator, patients PatientDirectory, meds *medication.Service, log zerolog.Logger) *Service {
	return &Service{gen: gen, patients: patients, meds: meds, log: log}
}

// ProcessDischarge extracts medications from a discharge summary using the
// bullet-list prompt and stores them for the patient. Extracted records are
// open-ended: no end date unless the summary names a duration.
func (s *Service) ProcessDischarge(ctx context.Context, patientID uuid.UUID, summary string) ([]*medication.Record, error) {
	if err := s.validate(ctx, patientID, summary); err != nil {
		return nil, err
	}

	reply, err := s.gen.Generate(ctx, bulletSystemPrompt, bulletPrompt(summary), extractionMaxTokens)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("reply_len", len(reply)).Msg("received extraction reply")

	meds, err := Parse(DialectBullet, reply)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	recs := make([]*medication.Record, len(meds))
	for i, med := range meds {
		recs[i] = &medication.Record{
			PatientID:    patientID,
			Name:         med.Name,
			Dosage:       med.Dosage,
			Frequency:    med.Frequency,
			Duration:     med.Duration,
			Instructions: med.Instructions,
			StartDate:    now,
		}
	}
	return s.store(ctx, patientID, recs)
}

// ProcessSummary extracts medications using the JSON prompt. Records get a
// seven-day course, and instructions are derived from dosage and frequency
// when the reply does not supply them.
func (s *Service) ProcessSummary(ctx context.Context, patientID uuid.UUID, summary string) ([]*medication.Record, error) {
	if err := s.validate(ctx, patientID, summary); err != nil {
		return nil, err
	}

	reply, err := s.gen.Generate(ctx, jsonSystemPrompt, jsonPrompt(summary), extractionMaxTokens)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("reply_len", len(reply)).Msg("received extraction reply")

	meds, err := Parse(DialectJSON, reply)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	end := now.Add(defaultCourseDays * 24 * time.Hour)
	recs := make([]*medication.Record, len(meds))
	for i, med := range meds {
		instructions := med.Instructions
		if instructions == "" {
			instructions = fmt.Sprintf("Take %s %s", med.Dosage, med.Frequency)
		}
		recs[i] = &medication.Record{
			PatientID:    patientID,
			Name:         med.Name,
			Dosage:       med.Dosage,
			Frequency:    med.Frequency,
			Duration:     med.Duration,
			Instructions: instructions,
			StartDate:    now,
			EndDate:      &end,
		}
	}
	return s.store(ctx, patientID, recs)
}

func (s *Service) validate(ctx context.Context, patientID uuid.UUID, summary string) error {
	if strings.TrimSpace(summary) == "" || patientID == uuid.Nil {
		return &Error{Kind: KindValidation, Detail: "Discharge summary and patient ID are required"}
	}
	if len(summary) > maxSummaryLength {
		return &Error{Kind: KindValidation, Detail: "Discharge summary is too long. Please limit to 10000 characters."}
	}

	u, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPatientNotFound
		}
		return err
	}
	if u.Role != identity.RolePatient {
		return ErrPatientNotFound
	}
	return nil
}

func (s *Service) store(ctx context.Context, patientID uuid.UUID, recs []*medication.Record) ([]*medication.Record, error) {
	if err := s.meds.CreateBatch(ctx, recs); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", patientID.String()).
		Int("medications", len(recs)).
		Msg("stored extracted medications")
	return recs, nil
}
