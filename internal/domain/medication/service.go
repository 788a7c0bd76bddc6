package medication

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ErrReminderNotFound is returned when a reminder slot ID does not exist on
// the addressed record.
var ErrReminderNotFound = fmt.Errorf("reminder not found")

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Service struct {
	records Repository
}

func NewService(records Repository) *Service {
	return &Service{records: records}
}

// prepare fills defaults and derives reminder slots when the record carries
// none, then stamps slot IDs so individual slots can be addressed later.
func (s *Service) prepare(rec *Record) error {
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patientId is required")
	}
	if rec.Name == "" {
		return fmt.Errorf("name is required")
	}
	if rec.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if rec.Frequency == "" {
		return fmt.Errorf("frequency is required")
	}
	if rec.Duration == "" {
		rec.Duration = DurationUnspecified
	}
	if rec.StartDate.IsZero() {
		rec.StartDate = time.Now()
	}
	if len(rec.Reminders) == 0 {
		rec.Reminders = Schedule(rec.Frequency)
	}
	for i := range rec.Reminders {
		if rec.Reminders[i].ID == uuid.Nil {
			rec.Reminders[i].ID = uuid.New()
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, rec *Record) error {
	if err := s.prepare(rec); err != nil {
		return err
	}
	return s.records.Create(ctx, rec)
}

// CreateBatch validates and persists a set of records atomically. A failure
// on any record leaves the database untouched.
func (s *Service) CreateBatch(ctx context.Context, recs []*Record) error {
	for _, rec := range recs {
		if err := s.prepare(rec); err != nil {
			return err
		}
	}
	return s.records.CreateBatch(ctx, recs)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

// Update rewrites record fields. A changed frequency discards the existing
// slots and derives a fresh schedule.
func (s *Service) Update(ctx context.Context, rec *Record) error {
	existing, err := s.records.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	if rec.Frequency != "" && rec.Frequency != existing.Frequency {
		rec.Reminders = Schedule(rec.Frequency)
	} else if len(rec.Reminders) == 0 {
		rec.Reminders = existing.Reminders
	}
	for i := range rec.Reminders {
		if rec.Reminders[i].ID == uuid.Nil {
			rec.Reminders[i].ID = uuid.New()
		}
	}
	return s.records.Update(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

// AddReminder appends a new slot to the record and returns the updated record.
func (s *Service) AddReminder(ctx context.Context, medID uuid.UUID, hhmm string, enabled bool) (*Record, error) {
	if !timeOfDay.MatchString(hhmm) {
		return nil, fmt.Errorf("invalid reminder time %q, expected HH:MM", hhmm)
	}

	rec, err := s.records.GetByID(ctx, medID)
	if err != nil {
		return nil, err
	}

	rec.Reminders = append(rec.Reminders, ReminderSlot{
		ID:      uuid.New(),
		Time:    hhmm,
		Enabled: enabled,
	})
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateReminder rewrites the time and/or enabled flag of one slot. Nil
// arguments leave the corresponding field unchanged.
func (s *Service) UpdateReminder(ctx context.Context, medID, reminderID uuid.UUID, hhmm *string, enabled *bool) (*Record, error) {
	if hhmm != nil && !timeOfDay.MatchString(*hhmm) {
		return nil, fmt.Errorf("invalid reminder time %q, expected HH:MM", *hhmm)
	}

	rec, err := s.records.GetByID(ctx, medID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range rec.Reminders {
		if rec.Reminders[i].ID == reminderID {
			if hhmm != nil {
				rec.Reminders[i].Time = *hhmm
			}
			if enabled != nil {
				rec.Reminders[i].Enabled = *enabled
			}
			found = true
			break
		}
	}
	if !found {
		return nil, ErrReminderNotFound
	}

	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteReminder removes one slot from the record.
func (s *Service) DeleteReminder(ctx context.Context, medID, reminderID uuid.UUID) (*Record, error) {
	rec, err := s.records.GetByID(ctx, medID)
	if err != nil {
		return nil, err
	}

	remaining := rec.Reminders[:0]
	found := false
	for _, slot := range rec.Reminders {
		if slot.ID == reminderID {
			found = true
			continue
		}
		remaining = append(remaining, slot)
	}
	if !found {
		return nil, ErrReminderNotFound
	}
	rec.Reminders = remaining

	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ToggleReminder sets the enabled flag of one slot.
func (s *Service) ToggleReminder(ctx context.Context, medID, reminderID uuid.UUID, enabled bool) (*Record, error) {
	return s.UpdateReminder(ctx, medID, reminderID, nil, &enabled)
}

// DueAt returns the reminders firing at the given wall-clock time.
func (s *Service) DueAt(ctx context.Context, hhmm string) ([]*DueReminder, error) {
	return s.records.ListDueAt(ctx, hhmm)
}
