package medication

import (
	"time"

	"github.com/google/uuid"
)

// DurationUnspecified is stored when the source text gives no course length.
const DurationUnspecified = "Duration not specified"

// Record maps to the medication_record table: one prescribed medication for
// one patient, with its reminder slots embedded.
type Record struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	PatientID    uuid.UUID      `db:"patient_id" json:"patientId"`
	Name         string         `db:"name" json:"name"`
	Dosage       string         `db:"dosage" json:"dosage"`
	Frequency    string         `db:"frequency" json:"frequency"`
	Duration     string         `db:"duration" json:"duration"`
	Instructions string         `db:"instructions" json:"instructions"`
	StartDate    time.Time      `db:"start_date" json:"startDate"`
	EndDate      *time.Time     `db:"end_date" json:"endDate,omitempty"`
	Reminders    []ReminderSlot `db:"reminders" json:"reminders"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// ReminderSlot is a single daily reminder time for a medication. Slots are
// stored as a JSON array on the record; the ID lets clients address one slot
// for update, delete, or toggle.
type ReminderSlot struct {
	ID      uuid.UUID `json:"id"`
	Time    string    `json:"time"` // "HH:MM", 24-hour
	Enabled bool      `json:"enabled"`
}

// DueReminder is a flattened view of one enabled reminder slot on an active
// record, produced for the dispatcher.
type DueReminder struct {
	MedicationID uuid.UUID `json:"medicationId"`
	PatientID    uuid.UUID `json:"patientId"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Time         string    `json:"time"`
}
