package identity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// User is a doctor or patient account. Doctor-only fields are empty on
// patient rows and vice versa.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`

	// Doctor fields.
	Specialization string `json:"specialization,omitempty" db:"specialization"`
	LicenseNumber  string `json:"licenseNumber,omitempty" db:"license_number"`
	PhoneNumber    string `json:"phoneNumber,omitempty" db:"phone_number"`

	// Patient fields.
	DoctorID    *uuid.UUID `json:"doctorId,omitempty" db:"doctor_id"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	UniqueID    string     `json:"uniqueId,omitempty" db:"unique_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
