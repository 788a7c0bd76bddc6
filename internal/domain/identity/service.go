package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medbuddy/medbuddy/internal/platform/auth"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrUniqueIDTaken      = errors.New("a patient with this unique ID already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// defaultPatientPassword is assigned to patients registered by a doctor.
// Patients are expected to change it on first login.
const defaultPatientPassword = "patient123"

type Service struct {
	users  Repository
	secret []byte
}

func NewService(users Repository, secret []byte) *Service {
	return &Service{users: users, secret: secret}
}

type DoctorSignup struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"licenseNumber"`
	PhoneNumber    string `json:"phoneNumber"`
}

type PatientSignup struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	UniqueID    string     `json:"uniqueId"`
	DoctorID    *uuid.UUID `json:"doctorId"`
}

// RegisterDoctor creates a doctor account and returns it with a session token.
func (s *Service) RegisterDoctor(ctx context.Context, in DoctorSignup) (*User, string, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", fmt.Errorf("name, email and password are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, "", fmt.Errorf("invalid email format")
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	u := &User{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           RoleDoctor,
		Specialization: in.Specialization,
		LicenseNumber:  in.LicenseNumber,
		PhoneNumber:    in.PhoneNumber,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	return s.withToken(u)
}

// RegisterPatient creates a self-registered patient account.
func (s *Service) RegisterPatient(ctx context.Context, in PatientSignup) (*User, string, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", fmt.Errorf("name, email and password are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, "", fmt.Errorf("invalid email format")
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, "", err
	}
	if in.UniqueID != "" {
		if err := s.checkUniqueIDFree(ctx, in.UniqueID); err != nil {
			return nil, "", err
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         RolePatient,
		DateOfBirth:  in.DateOfBirth,
		UniqueID:     in.UniqueID,
		DoctorID:     in.DoctorID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	return s.withToken(u)
}

// RegisterPatientForDoctor creates a patient on behalf of a doctor. The
// account gets the default password, and when no email is given one is
// derived from the unique ID so the row still satisfies the email
// uniqueness constraint.
func (s *Service) RegisterPatientForDoctor(ctx context.Context, doctorID uuid.UUID, in PatientSignup) (*User, error) {
	if in.Name == "" || in.UniqueID == "" {
		return nil, fmt.Errorf("name and uniqueId are required")
	}
	if err := s.checkUniqueIDFree(ctx, in.UniqueID); err != nil {
		return nil, err
	}

	email := in.Email
	if email == "" {
		email = in.UniqueID + "@patient.local"
	} else if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("invalid email format")
	}
	if err := s.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}

	password := in.Password
	if password == "" {
		password = defaultPatientPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         RolePatient,
		DateOfBirth:  in.DateOfBirth,
		UniqueID:     in.UniqueID,
		DoctorID:     &doctorID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns the account with a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	return s.withToken(u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*User, int, error) {
	return s.users.ListPatientsByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) withToken(u *User) (*User, string, error) {
	token, err := auth.IssueToken(s.secret, u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (s *Service) checkUniqueIDFree(ctx context.Context, uniqueID string) error {
	_, err := s.users.GetByUniqueID(ctx, uniqueID)
	if err == nil {
		return ErrUniqueIDTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
