package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*User, error)
	ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*User, int, error)
}
