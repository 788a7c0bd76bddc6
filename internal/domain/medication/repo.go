package medication

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	// CreateBatch persists all records in one transaction: either every
	// record is stored or none are.
	CreateBatch(ctx context.Context, recs []*Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListDueAt returns one entry per enabled reminder slot whose time
	// equals hhmm on records active at the given instant.
	ListDueAt(ctx context.Context, hhmm string) ([]*DueReminder, error)
}
