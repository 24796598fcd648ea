package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DiagnosisRepository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	// Resolve flips resolved to true if and only if it is currently false,
	// setting resolution_date and notes atomically. Returns false when the
	// diagnosis was already resolved.
	Resolve(ctx context.Context, id uuid.UUID, notes string, at time.Time) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error)
}

type VitalSignsRepository interface {
	Create(ctx context.Context, v *VitalSigns) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, u *HistoryUpdate) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryUpdate, int, error)
}
