package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no profile matches the given identifier.
var ErrNotFound = errors.New("profile not found")

type Repo interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*PatientProfile, error)
	GetPatientByAccount(ctx context.Context, accountID uuid.UUID) (*PatientProfile, error)
	CreatePatient(ctx context.Context, p *PatientProfile) error
	// UpdatePatientHistory overwrites the tracked history fields present in
	// values; unknown field names are rejected.
	UpdatePatientHistory(ctx context.Context, id uuid.UUID, values map[string]string) error

	GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	GetDoctorByAccount(ctx context.Context, accountID uuid.UUID) (*DoctorProfile, error)
	CreateDoctor(ctx context.Context, d *DoctorProfile) error
}
