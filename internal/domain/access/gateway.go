package access

import (
	"context"

	"github.com/google/uuid"
)

// AppointmentGateway supplies the relationship facts the policy evaluator
// scores. Implementations must return all appointments for the ordered
// (doctor, patient) pair regardless of status, newest first, and an empty
// slice when none exist. Status filtering is the evaluator's job; keeping it
// out of the gateway keeps the windowing logic in one testable place.
type AppointmentGateway interface {
	FindAppointments(ctx context.Context, doctorID, patientID uuid.UUID) ([]*Appointment, error)
}
