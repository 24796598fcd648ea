package access

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles the engine understands. Unknown role
// strings are rejected at the boundary by ParseRole.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string received from the authentication layer.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor is the authenticated caller as resolved by the auth layer. ProfileID
// is the clinical-profile identity (patient or doctor profile), distinct from
// the account ID the caller authenticated with. Immutable for the duration of
// a request.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	ProfileID uuid.UUID `json:"profile_id"`
}

// AppointmentStatus is the lifecycle status of an appointment as recorded by
// the scheduling system. The engine consumes it read-only.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Appointment is the relationship fact between one doctor and one patient
// that the policy evaluator scores against the temporal access windows.
type Appointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
}

// Decision reasons. Every evaluation emits exactly one of these; the audit
// recorder persists the reason verbatim.
const (
	ReasonSelfAccess     = "self_access"
	ReasonAdminOverride  = "admin_override"
	ReasonValidWindow    = "valid_appointment_window"
	ReasonNoValidWindow  = "no_valid_appointment_in_timeframe"
	ReasonEmergency      = "emergency_override"
	ReasonNoRelationship = "access_denied_no_relationship"
)

// Decision is the outcome of a policy evaluation. RequiresReview is set only
// for emergency overrides and must be surfaced by the caller to an
// administrator review queue.
type Decision struct {
	Granted        bool   `json:"granted"`
	Reason         string `json:"reason"`
	RequiresReview bool   `json:"requires_review"`
}
