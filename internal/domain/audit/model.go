package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinrec/clinrec/internal/domain/access"
)

// Actions recorded in the audit trail. Access evaluations produce exactly one
// of the first two; clinical mutations add their own entry on top of the
// access entry.
const (
	ActionAccessGranted      = "ehr_access_granted"
	ActionAccessDenied       = "unauthorized_ehr_access_attempt"
	ActionDiagnosisCreated   = "diagnosis_created"
	ActionDiagnosisResolved  = "diagnosis_resolved"
	ActionVitalSignsRecorded = "vital_signs_recorded"
	ActionHistoryUpdated     = "medical_history_updated"
)

// Entry is one immutable audit record. Entries are write-once; nothing in
// this package updates or deletes them.
type Entry struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ActorID        uuid.UUID   `db:"actor_id" json:"actor_id"`
	ActorRole      access.Role `db:"actor_role" json:"actor_role"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	Action         string      `db:"action" json:"action"`
	Reason         string      `db:"reason" json:"reason"`
	Emergency      bool        `db:"emergency" json:"emergency"`
	RequiresReview bool        `db:"requires_review" json:"requires_review"`
	RequestID      string      `db:"request_id" json:"request_id,omitempty"`
	Recorded       time.Time   `db:"recorded" json:"recorded"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}
