package identity

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile is the clinical-profile identity records are scoped to. It
// is owned by exactly one account; the profile id and the account id are
// distinct identifiers and must never be conflated.
type PatientProfile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Age       *int      `db:"age" json:"age,omitempty"`
	Gender    *string   `db:"gender" json:"gender,omitempty"`
	BloodType *string   `db:"blood_type" json:"blood_type,omitempty"`
	HeightCm  *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg  *float64  `db:"weight_kg" json:"weight_kg,omitempty"`

	MedicalHistory     string `db:"medical_history" json:"medical_history"`
	Allergies          string `db:"allergies" json:"allergies"`
	CurrentMedications string `db:"current_medications" json:"current_medications"`
	FamilyHistory      string `db:"family_history" json:"family_history"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// History field names as they appear in history-update diffs.
const (
	FieldMedicalHistory     = "medical_history"
	FieldAllergies          = "allergies"
	FieldCurrentMedications = "current_medications"
	FieldFamilyHistory      = "family_history"
)

// HistoryFields lists the patient fields tracked by history updates, in a
// stable order.
var HistoryFields = []string{
	FieldMedicalHistory,
	FieldAllergies,
	FieldCurrentMedications,
	FieldFamilyHistory,
}

// HistoryValues returns the current value of each tracked history field.
func (p *PatientProfile) HistoryValues() map[string]string {
	return map[string]string{
		FieldMedicalHistory:     p.MedicalHistory,
		FieldAllergies:          p.Allergies,
		FieldCurrentMedications: p.CurrentMedications,
		FieldFamilyHistory:      p.FamilyHistory,
	}
}

// DoctorProfile is the clinical identity appointments and diagnoses refer
// to, distinct from the doctor's account id.
type DoctorProfile struct {
	ID             uuid.UUID `db:"id" json:"id"`
	AccountID      uuid.UUID `db:"account_id" json:"account_id"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	LicenseNumber  *string   `db:"license_number" json:"license_number,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
