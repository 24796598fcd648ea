package clinical

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

var validSeverities = map[Severity]bool{
	SeverityMild: true, SeverityModerate: true, SeveritySevere: true, SeverityCritical: true,
}

type DiagnosisStatus string

const (
	StatusProvisional  DiagnosisStatus = "provisional"
	StatusConfirmed    DiagnosisStatus = "confirmed"
	StatusDifferential DiagnosisStatus = "differential"
	StatusRuleOut      DiagnosisStatus = "rule_out"
)

var validDiagnosisStatuses = map[DiagnosisStatus]bool{
	StatusProvisional: true, StatusConfirmed: true, StatusDifferential: true, StatusRuleOut: true,
}

// Diagnosis maps to the diagnosis table. Mutated only by the creating
// doctor; the resolved flag moves in one direction only.
type Diagnosis struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	PatientID          uuid.UUID       `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	AppointmentID      *uuid.UUID      `db:"appointment_id" json:"appointment_id,omitempty"`
	PrimaryDiagnosis   string          `db:"primary_diagnosis" json:"primary_diagnosis"`
	SecondaryDiagnoses []string        `db:"secondary_diagnoses" json:"secondary_diagnoses"`
	ICD10Code          *string         `db:"icd_10_code" json:"icd_10_code,omitempty"`
	Severity           Severity        `db:"severity" json:"severity"`
	Status             DiagnosisStatus `db:"status" json:"status"`
	ClinicalFindings   string          `db:"clinical_findings" json:"clinical_findings"`
	TreatmentPlan      string          `db:"treatment_plan" json:"treatment_plan"`
	FollowUpRequired   bool            `db:"follow_up_required" json:"follow_up_required"`
	FollowUpDate       *time.Time      `db:"follow_up_date" json:"follow_up_date,omitempty"`
	FollowUpNotes      *string         `db:"follow_up_notes" json:"follow_up_notes,omitempty"`
	Resolved           bool            `db:"resolved" json:"resolved"`
	ResolutionDate     *time.Time      `db:"resolution_date" json:"resolution_date,omitempty"`
	ResolutionNotes    *string         `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

var icd10Pattern = regexp.MustCompile(`^[A-TV-Z][0-9][0-9A-Z](\.[0-9A-Z]{1,4})?$`)

func (d *Diagnosis) Validate() error {
	if d.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	if len(d.PrimaryDiagnosis) < 10 {
		return &ValidationError{Field: "primary_diagnosis", Reason: "must be at least 10 characters"}
	}
	if !validSeverities[d.Severity] {
		return &ValidationError{Field: "severity", Reason: "must be one of mild, moderate, severe, critical"}
	}
	if !validDiagnosisStatuses[d.Status] {
		return &ValidationError{Field: "status", Reason: "must be one of provisional, confirmed, differential, rule_out"}
	}
	if d.ICD10Code != nil && !icd10Pattern.MatchString(*d.ICD10Code) {
		return &ValidationError{Field: "icd_10_code", Reason: "not a valid ICD-10 code"}
	}
	return nil
}

// VitalSigns is a timestamped measurement snapshot, immutable once created.
// BMI is always derived from height and weight, never taken from the caller.
type VitalSigns struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	RecordedByDoctorID *uuid.UUID `db:"recorded_by_doctor_id" json:"recorded_by_doctor_id,omitempty"`
	SystolicBP         *int       `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP        *int       `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate          *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	Temperature        *float64   `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate    *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation   *float64   `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	HeightCm           *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg           *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	BMI                *float64   `db:"bmi" json:"bmi,omitempty"`
	PainScale          *int       `db:"pain_scale" json:"pain_scale,omitempty"`
	PainLocation       *string    `db:"pain_location" json:"pain_location,omitempty"`
	MeasuredAt         time.Time  `db:"measured_at" json:"measured_at"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

type intRange struct{ min, max int }

type floatRange struct{ min, max float64 }

// Medical plausibility ranges. A value outside its range fails the whole
// write naming the offending field.
var (
	systolicRange    = intRange{60, 250}
	diastolicRange   = intRange{40, 150}
	heartRateRange   = intRange{30, 200}
	respiratoryRange = intRange{8, 40}
	painScaleRange   = intRange{0, 10}
	temperatureRange = floatRange{35, 45}
	saturationRange  = floatRange{70, 100}
	heightRange      = floatRange{30, 300}
	weightRange      = floatRange{1, 500}
)

func checkInt(field string, v *int, r intRange) error {
	if v != nil && (*v < r.min || *v > r.max) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d", r.min, r.max)}
	}
	return nil
}

func checkFloat(field string, v *float64, r floatRange) error {
	if v != nil && (*v < r.min || *v > r.max) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %g and %g", r.min, r.max)}
	}
	return nil
}

func (v *VitalSigns) Validate() error {
	if v.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	checks := []error{
		checkInt("systolic_bp", v.SystolicBP, systolicRange),
		checkInt("diastolic_bp", v.DiastolicBP, diastolicRange),
		checkInt("heart_rate", v.HeartRate, heartRateRange),
		checkFloat("temperature", v.Temperature, temperatureRange),
		checkInt("respiratory_rate", v.RespiratoryRate, respiratoryRange),
		checkFloat("oxygen_saturation", v.OxygenSaturation, saturationRange),
		checkFloat("height_cm", v.HeightCm, heightRange),
		checkFloat("weight_kg", v.WeightKg, weightRange),
		checkInt("pain_scale", v.PainScale, painScaleRange),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// ComputeBMI derives bmi from the snapshot's own height and weight,
// discarding any caller-supplied value. Left nil unless both are present.
func (v *VitalSigns) ComputeBMI() {
	v.BMI = nil
	if v.HeightCm == nil || v.WeightKg == nil {
		return
	}
	heightM := *v.HeightCm / 100
	bmi := math.Round(*v.WeightKg/(heightM*heightM)*100) / 100
	v.BMI = &bmi
}

type UpdateType string

const (
	UpdateInitialRegistration UpdateType = "initial_registration"
	UpdateAppointment         UpdateType = "appointment_update"
	UpdatePatientSelf         UpdateType = "patient_self_update"
	UpdateDoctor              UpdateType = "doctor_update"
)

// HistoryUpdate is one append-only record of a change to a patient's history
// fields, with the before and after values of each changed field.
type HistoryUpdate struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	PatientID         uuid.UUID         `db:"patient_id" json:"patient_id"`
	UpdateType        UpdateType        `db:"update_type" json:"update_type"`
	UpdatedFields     []string          `db:"updated_fields" json:"updated_fields"`
	OldValues         map[string]string `db:"old_values" json:"old_values"`
	NewValues         map[string]string `db:"new_values" json:"new_values"`
	Notes             string            `db:"notes" json:"notes"`
	UpdatedByDoctorID *uuid.UUID        `db:"updated_by_doctor_id" json:"updated_by_doctor_id,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}
