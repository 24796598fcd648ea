package clinical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinrec/clinrec/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Diagnosis --

type DiagnosisRepoPG struct {
	pool *pgxpool.Pool
}

func NewDiagnosisRepoPG(pool *pgxpool.Pool) *DiagnosisRepoPG {
	return &DiagnosisRepoPG{pool: pool}
}

const diagnosisCols = `id, patient_id, doctor_id, appointment_id, primary_diagnosis,
	secondary_diagnoses, icd_10_code, severity, status, clinical_findings, treatment_plan,
	follow_up_required, follow_up_date, follow_up_notes,
	resolved, resolution_date, resolution_notes, created_at, updated_at`

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(
		&d.ID, &d.PatientID, &d.DoctorID, &d.AppointmentID, &d.PrimaryDiagnosis,
		&d.SecondaryDiagnoses, &d.ICD10Code, &d.Severity, &d.Status, &d.ClinicalFindings, &d.TreatmentPlan,
		&d.FollowUpRequired, &d.FollowUpDate, &d.FollowUpNotes,
		&d.Resolved, &d.ResolutionDate, &d.ResolutionNotes, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *DiagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	const q = `INSERT INTO diagnosis (id, patient_id, doctor_id, appointment_id,
			primary_diagnosis, secondary_diagnoses, icd_10_code, severity, status,
			clinical_findings, treatment_plan, follow_up_required, follow_up_date, follow_up_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := connFor(ctx, r.pool).Exec(ctx, q,
		d.ID, d.PatientID, d.DoctorID, d.AppointmentID,
		d.PrimaryDiagnosis, d.SecondaryDiagnoses, d.ICD10Code, d.Severity, d.Status,
		d.ClinicalFindings, d.TreatmentPlan, d.FollowUpRequired, d.FollowUpDate, d.FollowUpNotes,
	)
	return err
}

func (r *DiagnosisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	q := fmt.Sprintf("SELECT %s FROM diagnosis WHERE id = $1", diagnosisCols)
	return scanDiagnosis(connFor(ctx, r.pool).QueryRow(ctx, q, id))
}

func (r *DiagnosisRepoPG) Resolve(ctx context.Context, id uuid.UUID, notes string, at time.Time) (bool, error) {
	// Compare-and-set keeps the transition one-directional under concurrent
	// resolve attempts.
	const q = `UPDATE diagnosis
		SET resolved = true, resolution_date = $2, resolution_notes = $3, updated_at = NOW()
		WHERE id = $1 AND resolved = false`
	tag, err := connFor(ctx, r.pool).Exec(ctx, q, id, at, notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DiagnosisRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx,
		"SELECT COUNT(*) FROM diagnosis WHERE patient_id = $1", patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM diagnosis WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", diagnosisCols)
	rows, err := connFor(ctx, r.pool).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// -- VitalSigns --

type VitalSignsRepoPG struct {
	pool *pgxpool.Pool
}

func NewVitalSignsRepoPG(pool *pgxpool.Pool) *VitalSignsRepoPG {
	return &VitalSignsRepoPG{pool: pool}
}

const vitalsCols = `id, patient_id, recorded_by_doctor_id, systolic_bp, diastolic_bp, heart_rate,
	temperature, respiratory_rate, oxygen_saturation, height_cm, weight_kg, bmi,
	pain_scale, pain_location, measured_at, created_at`

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(
		&v.ID, &v.PatientID, &v.RecordedByDoctorID, &v.SystolicBP, &v.DiastolicBP, &v.HeartRate,
		&v.Temperature, &v.RespiratoryRate, &v.OxygenSaturation, &v.HeightCm, &v.WeightKg, &v.BMI,
		&v.PainScale, &v.PainLocation, &v.MeasuredAt, &v.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &v, err
}

func (r *VitalSignsRepoPG) Create(ctx context.Context, v *VitalSigns) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	const q = `INSERT INTO vital_signs (id, patient_id, recorded_by_doctor_id,
			systolic_bp, diastolic_bp, heart_rate, temperature, respiratory_rate,
			oxygen_saturation, height_cm, weight_kg, bmi, pain_scale, pain_location, measured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := connFor(ctx, r.pool).Exec(ctx, q,
		v.ID, v.PatientID, v.RecordedByDoctorID,
		v.SystolicBP, v.DiastolicBP, v.HeartRate, v.Temperature, v.RespiratoryRate,
		v.OxygenSaturation, v.HeightCm, v.WeightKg, v.BMI, v.PainScale, v.PainLocation, v.MeasuredAt,
	)
	return err
}

func (r *VitalSignsRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error) {
	q := fmt.Sprintf("SELECT %s FROM vital_signs WHERE id = $1", vitalsCols)
	return scanVitals(connFor(ctx, r.pool).QueryRow(ctx, q, id))
}

func (r *VitalSignsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx,
		"SELECT COUNT(*) FROM vital_signs WHERE patient_id = $1", patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM vital_signs WHERE patient_id = $1 ORDER BY measured_at DESC LIMIT $2 OFFSET $3", vitalsCols)
	rows, err := connFor(ctx, r.pool).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// -- HistoryUpdate --

type HistoryRepoPG struct {
	pool *pgxpool.Pool
}

func NewHistoryRepoPG(pool *pgxpool.Pool) *HistoryRepoPG {
	return &HistoryRepoPG{pool: pool}
}

const historyCols = `id, patient_id, update_type, updated_fields, old_values, new_values,
	notes, updated_by_doctor_id, created_at`

func scanHistory(row pgx.Row) (*HistoryUpdate, error) {
	var u HistoryUpdate
	err := row.Scan(
		&u.ID, &u.PatientID, &u.UpdateType, &u.UpdatedFields, &u.OldValues, &u.NewValues,
		&u.Notes, &u.UpdatedByDoctorID, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *HistoryRepoPG) Create(ctx context.Context, u *HistoryUpdate) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	const q = `INSERT INTO history_update (id, patient_id, update_type, updated_fields,
			old_values, new_values, notes, updated_by_doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := connFor(ctx, r.pool).Exec(ctx, q,
		u.ID, u.PatientID, u.UpdateType, u.UpdatedFields,
		u.OldValues, u.NewValues, u.Notes, u.UpdatedByDoctorID,
	)
	return err
}

func (r *HistoryRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryUpdate, int, error) {
	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx,
		"SELECT COUNT(*) FROM history_update WHERE patient_id = $1", patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM history_update WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", historyCols)
	rows, err := connFor(ctx, r.pool).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*HistoryUpdate
	for rows.Next() {
		u, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}
