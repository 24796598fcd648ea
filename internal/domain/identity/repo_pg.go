package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, account_id, age, gender, blood_type, height_cm, weight_kg,
	medical_history, allergies, current_medications, family_history,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Age, &p.Gender, &p.BloodType, &p.HeightCm, &p.WeightKg,
		&p.MedicalHistory, &p.Allergies, &p.CurrentMedications, &p.FamilyHistory,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *RepoPG) GetPatient(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	q := fmt.Sprintf("SELECT %s FROM patient_profile WHERE id = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetPatientByAccount(ctx context.Context, accountID uuid.UUID) (*PatientProfile, error) {
	q := fmt.Sprintf("SELECT %s FROM patient_profile WHERE account_id = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, accountID))
}

func (r *RepoPG) CreatePatient(ctx context.Context, p *PatientProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	const q = `INSERT INTO patient_profile (id, account_id, age, gender, blood_type,
			height_cm, weight_kg, medical_history, allergies, current_medications, family_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.conn(ctx).Exec(ctx, q,
		p.ID, p.AccountID, p.Age, p.Gender, p.BloodType,
		p.HeightCm, p.WeightKg, p.MedicalHistory, p.Allergies, p.CurrentMedications, p.FamilyHistory,
	)
	return err
}

func (r *RepoPG) UpdatePatientHistory(ctx context.Context, id uuid.UUID, values map[string]string) error {
	set := []string{}
	args := []interface{}{id}
	idx := 2
	for _, field := range HistoryFields {
		v, ok := values[field]
		if !ok {
			continue
		}
		set = append(set, fmt.Sprintf("%s = $%d", field, idx))
		args = append(args, v)
		idx++
	}
	if len(set) != len(values) {
		return fmt.Errorf("unknown history field in update")
	}
	if len(set) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE patient_profile SET %s, updated_at = NOW() WHERE id = $1", strings.Join(set, ", "))
	tag, err := r.conn(ctx).Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const doctorCols = `id, account_id, specialization, license_number, created_at`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(&d.ID, &d.AccountID, &d.Specialization, &d.LicenseNumber, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *RepoPG) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	q := fmt.Sprintf("SELECT %s FROM doctor_profile WHERE id = $1", doctorCols)
	return scanDoctor(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetDoctorByAccount(ctx context.Context, accountID uuid.UUID) (*DoctorProfile, error) {
	q := fmt.Sprintf("SELECT %s FROM doctor_profile WHERE account_id = $1", doctorCols)
	return scanDoctor(r.conn(ctx).QueryRow(ctx, q, accountID))
}

func (r *RepoPG) CreateDoctor(ctx context.Context, d *DoctorProfile) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	const q = `INSERT INTO doctor_profile (id, account_id, specialization, license_number)
		VALUES ($1, $2, $3, $4)`
	_, err := r.conn(ctx).Exec(ctx, q, d.ID, d.AccountID, d.Specialization, d.LicenseNumber)
	return err
}
