package access

import (
	"context"

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

// AppointmentGatewayPG reads appointment relationship facts from the
// appointment table maintained by the scheduling system.
type AppointmentGatewayPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentGatewayPG(pool *pgxpool.Pool) *AppointmentGatewayPG {
	return &AppointmentGatewayPG{pool: pool}
}

func (g *AppointmentGatewayPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return g.pool
}

func (g *AppointmentGatewayPG) FindAppointments(ctx context.Context, doctorID, patientID uuid.UUID) ([]*Appointment, error) {
	const q = `SELECT id, doctor_id, patient_id, status, appointment_date
		FROM appointment
		WHERE doctor_id = $1 AND patient_id = $2
		ORDER BY appointment_date DESC`

	rows, err := g.conn(ctx).Query(ctx, q, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []*Appointment{}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Status, &a.AppointmentDate); err != nil {
			return nil, err
		}
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}
