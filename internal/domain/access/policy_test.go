package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockGateway struct {
	appts map[string][]*Appointment
	err   error
	calls int
}

func pairKey(doctorID, patientID uuid.UUID) string {
	return doctorID.String() + "/" + patientID.String()
}

func (m *mockGateway) FindAppointments(ctx context.Context, doctorID, patientID uuid.UUID) ([]*Appointment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	appts, ok := m.appts[pairKey(doctorID, patientID)]
	if !ok {
		return []*Appointment{}, nil
	}
	return appts, nil
}

var policyNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return policyNow }

func newTestEvaluator(gw *mockGateway) *Evaluator {
	return NewEvaluatorWithClock(gw, fixedClock)
}

func TestEvaluate_SelfAccess(t *testing.T) {
	profileID := uuid.New()
	gw := &mockGateway{}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RolePatient, ProfileID: profileID}, profileID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted || dec.Reason != ReasonSelfAccess {
		t.Errorf("got %+v, want granted self_access", dec)
	}
	if dec.RequiresReview {
		t.Error("self-access must not require review")
	}
	if gw.calls != 0 {
		t.Errorf("gateway queried %d times for self-access, want 0", gw.calls)
	}
}

func TestEvaluate_PatientCrossAccessDenied(t *testing.T) {
	gw := &mockGateway{}
	e := newTestEvaluator(gw)

	actor := Actor{ID: uuid.New(), Role: RolePatient, ProfileID: uuid.New()}
	dec, err := e.Evaluate(context.Background(), actor, uuid.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Granted {
		t.Error("patient must not read another patient's records")
	}
	if dec.Reason != ReasonNoRelationship {
		t.Errorf("reason = %q, want %q", dec.Reason, ReasonNoRelationship)
	}
}

func TestEvaluate_AdminOverride(t *testing.T) {
	gw := &mockGateway{}
	e := newTestEvaluator(gw)

	for i := 0; i < 100; i++ {
		dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin, ProfileID: uuid.New()}, uuid.New(), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Granted || dec.Reason != ReasonAdminOverride {
			t.Fatalf("got %+v, want granted admin_override", dec)
		}
	}
	if gw.calls != 0 {
		t.Errorf("admin path queried the gateway %d times, want 0", gw.calls)
	}
}

func TestEvaluate_DoctorWithFutureAppointment(t *testing.T) {
	doctorProfile := uuid.New()
	patientID := uuid.New()
	gw := &mockGateway{appts: map[string][]*Appointment{
		pairKey(doctorProfile, patientID): {
			{ID: uuid.New(), DoctorID: doctorProfile, PatientID: patientID, Status: StatusScheduled, AppointmentDate: policyNow.Add(7 * 24 * time.Hour)},
		},
	}}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: doctorProfile}, patientID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted || dec.Reason != ReasonValidWindow {
		t.Errorf("got %+v, want granted valid_appointment_window", dec)
	}
}

func TestEvaluate_DoctorWithStalePastAppointment(t *testing.T) {
	doctorProfile := uuid.New()
	patientID := uuid.New()
	gw := &mockGateway{appts: map[string][]*Appointment{
		pairKey(doctorProfile, patientID): {
			{ID: uuid.New(), DoctorID: doctorProfile, PatientID: patientID, Status: StatusCompleted, AppointmentDate: policyNow.Add(-400 * 24 * time.Hour)},
		},
	}}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: doctorProfile}, patientID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Granted {
		t.Error("appointment 400 days old must not grant access")
	}
	if dec.Reason != ReasonNoValidWindow {
		t.Errorf("reason = %q, want %q", dec.Reason, ReasonNoValidWindow)
	}
}

func TestEvaluate_DoctorNoAppointments(t *testing.T) {
	gw := &mockGateway{}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: uuid.New()}, uuid.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Granted {
		t.Error("doctor with no appointments must be denied")
	}
	if dec.Reason != ReasonNoValidWindow {
		t.Errorf("reason = %q, want %q", dec.Reason, ReasonNoValidWindow)
	}
}

func TestEvaluate_AnyValidWindowSuffices(t *testing.T) {
	doctorProfile := uuid.New()
	patientID := uuid.New()
	gw := &mockGateway{appts: map[string][]*Appointment{
		pairKey(doctorProfile, patientID): {
			{Status: StatusCancelled, AppointmentDate: policyNow.Add(-500 * 24 * time.Hour)},
			{Status: StatusNoShow, AppointmentDate: policyNow.Add(-450 * 24 * time.Hour)},
			{Status: StatusCompleted, AppointmentDate: policyNow.Add(-100 * 24 * time.Hour)},
		},
	}}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: doctorProfile}, patientID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted || dec.Reason != ReasonValidWindow {
		t.Errorf("got %+v, want granted via the one in-window appointment", dec)
	}
}

func TestEvaluate_EmergencyOverrideForDoctor(t *testing.T) {
	gw := &mockGateway{}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: uuid.New()}, uuid.New(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted || dec.Reason != ReasonEmergency {
		t.Errorf("got %+v, want granted emergency_override", dec)
	}
	if !dec.RequiresReview {
		t.Error("emergency override must require review")
	}
}

func TestEvaluate_ValidWindowBeatsEmergencyFlag(t *testing.T) {
	doctorProfile := uuid.New()
	patientID := uuid.New()
	gw := &mockGateway{appts: map[string][]*Appointment{
		pairKey(doctorProfile, patientID): {
			{Status: StatusInProgress, AppointmentDate: policyNow},
		},
	}}
	e := newTestEvaluator(gw)

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: doctorProfile}, patientID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Reason != ReasonValidWindow {
		t.Errorf("reason = %q, want %q when a real window exists", dec.Reason, ReasonValidWindow)
	}
	if dec.RequiresReview {
		t.Error("in-window access must not be flagged for review even with emergency set")
	}
}

func TestEvaluate_SelfAccessIgnoresEmergency(t *testing.T) {
	profileID := uuid.New()
	e := newTestEvaluator(&mockGateway{})

	dec, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RolePatient, ProfileID: profileID}, profileID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Reason != ReasonSelfAccess || dec.RequiresReview {
		t.Errorf("got %+v, want plain self_access", dec)
	}
}

func TestEvaluate_GatewayErrorPropagates(t *testing.T) {
	gw := &mockGateway{err: errors.New("connection refused")}
	e := newTestEvaluator(gw)

	_, err := e.Evaluate(context.Background(), Actor{ID: uuid.New(), Role: RoleDoctor, ProfileID: uuid.New()}, uuid.New(), false)
	if err == nil {
		t.Fatal("expected error when the gateway fails")
	}
}
