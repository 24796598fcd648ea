package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/domain/access"
	"github.com/clinrec/clinrec/internal/platform/middleware"
)

type stubGateway struct {
	appts []*access.Appointment
}

func (g *stubGateway) FindAppointments(ctx context.Context, doctorID, patientID uuid.UUID) ([]*access.Appointment, error) {
	return g.appts, nil
}

type mockRepo struct {
	entries []*Entry
	fail    bool
}

func (m *mockRepo) Record(ctx context.Context, e *Entry) error {
	if m.fail {
		return errors.New("connection reset by peer")
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	return m.entries, len(m.entries), nil
}

var auditNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(gw *stubGateway, repo *mockRepo) *Service {
	evaluator := access.NewEvaluatorWithClock(gw, func() time.Time { return auditNow })
	return NewServiceWithClock(evaluator, repo, zerolog.Nop(), func() time.Time { return auditNow })
}

func TestEvaluateAccess_GrantWritesOneEntry(t *testing.T) {
	doctorProfile := uuid.New()
	patientID := uuid.New()
	gw := &stubGateway{appts: []*access.Appointment{
		{DoctorID: doctorProfile, PatientID: patientID, Status: access.StatusScheduled, AppointmentDate: auditNow.Add(48 * time.Hour)},
	}}
	repo := &mockRepo{}
	svc := newTestService(gw, repo)

	actor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor, ProfileID: doctorProfile}
	dec, err := svc.EvaluateAccess(context.Background(), actor, patientID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted {
		t.Fatalf("decision = %+v, want granted", dec)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("wrote %d entries, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Action != ActionAccessGranted {
		t.Errorf("action = %q, want %q", e.Action, ActionAccessGranted)
	}
	if e.Reason != access.ReasonValidWindow {
		t.Errorf("reason = %q, want %q", e.Reason, access.ReasonValidWindow)
	}
	if e.ActorID != actor.ID || e.PatientID != patientID {
		t.Errorf("entry ids = (%s, %s), want (%s, %s)", e.ActorID, e.PatientID, actor.ID, patientID)
	}
	if !e.Recorded.Equal(auditNow) {
		t.Errorf("recorded = %v, want %v", e.Recorded, auditNow)
	}
}

func TestEvaluateAccess_DenialWritesAttemptEntry(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(&stubGateway{}, repo)

	actor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor, ProfileID: uuid.New()}
	dec, err := svc.EvaluateAccess(context.Background(), actor, uuid.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Granted {
		t.Fatal("expected denial")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("wrote %d entries, want 1", len(repo.entries))
	}
	if repo.entries[0].Action != ActionAccessDenied {
		t.Errorf("action = %q, want %q", repo.entries[0].Action, ActionAccessDenied)
	}
	if repo.entries[0].Reason != access.ReasonNoValidWindow {
		t.Errorf("reason = %q, want %q", repo.entries[0].Reason, access.ReasonNoValidWindow)
	}
}

func TestEvaluateAccess_AdminAlwaysAudited(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(&stubGateway{}, repo)

	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}
	patientID := uuid.New()
	for i := 0; i < 1000; i++ {
		dec, err := svc.EvaluateAccess(context.Background(), admin, patientID, false)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !dec.Granted || dec.Reason != access.ReasonAdminOverride {
			t.Fatalf("call %d: decision = %+v", i, dec)
		}
	}
	if len(repo.entries) != 1000 {
		t.Fatalf("wrote %d entries for 1000 admin calls, want 1000", len(repo.entries))
	}
	for _, e := range repo.entries {
		if e.Reason != access.ReasonAdminOverride {
			t.Fatalf("entry reason = %q, want %q", e.Reason, access.ReasonAdminOverride)
		}
	}
}

func TestEvaluateAccess_FailClosed(t *testing.T) {
	repo := &mockRepo{fail: true}
	svc := newTestService(&stubGateway{}, repo)

	// Admin would normally always be granted; the failed write must override.
	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}
	dec, err := svc.EvaluateAccess(context.Background(), admin, uuid.New(), false)
	if err == nil {
		t.Fatal("expected error from failed audit write")
	}
	var wf *WriteFailure
	if !errors.As(err, &wf) {
		t.Fatalf("error = %T, want *WriteFailure", err)
	}
	if dec.Granted {
		t.Error("decision must report denial when the audit write fails")
	}
}

func TestEvaluateAccess_EmergencyEntryFlagged(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(&stubGateway{}, repo)

	doctor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor, ProfileID: uuid.New()}
	dec, err := svc.EvaluateAccess(context.Background(), doctor, uuid.New(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted || !dec.RequiresReview {
		t.Fatalf("decision = %+v, want granted with review", dec)
	}
	e := repo.entries[0]
	if !e.Emergency || !e.RequiresReview {
		t.Errorf("entry = %+v, want emergency and requires_review set", e)
	}
	if e.Reason != access.ReasonEmergency {
		t.Errorf("reason = %q, want %q", e.Reason, access.ReasonEmergency)
	}
}

func TestRecordMutation(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(&stubGateway{}, repo)

	actor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor, ProfileID: uuid.New()}
	patientID := uuid.New()
	if err := svc.RecordMutation(context.Background(), actor, patientID, ActionDiagnosisCreated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("wrote %d entries, want 1", len(repo.entries))
	}
	if repo.entries[0].Action != ActionDiagnosisCreated {
		t.Errorf("action = %q, want %q", repo.entries[0].Action, ActionDiagnosisCreated)
	}
}

func TestEvaluateAccess_StampsRequestID(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(&stubGateway{}, repo)

	ctx := middleware.ContextWithRequestID(context.Background(), "req-42")
	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}
	if _, err := svc.EvaluateAccess(ctx, admin, uuid.New(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.entries[0].RequestID != "req-42" {
		t.Errorf("request id = %q, want req-42", repo.entries[0].RequestID)
	}
}

func TestRecordMutation_FailClosed(t *testing.T) {
	repo := &mockRepo{fail: true}
	svc := newTestService(&stubGateway{}, repo)

	actor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor, ProfileID: uuid.New()}
	err := svc.RecordMutation(context.Background(), actor, uuid.New(), ActionVitalSignsRecorded)
	var wf *WriteFailure
	if !errors.As(err, &wf) {
		t.Fatalf("error = %v, want *WriteFailure", err)
	}
}
