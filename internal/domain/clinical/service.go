package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinrec/clinrec/internal/domain/access"
	"github.com/clinrec/clinrec/internal/domain/audit"
	"github.com/clinrec/clinrec/internal/domain/identity"
)

// TxRunner executes fn inside a transaction carried on the context, so that
// a clinical mutation and its audit entry commit or roll back together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	diagnoses DiagnosisRepository
	vitals    VitalSignsRepository
	history   HistoryRepository
	patients  identity.Repo
	audits    *audit.Service
	inTx      TxRunner
	now       func() time.Time
}

func NewService(diagnoses DiagnosisRepository, vitals VitalSignsRepository, history HistoryRepository,
	patients identity.Repo, audits *audit.Service, inTx TxRunner) *Service {
	if inTx == nil {
		inTx = passthroughTx
	}
	return &Service{
		diagnoses: diagnoses,
		vitals:    vitals,
		history:   history,
		patients:  patients,
		audits:    audits,
		inTx:      inTx,
		now:       time.Now,
	}
}

// NewServiceWithClock injects a deterministic clock for tests.
func NewServiceWithClock(diagnoses DiagnosisRepository, vitals VitalSignsRepository, history HistoryRepository,
	patients identity.Repo, audits *audit.Service, inTx TxRunner, now func() time.Time) *Service {
	s := NewService(diagnoses, vitals, history, patients, audits, inTx)
	s.now = now
	return s
}

// requireAccess runs the audited access evaluation and converts a denial
// into an AccessDenied error. The audit entry is written either way; a
// failed audit write surfaces as *audit.WriteFailure and the caller must
// not proceed.
func (s *Service) requireAccess(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool) error {
	dec, err := s.audits.EvaluateAccess(ctx, actor, patientID, emergency)
	if err != nil {
		return err
	}
	if !dec.Granted {
		return &AccessDenied{Reason: dec.Reason}
	}
	return nil
}

// -- Diagnosis --

func (s *Service) CreateDiagnosis(ctx context.Context, actor access.Actor, d *Diagnosis) error {
	if actor.Role != access.RoleDoctor {
		return &AccessDenied{Reason: "diagnosis_requires_doctor"}
	}
	if err := s.requireAccess(ctx, actor, d.PatientID, false); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	d.DoctorID = actor.ProfileID

	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.diagnoses.Create(ctx, d); err != nil {
			return fmt.Errorf("create diagnosis: %w", err)
		}
		return s.audits.RecordMutation(ctx, actor, d.PatientID, audit.ActionDiagnosisCreated)
	})
}

func (s *Service) ResolveDiagnosis(ctx context.Context, actor access.Actor, id uuid.UUID, notes string) error {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, actor, d.PatientID, false); err != nil {
		return err
	}
	// Only the creating doctor may resolve, independent of the general
	// access policy.
	if actor.Role != access.RoleDoctor || d.DoctorID != actor.ProfileID {
		return &AccessDenied{Reason: "not_creating_doctor"}
	}
	if d.Resolved {
		return &InvalidTransition{Entity: "diagnosis", CurrentState: "resolved"}
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		ok, err := s.diagnoses.Resolve(ctx, id, notes, s.now())
		if err != nil {
			return fmt.Errorf("resolve diagnosis: %w", err)
		}
		if !ok {
			return &InvalidTransition{Entity: "diagnosis", CurrentState: "resolved"}
		}
		return s.audits.RecordMutation(ctx, actor, d.PatientID, audit.ActionDiagnosisResolved)
	})
}

func (s *Service) GetDiagnosis(ctx context.Context, actor access.Actor, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, actor, d.PatientID, false); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDiagnoses(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool, limit, offset int) ([]*Diagnosis, int, error) {
	if err := s.requireAccess(ctx, actor, patientID, emergency); err != nil {
		return nil, 0, err
	}
	return s.diagnoses.ListByPatient(ctx, patientID, limit, offset)
}

// -- VitalSigns --

func (s *Service) RecordVitalSigns(ctx context.Context, actor access.Actor, v *VitalSigns) error {
	if err := s.requireAccess(ctx, actor, v.PatientID, false); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}

	if actor.Role == access.RoleDoctor {
		doctorID := actor.ProfileID
		v.RecordedByDoctorID = &doctorID
	} else {
		v.RecordedByDoctorID = nil
	}
	v.ComputeBMI()
	if v.MeasuredAt.IsZero() {
		v.MeasuredAt = s.now()
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.vitals.Create(ctx, v); err != nil {
			return fmt.Errorf("create vital signs: %w", err)
		}
		return s.audits.RecordMutation(ctx, actor, v.PatientID, audit.ActionVitalSignsRecorded)
	})
}

func (s *Service) ListVitalSigns(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool, limit, offset int) ([]*VitalSigns, int, error) {
	if err := s.requireAccess(ctx, actor, patientID, emergency); err != nil {
		return nil, 0, err
	}
	return s.vitals.ListByPatient(ctx, patientID, limit, offset)
}

// -- MedicalHistoryUpdate --

func (s *Service) RecordHistoryUpdate(ctx context.Context, actor access.Actor, patientID uuid.UUID, fields map[string]string, notes string) (*HistoryUpdate, error) {
	if len(fields) == 0 {
		return nil, &ValidationError{Field: "fields", Reason: "at least one history field is required"}
	}
	tracked := map[string]bool{}
	for _, f := range identity.HistoryFields {
		tracked[f] = true
	}
	for f := range fields {
		if !tracked[f] {
			return nil, &ValidationError{Field: f, Reason: "not a tracked history field"}
		}
	}

	if err := s.requireAccess(ctx, actor, patientID, false); err != nil {
		return nil, err
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	current := p.HistoryValues()
	updated := []string{}
	oldValues := map[string]string{}
	newValues := map[string]string{}
	for _, f := range identity.HistoryFields {
		v, ok := fields[f]
		if !ok || v == current[f] {
			continue
		}
		updated = append(updated, f)
		oldValues[f] = current[f]
		newValues[f] = v
	}
	if len(updated) == 0 {
		return nil, &ValidationError{Field: "fields", Reason: "no tracked field changed"}
	}

	u := &HistoryUpdate{
		PatientID:     patientID,
		UpdatedFields: updated,
		OldValues:     oldValues,
		NewValues:     newValues,
		Notes:         notes,
	}
	switch actor.Role {
	case access.RolePatient:
		u.UpdateType = UpdatePatientSelf
	default:
		doctorID := actor.ProfileID
		u.UpdateType = UpdateDoctor
		u.UpdatedByDoctorID = &doctorID
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.history.Create(ctx, u); err != nil {
			return fmt.Errorf("create history update: %w", err)
		}
		if err := s.patients.UpdatePatientHistory(ctx, patientID, newValues); err != nil {
			return fmt.Errorf("apply history update: %w", err)
		}
		return s.audits.RecordMutation(ctx, actor, patientID, audit.ActionHistoryUpdated)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListHistoryUpdates(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool, limit, offset int) ([]*HistoryUpdate, int, error) {
	if err := s.requireAccess(ctx, actor, patientID, emergency); err != nil {
		return nil, 0, err
	}
	return s.history.ListByPatient(ctx, patientID, limit, offset)
}

// -- Full record --

// PatientRecord is the combined EHR view returned to a caller with a
// granted access decision.
type PatientRecord struct {
	Profile    *identity.PatientProfile `json:"profile"`
	Diagnoses  []*Diagnosis             `json:"diagnoses"`
	VitalSigns []*VitalSigns            `json:"vital_signs"`
	History    []*HistoryUpdate         `json:"history"`
}

// GetPatientRecord fetches the EHR behind a single audited access
// evaluation.
func (s *Service) GetPatientRecord(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool) (*PatientRecord, error) {
	if err := s.requireAccess(ctx, actor, patientID, emergency); err != nil {
		return nil, err
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	diagnoses, _, err := s.diagnoses.ListByPatient(ctx, patientID, 50, 0)
	if err != nil {
		return nil, err
	}
	vitals, _, err := s.vitals.ListByPatient(ctx, patientID, 50, 0)
	if err != nil {
		return nil, err
	}
	history, _, err := s.history.ListByPatient(ctx, patientID, 50, 0)
	if err != nil {
		return nil, err
	}

	return &PatientRecord{
		Profile:    p,
		Diagnoses:  diagnoses,
		VitalSigns: vitals,
		History:    history,
	}, nil
}
