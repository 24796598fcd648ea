package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/domain/access"
	"github.com/clinrec/clinrec/internal/platform/middleware"
)

// Service couples policy evaluation to audit recording. The two are a single
// unit of work: no decision leaves this service without a persisted entry,
// and a failed write turns any grant into a denial (fail-closed).
type Service struct {
	evaluator *access.Evaluator
	recorder  Recorder
	repo      Repo
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(evaluator *access.Evaluator, repo Repo, logger zerolog.Logger) *Service {
	return &Service{
		evaluator: evaluator,
		recorder:  repo,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

// NewServiceWithClock injects a deterministic clock for tests.
func NewServiceWithClock(evaluator *access.Evaluator, repo Repo, logger zerolog.Logger, now func() time.Time) *Service {
	s := NewService(evaluator, repo, logger)
	s.now = now
	return s
}

// EvaluateAccess runs the access policy and records the outcome, one entry
// per call. Retried requests produce duplicate entries; that is preferred
// over a missing one. When the recorder fails, the returned decision is a
// denial and the error is a *WriteFailure regardless of the evaluator's
// verdict.
func (s *Service) EvaluateAccess(ctx context.Context, actor access.Actor, patientID uuid.UUID, emergency bool) (access.Decision, error) {
	dec, err := s.evaluator.Evaluate(ctx, actor, patientID, emergency)
	if err != nil {
		return access.Decision{}, err
	}

	action := ActionAccessDenied
	if dec.Granted {
		action = ActionAccessGranted
	}

	entry := &Entry{
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		PatientID:      patientID,
		Action:         action,
		Reason:         dec.Reason,
		Emergency:      emergency,
		RequiresReview: dec.RequiresReview,
		RequestID:      middleware.RequestIDFromContext(ctx),
		Recorded:       s.now(),
	}

	if err := s.recorder.Record(ctx, entry); err != nil {
		// The clinical trail itself failed to write, so this goes to the
		// operational channel instead.
		s.logger.Error().
			Str("channel", "ops").
			Str("actor_id", actor.ID.String()).
			Str("patient_id", patientID.String()).
			Str("action", action).
			Err(err).
			Msg("audit write failed, treating access as denied")
		return access.Decision{Granted: false, Reason: dec.Reason}, &WriteFailure{Err: err}
	}

	if dec.Granted && dec.RequiresReview {
		s.logger.Warn().
			Str("actor_id", actor.ID.String()).
			Str("actor_role", string(actor.Role)).
			Str("patient_id", patientID.String()).
			Str("reason", dec.Reason).
			Msg("emergency override access granted, flagged for review")
	}

	return dec, nil
}

// RecordMutation writes the audit entry for a clinical-data mutation, in
// addition to the access entry already written by EvaluateAccess. A failed
// write is a *WriteFailure and the caller must roll the mutation back.
func (s *Service) RecordMutation(ctx context.Context, actor access.Actor, patientID uuid.UUID, action string) error {
	entry := &Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		PatientID: patientID,
		Action:    action,
		Reason:    "clinical_data_mutation",
		RequestID: middleware.RequestIDFromContext(ctx),
		Recorded:  s.now(),
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Error().
			Str("channel", "ops").
			Str("actor_id", actor.ID.String()).
			Str("patient_id", patientID.String()).
			Str("action", action).
			Err(err).
			Msg("audit write failed for mutation")
		return &WriteFailure{Err: err}
	}
	return nil
}

// GetEntry and SearchEntries back the admin read endpoints.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SearchEntries(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
