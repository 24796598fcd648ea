package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Evaluator decides whether an actor may access a patient's clinical records.
// It performs no I/O beyond the gateway query and never writes audit entries
// itself; the caller must record every decision before acting on it.
type Evaluator struct {
	gateway AppointmentGateway
	now     func() time.Time
}

func NewEvaluator(gateway AppointmentGateway) *Evaluator {
	return &Evaluator{gateway: gateway, now: time.Now}
}

// NewEvaluatorWithClock injects a deterministic clock for tests.
func NewEvaluatorWithClock(gateway AppointmentGateway, now func() time.Time) *Evaluator {
	return &Evaluator{gateway: gateway, now: now}
}

// Evaluate applies the access policy in priority order, first match wins:
//
//  1. Self-access: a patient reading their own profile.
//  2. Admin override: always granted, never exempt from audit.
//  3. Doctor relationship: any appointment for (doctor, patient) inside a
//     temporal access window.
//  4. Emergency override: granted but flagged for mandatory review.
//  5. Default deny.
//
// Decisions are time-sensitive and must be recomputed on every call; callers
// must not cache them.
func (e *Evaluator) Evaluate(ctx context.Context, actor Actor, patientID uuid.UUID, emergency bool) (Decision, error) {
	if actor.Role == RolePatient && actor.ProfileID == patientID {
		return Decision{Granted: true, Reason: ReasonSelfAccess}, nil
	}

	if actor.Role == RoleAdmin {
		return Decision{Granted: true, Reason: ReasonAdminOverride}, nil
	}

	if actor.Role == RoleDoctor {
		appts, err := e.gateway.FindAppointments(ctx, actor.ProfileID, patientID)
		if err != nil {
			return Decision{}, fmt.Errorf("find appointments: %w", err)
		}

		now := e.now()
		for _, appt := range appts {
			if InWindow(now, *appt) {
				return Decision{Granted: true, Reason: ReasonValidWindow}, nil
			}
		}

		if emergency {
			return Decision{Granted: true, Reason: ReasonEmergency, RequiresReview: true}, nil
		}
		return Decision{Granted: false, Reason: ReasonNoValidWindow}, nil
	}

	if emergency {
		return Decision{Granted: true, Reason: ReasonEmergency, RequiresReview: true}, nil
	}

	return Decision{Granted: false, Reason: ReasonNoRelationship}, nil
}
