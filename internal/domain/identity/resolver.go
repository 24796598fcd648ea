package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinrec/clinrec/internal/domain/access"
)

// Resolver maps the identifiers callers present, which may be account ids
// or profile ids, onto clinical profile ids. Resolution happens exactly
// once, at the request boundary; everything below it only ever sees profile
// ids.
type Resolver struct {
	repo Repo
}

func NewResolver(repo Repo) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveActor fills in the actor's profile id when the token did not carry
// one: direct profile lookup on the subject first, then account→profile
// fallback. Admins have no clinical profile and pass through unchanged.
func (r *Resolver) ResolveActor(ctx context.Context, actor access.Actor) (access.Actor, error) {
	if actor.ProfileID != uuid.Nil || actor.Role == access.RoleAdmin {
		return actor, nil
	}

	switch actor.Role {
	case access.RolePatient:
		p, err := r.repo.GetPatient(ctx, actor.ID)
		if err == nil {
			actor.ProfileID = p.ID
			return actor, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return access.Actor{}, fmt.Errorf("resolve patient profile: %w", err)
		}
		p, err = r.repo.GetPatientByAccount(ctx, actor.ID)
		if err != nil {
			return access.Actor{}, fmt.Errorf("resolve patient profile by account: %w", err)
		}
		actor.ProfileID = p.ID
		return actor, nil

	case access.RoleDoctor:
		d, err := r.repo.GetDoctor(ctx, actor.ID)
		if err == nil {
			actor.ProfileID = d.ID
			return actor, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return access.Actor{}, fmt.Errorf("resolve doctor profile: %w", err)
		}
		d, err = r.repo.GetDoctorByAccount(ctx, actor.ID)
		if err != nil {
			return access.Actor{}, fmt.Errorf("resolve doctor profile by account: %w", err)
		}
		actor.ProfileID = d.ID
		return actor, nil
	}

	return access.Actor{}, fmt.Errorf("cannot resolve profile for role %q", actor.Role)
}

// ResolvePatientID normalizes a caller-supplied patient identifier to the
// patient's profile id, accepting either the profile id itself or the
// owning account id.
func (r *Resolver) ResolvePatientID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	p, err := r.repo.GetPatient(ctx, id)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return uuid.Nil, fmt.Errorf("resolve patient id: %w", err)
	}
	p, err = r.repo.GetPatientByAccount(ctx, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve patient id by account: %w", err)
	}
	return p.ID, nil
}
