// Package jig is this service's read-only view of the external JIG registry.
// A jig is opaque here: an id, its owning author, and the set of stable module
// ids it publishes.
package jig

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("jig: not found")

// Registry answers the three questions the code allocator and session store
// ask about published jigs.
type Registry interface {
	// Exists reports whether the jig is known and published.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// IsAuthor reports whether caller may share the jig with players.
	IsAuthor(ctx context.Context, id uuid.UUID, caller uuid.UUID) (bool, error)
	// ModuleIDs returns the jig's published stable module ids. ok=false means
	// the registry cannot supply a module set and callers skip membership
	// checks.
	ModuleIDs(ctx context.Context, id uuid.UUID) (ids []uuid.UUID, ok bool, err error)
}

// StaticRegistry is an in-memory Registry for tests and single-box setups.
type StaticRegistry struct {
	Jigs map[uuid.UUID]StaticJig
}

type StaticJig struct {
	Author  uuid.UUID
	Modules []uuid.UUID
}

func (r *StaticRegistry) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.Jigs[id]
	return ok, nil
}

func (r *StaticRegistry) IsAuthor(_ context.Context, id uuid.UUID, caller uuid.UUID) (bool, error) {
	j, ok := r.Jigs[id]
	if !ok {
		return false, nil
	}
	return j.Author == caller, nil
}

func (r *StaticRegistry) ModuleIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, bool, error) {
	j, ok := r.Jigs[id]
	if !ok {
		return nil, false, nil
	}
	if len(j.Modules) == 0 {
		return nil, false, nil
	}
	return j.Modules, true, nil
}
