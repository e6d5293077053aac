// Package session persists completed plays, exactly one per consumed
// instance token.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClockSkew       = errors.New("session: finished before started")
	ErrPayloadTooLarge = errors.New("session: summary exceeds byte ceiling")
	ErrJigMismatch     = errors.New("session: summary modules not in jig")
)

type Store interface {
	// PersistCompletion scores the summary and inserts the session. The
	// (code_index, nonce) pair is the sole idempotency key: a duplicate
	// insert returns the pre-existing row unchanged.
	PersistCompletion(ctx context.Context, c Completion) (Session, error)
	// ListByCode returns every session played under one code, started_at
	// ascending. Keyed by the code's id, not its index, so a recycled
	// index never surfaces an earlier code's sessions. Authorization
	// happens at the API layer.
	ListByCode(ctx context.Context, codeID uuid.UUID) ([]Session, error)
}
