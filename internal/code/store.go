// Package code allocates and tracks the short numeric play codes authors
// share with anonymous players.
package code

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCodeNotFound   = errors.New("code: not found")
	ErrCodeExpired    = errors.New("code: expired")
	ErrNotAuthor      = errors.New("code: caller is not the author")
	ErrJigNotFound    = errors.New("code: jig not found")
	ErrSpaceExhausted = errors.New("code: no free index in the namespace")
)

// UpdateOpts carries the only two fields an author may change after creation.
// Nil means leave as is.
type UpdateOpts struct {
	DisplayName *string
	Settings    *PlayerSettings
}

type Store interface {
	// Create mints a code for a published jig owned by createdBy.
	Create(ctx context.Context, jig uuid.UUID, settings PlayerSettings, displayName string, createdBy uuid.UUID) (Code, error)
	// LookupActive returns a code only while it is active and unexpired. The
	// expiry boundary is closed: a code whose expires_at equals now is gone.
	LookupActive(ctx context.Context, index int32) (Code, error)
	// Latest returns the most recently created code holding an index,
	// regardless of status. Index values recycle after expiry, so this is the
	// row author-facing reads want.
	Latest(ctx context.Context, index int32) (Code, error)
	// Update changes display name and/or settings; only the owning author may.
	Update(ctx context.Context, index int32, opts UpdateOpts, caller uuid.UUID) (Code, error)
	// ForAuthor lists every code the caller created, active and expired,
	// newest first. jigFilter narrows to one jig when non-nil.
	ForAuthor(ctx context.Context, caller uuid.UUID, jigFilter *uuid.UUID) ([]Code, error)
	// JigsWithCodes groups ForAuthor output by jig; jigs with no codes are
	// omitted.
	JigsWithCodes(ctx context.Context, caller uuid.UUID) ([]JigCodes, error)
	// ExpireDue flips every active code past its expires_at to expired and
	// reports how many rows changed. Used by the reaper; idempotent.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
