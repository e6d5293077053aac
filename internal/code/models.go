package code

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// PlayerSettings is the author-chosen play configuration frozen into a code
// at creation.
type PlayerSettings struct {
	Direction        Direction `json:"direction" validate:"oneof=ltr rtl"`
	DisplayScore     bool      `json:"display_score"`
	TrackAssessments bool      `json:"track_assessments"`
	DragAssist       bool      `json:"drag_assist"`
}

// Code is a short numeric handle an author mints to let anonymous players
// start a jig. Index is unique among active codes only; expired rows keep
// their value for history.
type Code struct {
	ID          uuid.UUID      `json:"id"`
	Index       int32          `json:"index"`
	Jig         uuid.UUID      `json:"jig"`
	DisplayName string         `json:"display_name,omitempty"`
	Settings    PlayerSettings `json:"settings"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Status      Status         `json:"status"`
}

// FormatIndex renders a code index the way authors read it aloud:
// zero-padded to six digits.
func FormatIndex(idx int32) string { return fmt.Sprintf("%06d", idx) }

// JigCodes is one row of the jigs-with-codes rollup.
type JigCodes struct {
	Jig   uuid.UUID `json:"jig"`
	Codes []Code    `json:"codes"`
}
