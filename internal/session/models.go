package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jiglearn/playcode/internal/scoring"
)

// Session is one completed play: who (optionally) played, when, the raw
// summary as delivered, and the score derived from it. Sessions outlive the
// code they were played under; CodeID pins the session to that exact code
// even after its index has been recycled.
type Session struct {
	ID          uuid.UUID           `json:"id"`
	CodeID      uuid.UUID           `json:"code_id"`
	CodeIndex   int32               `json:"code_index"`
	Jig         uuid.UUID           `json:"jig"`
	PlayersName string              `json:"players_name,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Summary     scoring.PlaySummary `json:"summary"`
	Score       scoring.Points      `json:"score"`
	Nonce       uuid.UUID           `json:"nonce"`
}

// Completion is the input to PersistCompletion: the verified token claims
// plus what the player reported.
type Completion struct {
	CodeID      uuid.UUID
	CodeIndex   int32
	Jig         uuid.UUID
	Nonce       uuid.UUID
	PlayersName string
	StartedAt   time.Time
	FinishedAt  time.Time
	Summary     scoring.PlaySummary
}
