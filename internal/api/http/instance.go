package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/jiglearn/playcode/internal/code"
	"github.com/jiglearn/playcode/internal/scoring"
	"github.com/jiglearn/playcode/internal/session"
	"github.com/jiglearn/playcode/internal/token"
)

type createInstanceRequest struct {
	Code int32 `json:"code"`
}

type createInstanceResponse struct {
	Jig      string              `json:"jig"`
	Settings code.PlayerSettings `json:"settings"`
	Token    string              `json:"token"`
}

// POST /v1/jig/codes/instance — anonymous. Exchanges an active code for a
// single-use play token plus the frozen settings the author chose.
func CreateInstanceHandler(codes code.Store, tokens *token.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInstanceRequest
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := codes.LookupActive(r.Context(), req.Code)
		if err != nil {
			httpError(w, err)
			return
		}
		signed, _, err := tokens.Mint(c.Jig, c.ID, c.Index)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, createInstanceResponse{
			Jig:      c.Jig.String(),
			Settings: c.Settings,
			Token:    signed,
		})
	}
}

type completeInstanceRequest struct {
	Token       string              `json:"token"`
	PlayersName string              `json:"players_name" validate:"max=100"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Summary     scoring.PlaySummary `json:"summary"`
}

// POST /v1/jig/codes/instance/complete — anonymous plus token. Verifies the
// token, confirms the code is still live and still the one the token was
// minted for, then persists the session idempotently.
func CompleteInstanceHandler(codes code.Store, sessions session.Store, tokens *token.Service, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Summary ceiling plus slack for the envelope fields.
		r.Body = http.MaxBytesReader(w, r.Body, maxBody+4096)
		var req completeInstanceRequest
		if err := decodeValid(r, &req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				httpError(w, session.ErrPayloadTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		if req.StartedAt.IsZero() || req.FinishedAt.IsZero() {
			http.Error(w, "started_at and finished_at required", http.StatusBadRequest)
			return
		}

		claims, err := tokens.Verify(req.Token)
		if err != nil {
			httpError(w, err)
			return
		}
		c, err := codes.LookupActive(r.Context(), claims.CodeIndex)
		if err != nil {
			httpError(w, err)
			return
		}
		if c.ID != claims.CodeID {
			// Index recycled since the token was minted: the live code at this
			// index is not the one the token was bound to.
			httpError(w, code.ErrCodeExpired)
			return
		}

		sess, err := sessions.PersistCompletion(r.Context(), session.Completion{
			CodeID:      claims.CodeID,
			CodeIndex:   claims.CodeIndex,
			Jig:         claims.Jig,
			Nonce:       claims.Nonce,
			PlayersName: req.PlayersName,
			StartedAt:   req.StartedAt.UTC(),
			FinishedAt:  req.FinishedAt.UTC(),
			Summary:     req.Summary,
		})
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
