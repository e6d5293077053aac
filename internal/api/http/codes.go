// Package http is the service's HTTP surface: author-facing code management
// and rollups, and the anonymous player instance flow.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jiglearn/playcode/internal/auth"
	"github.com/jiglearn/playcode/internal/code"
	"github.com/jiglearn/playcode/internal/session"
)

type createCodeRequest struct {
	Jig         uuid.UUID           `json:"jig"`
	Settings    code.PlayerSettings `json:"settings"`
	DisplayName string              `json:"display_name" validate:"max=100"`
}

type codeResponse struct {
	code.Code
	// IndexDisplay is the padded form authors read aloud, e.g. "004217".
	IndexDisplay string `json:"index_display"`
}

func toCodeResponse(c code.Code) codeResponse {
	return codeResponse{Code: c, IndexDisplay: code.FormatIndex(c.Index)}
}

// POST /v1/jig/codes
func CreateCodeHandler(store code.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCodeRequest
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Jig == uuid.Nil {
			http.Error(w, "jig required", http.StatusBadRequest)
			return
		}
		caller := auth.SubjectFromContext(r.Context())
		c, err := store.Create(r.Context(), req.Jig, req.Settings, req.DisplayName, caller)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCodeResponse(c))
	}
}

type updateCodeRequest struct {
	DisplayName *string              `json:"display_name" validate:"omitempty,max=100"`
	Settings    *code.PlayerSettings `json:"settings"`
}

// PATCH /v1/jig/codes/{index}
func UpdateCodeHandler(store code.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := indexParam(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req updateCodeRequest
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		caller := auth.SubjectFromContext(r.Context())
		c, err := store.Update(r.Context(), idx, code.UpdateOpts{
			DisplayName: req.DisplayName,
			Settings:    req.Settings,
		}, caller)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCodeResponse(c))
	}
}

// GET /v1/jig/codes?jig=...
func ListCodesHandler(store code.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.SubjectFromContext(r.Context())
		var jigFilter *uuid.UUID
		if raw := r.URL.Query().Get("jig"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "bad jig filter", http.StatusBadRequest)
				return
			}
			jigFilter = &id
		}
		codes, err := store.ForAuthor(r.Context(), caller, jigFilter)
		if err != nil {
			httpError(w, err)
			return
		}
		out := make([]codeResponse, 0, len(codes))
		for _, c := range codes {
			out = append(out, toCodeResponse(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"codes": out})
	}
}

// GET /v1/jig/codes/jig-codes
func JigCodesHandler(store code.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.SubjectFromContext(r.Context())
		groups, err := store.JigsWithCodes(r.Context(), caller)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jigs": groups})
	}
}

// GET /v1/jig/codes/{index}/sessions
// Owner-only. The index may have recycled, so ownership is checked against
// the most recent code row holding it, and only that row's sessions are
// returned.
func CodeSessionsHandler(codes code.Store, sessions session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := indexParam(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		caller := auth.SubjectFromContext(r.Context())
		c, err := codes.Latest(r.Context(), idx)
		if err != nil {
			httpError(w, err)
			return
		}
		if c.CreatedBy != caller {
			httpError(w, code.ErrNotAuthor)
			return
		}
		list, err := sessions.ListByCode(r.Context(), c.ID)
		if err != nil {
			httpError(w, err)
			return
		}
		if list == nil {
			list = []session.Session{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
	}
}
