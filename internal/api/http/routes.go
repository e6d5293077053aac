package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/jiglearn/playcode/internal/auth"
	"github.com/jiglearn/playcode/internal/code"
	"github.com/jiglearn/playcode/internal/rbac"
	"github.com/jiglearn/playcode/internal/session"
	"github.com/jiglearn/playcode/internal/token"
)

type Deps struct {
	Codes           code.Store
	Sessions        session.Store
	Tokens          *token.Service
	Auth            *auth.AuthService
	MaxSummaryBytes int64
}

// Mount attaches the /v1/jig/codes surface. The author half sits behind JWT
// auth and RBAC; the instance half is anonymous by design.
func Mount(r chi.Router, d Deps) {
	r.Route("/v1/jig/codes", func(cr chi.Router) {
		// Anonymous player flow.
		cr.Post("/instance", CreateInstanceHandler(d.Codes, d.Tokens))
		cr.Post("/instance/complete", CompleteInstanceHandler(d.Codes, d.Sessions, d.Tokens, d.MaxSummaryBytes))

		// Author flow.
		cr.Group(func(ar chi.Router) {
			ar.Use(auth.JWTMiddleware(d.Auth))
			ar.With(rbac.Require("codes:create")).Post("/", CreateCodeHandler(d.Codes))
			ar.With(rbac.Require("codes:view")).Get("/", ListCodesHandler(d.Codes))
			ar.With(rbac.Require("codes:view")).Get("/jig-codes", JigCodesHandler(d.Codes))
			ar.With(rbac.Require("codes:update")).Patch("/{index}", UpdateCodeHandler(d.Codes))
			ar.With(rbac.Require("sessions:view")).Get("/{index}/sessions", CodeSessionsHandler(d.Codes, d.Sessions))
		})
	})
}
