package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	api "github.com/jiglearn/playcode/internal/api/http"
	"github.com/jiglearn/playcode/internal/audit"
	"github.com/jiglearn/playcode/internal/auth"
	"github.com/jiglearn/playcode/internal/code"
	"github.com/jiglearn/playcode/internal/config"
	"github.com/jiglearn/playcode/internal/db"
	"github.com/jiglearn/playcode/internal/jig"
	"github.com/jiglearn/playcode/internal/reaper"
	"github.com/jiglearn/playcode/internal/scoring"
	"github.com/jiglearn/playcode/internal/session"
	"github.com/jiglearn/playcode/internal/token"
)

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores ---
	registry := jig.NewSQLRegistry(dbh)
	events := audit.NewLog(dbh)
	codes := code.NewSQLStore(dbh, registry, cfg.MaxCodeIndex, cfg.CodeValidity)
	sessions := session.NewSQLStore(dbh, scoring.NewEngine(), registry, events, cfg.MaxSummaryBytes)
	tokens := token.NewService(cfg.TokenSecret, cfg.InstanceTTL)
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, cfg.AdminUser, cfg.AdminPassHash))

	api.Mount(r, api.Deps{
		Codes:           codes,
		Sessions:        sessions,
		Tokens:          tokens,
		Auth:            authSvc,
		MaxSummaryBytes: cfg.MaxSummaryBytes,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := codes.ActiveCount(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		return reaper.New(codes, events, cfg.ReaperCadence).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil && err != http.ErrServerClosed && err != context.Canceled {
		log.Fatal(err)
	}
}
